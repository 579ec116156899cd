package userservice

import "errors"

var (
	// ErrVehicleNotFound возвращается, когда у пользователя нет выбранного автомобиля
	ErrVehicleNotFound = errors.New("user has no selected vehicle")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("userservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("userservice client: invalid response")

	// ErrUnavailable возвращается при недоступности сервиса (5xx, таймаут, открытый circuit breaker)
	ErrUnavailable = errors.New("userservice client: service unavailable")

	// ErrServiceDegraded возвращается при применении graceful degradation
	// Указывает, что UserService недоступен и бронирование создаётся без данных автомобиля
	ErrServiceDegraded = errors.New("userservice unavailable: graceful degradation applied")
)
