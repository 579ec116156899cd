package request_booking

import (
	"fmt"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

var (
	// ErrPortNotFound возвращается, когда порт не найден
	ErrPortNotFound = fmt.Errorf("%w: request_booking: port", domain.ErrNotFound)

	// ErrStationNotFound возвращается, когда станция порта не найдена
	ErrStationNotFound = fmt.Errorf("%w: request_booking: station", domain.ErrNotFound)

	// ErrSlotConflict возвращается, когда порт уже забронирован на пересекающийся интервал
	ErrSlotConflict = fmt.Errorf("%w: request_booking: port already reserved for an overlapping window", domain.ErrConflict)

	// ErrTooManyActiveBookings возвращается при превышении лимита активных бронирований пользователя
	ErrTooManyActiveBookings = fmt.Errorf("%w: request_booking: too many active bookings", domain.ErrConflict)

	// ErrWindowInPast возвращается, когда начало интервала уже прошло
	ErrWindowInPast = fmt.Errorf("%w: request_booking: window starts in the past", domain.ErrValidation)

	// ErrDateTooFarInFuture возвращается, когда дата превышает ограничение advanceBookingDays
	ErrDateTooFarInFuture = fmt.Errorf("%w: request_booking: date is too far in the future", domain.ErrValidation)

	// ErrConnectorMismatch возвращается, когда разъём автомобиля не подходит к порту
	ErrConnectorMismatch = fmt.Errorf("%w: request_booking: vehicle connector does not fit the port", domain.ErrValidation)

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = fmt.Errorf("%w: request_booking", domain.ErrValidation)

	// ErrCatalogUnavailable возвращается, когда каталог не ответил после повторов
	ErrCatalogUnavailable = fmt.Errorf("%w: request_booking: catalog", domain.ErrDependency)

	// ErrInternal возвращается при сбоях хранилища
	ErrInternal = fmt.Errorf("%w: request_booking: storage", domain.ErrDependency)
)
