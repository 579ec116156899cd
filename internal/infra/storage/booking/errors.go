package booking

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("booking.repository: booking not found")

	// ErrPortNotFound возвращается, когда порт для блокировки не найден
	ErrPortNotFound = errors.New("booking.repository: port not found")

	// ErrOverlap возвращается, когда БД отклонила пересекающийся интервал (exclusion constraint)
	ErrOverlap = errors.New("booking.repository: overlapping active booking on port")

	// ErrStatusChanged возвращается, когда статус бронирования изменился с момента чтения
	ErrStatusChanged = errors.New("booking.repository: booking status changed concurrently")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("booking.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("booking.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("booking.repository: failed to scan row")
)
