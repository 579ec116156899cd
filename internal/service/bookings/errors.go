package bookings

import (
	"fmt"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = fmt.Errorf("%w: booking", domain.ErrNotFound)

	// ErrStationNotFound возвращается, когда станция не найдена
	ErrStationNotFound = fmt.Errorf("%w: station", domain.ErrNotFound)

	// ErrPortNotFound возвращается, когда порт не найден
	ErrPortNotFound = fmt.Errorf("%w: port", domain.ErrNotFound)

	// ErrAccessDenied возвращается, когда у пользователя нет прав доступа
	ErrAccessDenied = fmt.Errorf("%w: booking access denied", domain.ErrForbidden)

	// ErrInvalidTransition возвращается, когда машина состояний запрещает переход
	ErrInvalidTransition = fmt.Errorf("%w: booking", domain.ErrInvalidState)

	// ErrConcurrentUpdate возвращается, когда статус изменился параллельно
	ErrConcurrentUpdate = fmt.Errorf("%w: booking was modified concurrently", domain.ErrConflict)

	// ErrPaymentDeclined возвращается, когда оплата отклонена; бронирование остаётся pending
	ErrPaymentDeclined = fmt.Errorf("%w: booking stays pending", domain.ErrPaymentDeclined)

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = fmt.Errorf("%w: bookings", domain.ErrValidation)

	// ErrInternal возвращается при сбоях хранилища или каталога
	ErrInternal = fmt.Errorf("%w: bookings", domain.ErrDependency)
)
