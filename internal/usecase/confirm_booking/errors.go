package confirm_booking

import (
	"fmt"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

var (
	// ErrBookingNotFound бронирование не найдено
	ErrBookingNotFound = fmt.Errorf("%w: booking", domain.ErrNotFound)

	// ErrStationNotFound станция бронирования не найдена
	ErrStationNotFound = fmt.Errorf("%w: station", domain.ErrNotFound)

	// ErrPortNotFound порт бронирования не найден
	ErrPortNotFound = fmt.Errorf("%w: port", domain.ErrNotFound)

	// ErrAccessDenied подтверждать может только владелец бронирования
	ErrAccessDenied = fmt.Errorf("%w: only the booking owner can confirm", domain.ErrForbidden)

	// ErrNotPending подтвердить можно только pending бронирование
	ErrNotPending = fmt.Errorf("%w: booking is not pending", domain.ErrInvalidState)

	// ErrPaymentUnavailable провайдер не ответил; бронирование остаётся pending
	ErrPaymentUnavailable = fmt.Errorf("%w: payment", domain.ErrDependency)

	// ErrInternal сбой хранилища
	ErrInternal = fmt.Errorf("%w: confirm booking", domain.ErrDependency)
)
