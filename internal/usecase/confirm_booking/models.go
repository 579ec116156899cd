package confirm_booking

import "github.com/m04kA/SMC-ChargingReservationService/internal/domain"

// Request запрос на подтверждение с оплатой
type Request struct {
	BookingID int64
	Actor     domain.Actor
}
