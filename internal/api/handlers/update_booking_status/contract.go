package update_booking_status

import (
	"context"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings/models"
	confirmBooking "github.com/m04kA/SMC-ChargingReservationService/internal/usecase/confirm_booking"
)

type BookingService interface {
	Cancel(ctx context.Context, bookingID int64, actor domain.Actor, reason string) (*models.BookingResponse, error)
	Complete(ctx context.Context, bookingID int64, actor domain.Actor) (*models.BookingResponse, error)
}

type ConfirmBookingUseCase interface {
	Execute(ctx context.Context, req *confirmBooking.Request) (*models.BookingResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
