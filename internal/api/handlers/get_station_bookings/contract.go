package get_station_bookings

import (
	"context"

	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings/models"
)

type BookingService interface {
	GetStationBookings(ctx context.Context, req *models.GetStationBookingsRequest) (*models.BookingListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
