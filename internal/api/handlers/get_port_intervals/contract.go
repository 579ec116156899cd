package get_port_intervals

import (
	"context"

	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings/models"
)

type BookingService interface {
	ListActiveIntervals(ctx context.Context, portID int64, date string) ([]models.ActiveInterval, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
