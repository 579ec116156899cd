package get_station_availability

import (
	"context"

	"github.com/m04kA/SMC-ChargingReservationService/internal/service/availability/models"
)

type AvailabilityService interface {
	StationAvailability(ctx context.Context, stationID int64) (*models.StationAvailability, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
