package get_port_availability

import (
	"context"

	"github.com/m04kA/SMC-ChargingReservationService/internal/service/availability/models"
)

type AvailabilityService interface {
	PortAvailability(ctx context.Context, portID int64, date string) (*models.PortAvailability, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
