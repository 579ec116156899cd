package request_booking

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/integrations/userservice"
	"github.com/m04kA/SMC-ChargingReservationService/internal/timewindow"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.UserID <= 0 {
		return fmt.Errorf("%w: userID must be positive", ErrInvalidInput)
	}

	if req.PortID <= 0 {
		return fmt.Errorf("%w: portID must be positive", ErrInvalidInput)
	}

	if strings.TrimSpace(req.Date) == "" {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	if strings.TrimSpace(req.StartTime) == "" {
		return fmt.Errorf("%w: startTime is required", ErrInvalidInput)
	}

	if req.VehicleInfo != nil && utf8.RuneCountInString(*req.VehicleInfo) > domain.MaxVehicleInfoLength {
		return fmt.Errorf("%w: vehicleInfo exceeds %d characters", ErrInvalidInput, domain.MaxVehicleInfoLength)
	}

	if req.SpecialRequests != nil && utf8.RuneCountInString(*req.SpecialRequests) > domain.MaxSpecialRequestsLength {
		return fmt.Errorf("%w: specialRequests exceeds %d characters", ErrInvalidInput, domain.MaxSpecialRequestsLength)
	}

	return nil
}

// validateWindow проверяет, что окно не в прошлом и не дальше AdvanceBookingDays
func validateWindow(window timewindow.Window, now time.Time, settings Settings) error {
	if window.Start.Before(now) && !settings.AllowPastWindows {
		return fmt.Errorf("%w: %s", ErrWindowInPast, window.Start.Format(time.RFC3339))
	}

	// Если AdvanceBookingDays = 0, нет ограничений на дату
	if settings.AdvanceBookingDays == 0 {
		return nil
	}

	local := now.In(settings.Location)
	maxDate := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, settings.Location).
		AddDate(0, 0, settings.AdvanceBookingDays)
	if window.Date.After(maxDate) {
		return fmt.Errorf("%w: can only book %d days in advance", ErrDateTooFarInFuture, settings.AdvanceBookingDays)
	}

	return nil
}

// validateConnector проверяет совместимость разъёма автомобиля и порта
// Неизвестный тип с любой стороны не блокирует бронирование
func validateConnector(vehicle *userservice.Vehicle, port *domain.Port) error {
	if vehicle == nil || vehicle.ConnectorType == "" || port.ConnectorType == "" {
		return nil
	}
	if !strings.EqualFold(vehicle.ConnectorType, port.ConnectorType) {
		return fmt.Errorf("%w: vehicle has %s, port %d has %s",
			ErrConnectorMismatch, vehicle.ConnectorType, port.ID, port.ConnectorType)
	}
	return nil
}
