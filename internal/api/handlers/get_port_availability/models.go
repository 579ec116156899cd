package get_port_availability

import (
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/service/availability/models"
)

// PortAvailabilityResponse HTTP response model
// Busy и Free отсутствуют, если запрошен только статус (intervals=false)
type PortAvailabilityResponse struct {
	PortID    int64          `json:"portId"`
	StationID int64          `json:"stationId"`
	Date      string         `json:"date"`
	Status    string         `json:"status"`
	Busy      []BusyInterval `json:"busy,omitempty"`
	Free      []FreeWindow   `json:"free,omitempty"`
}

// BusyInterval занятый интервал
type BusyInterval struct {
	BookingID int64  `json:"bookingId"`
	Status    string `json:"status"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

// FreeWindow свободное окно
type FreeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FromServiceResponse конвертирует ответ сервиса в HTTP response
func FromServiceResponse(resp *models.PortAvailability, withIntervals bool) *PortAvailabilityResponse {
	result := &PortAvailabilityResponse{
		PortID:    resp.PortID,
		StationID: resp.StationID,
		Date:      resp.Date,
		Status:    string(resp.Status),
	}
	if !withIntervals {
		return result
	}

	result.Busy = make([]BusyInterval, len(resp.Busy))
	for i, b := range resp.Busy {
		result.Busy[i] = BusyInterval{
			BookingID: b.BookingID,
			Status:    string(b.Status),
			Start:     b.Start.Format(time.RFC3339),
			End:       b.End.Format(time.RFC3339),
		}
	}

	result.Free = make([]FreeWindow, len(resp.Free))
	for i, f := range resp.Free {
		result.Free[i] = FreeWindow{
			Start: f.Start.Format(time.RFC3339),
			End:   f.End.Format(time.RFC3339),
		}
	}
	return result
}
