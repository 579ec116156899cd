package models

import (
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

// BusyInterval интервал, занятый активным бронированием
type BusyInterval struct {
	BookingID int64                `json:"bookingId"`
	Status    domain.BookingStatus `json:"status"`
	Start     time.Time            `json:"start"`
	End       time.Time            `json:"end"`
}

// FreeInterval свободное окно внутри суток
type FreeInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PortAvailability доступность порта на дату
type PortAvailability struct {
	PortID    int64             `json:"portId"`
	StationID int64             `json:"stationId"`
	Date      string            `json:"date"` // "2025-10-15"
	Status    domain.PortStatus `json:"status"`
	Busy      []BusyInterval    `json:"busy"`
	Free      []FreeInterval    `json:"free"`
}

// PortState состояние порта в текущий момент
type PortState struct {
	PortID          int64             `json:"portId"`
	Label           string            `json:"label"`
	ConnectorType   string            `json:"connectorType"`
	PowerKW         float64           `json:"powerKw"`
	Status          domain.PortStatus `json:"status"`
	ActiveBookingID *int64            `json:"activeBookingId,omitempty"`
	BusyUntil       *time.Time        `json:"busyUntil,omitempty"`
}

// StationAvailability снимок доступности всех портов станции
type StationAvailability struct {
	StationID int64       `json:"stationId"`
	At        time.Time   `json:"at"`
	Available int         `json:"available"`
	Ports     []PortState `json:"ports"`
}
