package domain

// PortStatus is the projected display status of a port
type PortStatus string

const (
	PortAvailable   PortStatus = "available"
	PortInUse       PortStatus = "in-use"
	PortMaintenance PortStatus = "maintenance"
)

// Station represents a physical charging site
type Station struct {
	ID             int64
	Name           string
	Address        string
	Latitude       float64
	Longitude      float64
	PricePerKWh    float64
	PowerKW        float64
	ConnectorTypes []string
	Description    *string
	OwnerID        *int64
}

// IsOwnedBy reports whether the user owns the station
func (s *Station) IsOwnedBy(userID int64) bool {
	return s.OwnerID != nil && *s.OwnerID == userID
}

// Port represents an individually reservable connector
// Status is a cached projection and never the scheduling authority
type Port struct {
	ID            int64
	StationID     int64
	Label         string
	ConnectorType string
	PowerKW       float64
	Status        PortStatus
}

// InMaintenance reports whether the operator took the port out of service
func (p *Port) InMaintenance() bool {
	return p.Status == PortMaintenance
}
