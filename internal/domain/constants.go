package domain

// Reservation window bounds used when config leaves them empty
const (
	DefaultMinDurationMinutes = 30
	DefaultMaxDurationMinutes = 120
	DefaultTimeZone           = "UTC"
)

// Business validation constants
const (
	MaxVehicleInfoLength        = 200
	MaxSpecialRequestsLength    = 500
	MaxCancellationReasonLength = 500
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// ActiveStatuses statuses that occupy capacity on a port
var ActiveStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
}

// InactiveStatuses terminal statuses, kept for audit only
var InactiveStatuses = []BookingStatus{
	StatusCompleted,
	StatusCancelled,
}
