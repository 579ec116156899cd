package domain

import (
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/pkg/types"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// transitions is the only place that defines the booking state machine
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// ParseBookingStatus validates a status coming from the outside
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch status := BookingStatus(s); status {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return status, true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether the state machine allows moving to next
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsActive returns true for statuses that still occupy the port
func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// IsTerminal returns true for statuses with no outgoing transitions
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Booking represents a reservation of a charging port for a time window
type Booking struct {
	ID        int64
	UserID    int64
	StationID int64
	PortID    int64

	BookingDate     time.Time        // date in the platform time zone, midnight
	StartTime       types.TimeString // wall-clock start on BookingDate
	EndTime         types.TimeString // wall-clock end (may be on the next day)
	DurationMinutes int
	StartsAt        time.Time
	EndsAt          time.Time

	Status BookingStatus

	VehicleInfo     *string
	SpecialRequests *string

	Amount     *float64
	PaymentRef *string

	CancellationReason *string
	CancelledBy        *int64

	ConfirmedAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActive returns true if the booking still occupies its interval
func (b *Booking) IsActive() bool {
	return b.Status.IsActive()
}

// CanBeCancelled returns true if the booking can be cancelled
func (b *Booking) CanBeCancelled() bool {
	return b.Status.CanTransitionTo(StatusCancelled)
}

// Overlaps checks half-open interval intersection [StartsAt, EndsAt)
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartsAt.Before(end) && start.Before(b.EndsAt)
}

// Contains reports whether t falls into [StartsAt, EndsAt)
func (b *Booking) Contains(t time.Time) bool {
	return !t.Before(b.StartsAt) && t.Before(b.EndsAt)
}

// Clone returns a deep copy, so callers never share mutable state
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.VehicleInfo = cloneString(b.VehicleInfo)
	c.SpecialRequests = cloneString(b.SpecialRequests)
	c.PaymentRef = cloneString(b.PaymentRef)
	c.CancellationReason = cloneString(b.CancellationReason)
	if b.Amount != nil {
		v := *b.Amount
		c.Amount = &v
	}
	if b.CancelledBy != nil {
		v := *b.CancelledBy
		c.CancelledBy = &v
	}
	c.ConfirmedAt = cloneTime(b.ConfirmedAt)
	c.CompletedAt = cloneTime(b.CompletedAt)
	c.CancelledAt = cloneTime(b.CancelledAt)
	return &c
}

// StatusChange describes a single state machine step persisted by repositories
type StatusChange struct {
	BookingID  int64
	From       BookingStatus
	To         BookingStatus
	At         time.Time
	Amount     *float64
	PaymentRef *string
	Reason     *string
	ActorID    *int64
}

// BookingsFilter filter for station/user booking listings
type BookingsFilter struct {
	UserID          *int64
	StationID       *int64
	PortID          *int64
	StartDate       *time.Time
	EndDate         *time.Time
	Status          *BookingStatus
	IncludeInactive bool
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
