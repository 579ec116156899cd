// Package authz is the single authorization decision point consulted by every
// operation that reads or mutates bookings on behalf of an actor.
package authz

import (
	"fmt"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

// Action operation being authorized
type Action string

const (
	ActionViewBooking         Action = "booking.view"
	ActionConfirmBooking      Action = "booking.confirm"
	ActionCancelBooking       Action = "booking.cancel"
	ActionCompleteBooking     Action = "booking.complete"
	ActionListUserBookings    Action = "user.bookings.list"
	ActionListStationBookings Action = "station.bookings.list"
)

// ErrForbidden returned for every denied decision
var ErrForbidden = fmt.Errorf("%w: actor is not allowed to perform this action", domain.ErrForbidden)

// Subject what the action is applied to. Fields not relevant to the action may be nil.
type Subject struct {
	Booking      *domain.Booking
	Station      *domain.Station
	TargetUserID int64
}

// Authorize returns nil when actor may perform action on subject
func Authorize(actor domain.Actor, action Action, subject Subject) error {
	if actor.Role == domain.RoleAdmin {
		return nil
	}

	allowed := false
	switch action {
	case ActionViewBooking, ActionCancelBooking:
		allowed = isBookingOwner(actor, subject) || isStationOwner(actor, subject)

	case ActionConfirmBooking:
		// подтверждает тот, кто платит
		allowed = isBookingOwner(actor, subject)

	case ActionCompleteBooking:
		allowed = actor.Role == domain.RoleSystem || isStationOwner(actor, subject)

	case ActionListUserBookings:
		allowed = actor.Role != domain.RoleSystem && actor.UserID == subject.TargetUserID

	case ActionListStationBookings:
		allowed = isStationOwner(actor, subject)
	}

	if !allowed {
		return fmt.Errorf("%w: action=%s user=%d role=%s", ErrForbidden, action, actor.UserID, actor.Role)
	}
	return nil
}

func isBookingOwner(actor domain.Actor, subject Subject) bool {
	return actor.Role != domain.RoleSystem &&
		subject.Booking != nil &&
		subject.Booking.UserID == actor.UserID
}

func isStationOwner(actor domain.Actor, subject Subject) bool {
	return actor.Role == domain.RoleStationOwner &&
		subject.Station != nil &&
		subject.Station.IsOwnedBy(actor.UserID)
}
