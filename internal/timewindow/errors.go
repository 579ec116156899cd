package timewindow

import (
	"fmt"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

var (
	ErrInvalidDate         = fmt.Errorf("%w: invalid date, expected YYYY-MM-DD", domain.ErrValidation)
	ErrInvalidTime         = fmt.Errorf("%w: invalid time, expected HH:MM", domain.ErrValidation)
	ErrInvalidRange        = fmt.Errorf("%w: start must be before end", domain.ErrValidation)
	ErrAmbiguousEnd        = fmt.Errorf("%w: exactly one of endTime or duration is required", domain.ErrValidation)
	ErrDurationOutOfBounds = fmt.Errorf("%w: duration out of allowed bounds", domain.ErrValidation)
)
