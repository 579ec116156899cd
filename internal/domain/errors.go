package domain

import "errors"

// Error kinds. Package-level sentinels wrap one of these so the HTTP layer
// can map any error to a status with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state transition")
	ErrDependency   = errors.New("dependency failure")

	// ErrPaymentDeclined the payment provider refused the charge
	ErrPaymentDeclined = errors.New("payment declined")
)
