package prescription

import "errors"

var (
	ErrPrescriptionNotFound = errors.New("prescription not found or not accessible")

	// ErrInvalidState is returned when a status-guarded transition finds the
	// prescription no longer active, typically because a concurrent request won.
	ErrInvalidState = errors.New("prescription is no longer active")
)
