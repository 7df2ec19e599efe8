// Package allocation implements the nightly seat allocation engine: it
// classifies pending requests by priority, resolves group units, assigns
// seats against bus capacity in one deterministic pass, and records an
// immutable run outcome per service date.
package allocation

import "errors"

// Precondition faults. These abort a run before any seat mutation; handlers
// translate them into HTTP status codes.
var (
	// ErrAlreadyLocked is returned when the date lock is already held,
	// which signals a duplicate trigger rather than a transient condition.
	ErrAlreadyLocked = errors.New("service date is already locked")

	// ErrAlreadyRun is returned when a COMPLETED run exists for the date.
	ErrAlreadyRun = errors.New("allocation already completed for service date")

	// ErrInvalidGroup is returned when a group's members span more than one
	// priority class. This is an upstream data-integrity violation and the
	// run must not proceed with inconsistent state.
	ErrInvalidGroup = errors.New("group members span priority classes")

	// ErrNoCapacity is returned when no bus capacity exists for the date.
	ErrNoCapacity = errors.New("no bus capacity available")
)
