package domain

import "errors"

var (
	// ErrNotFound signals an unknown entity id, or a revert with no prior
	// revision to fall back to.
	ErrNotFound = errors.New("not found")

	// ErrValidation signals bad input: non-future effective date,
	// non-positive value, malformed date range.
	ErrValidation = errors.New("validation failed")

	// ErrConflict signals overlapping bookings, a lost modify/revert race,
	// or deleting an entity that still has dependents.
	ErrConflict = errors.New("conflict")

	// ErrIntegrity signals a broken revision-chain invariant (e.g. no open
	// revision for a property). Unreachable when writes go through the
	// versioning services; logged server-side, never shown verbatim.
	ErrIntegrity = errors.New("data integrity failure")
)
