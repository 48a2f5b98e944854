package registry

import "errors"

// Caller errors returned by Allocate and Release.  Handlers report them as
// validation messages; none of them changes the registry.
var (
	ErrRecordNotFound    = errors.New("locker not found")
	ErrAlreadyOccupied   = errors.New("locker already occupied")
	ErrNotOccupied       = errors.New("locker not occupied")
	ErrInvalidAllocation = errors.New("invalid allocation")
)

// ErrDuplicateLocker is returned when two records would share a location
// and number, and with it an identity.  Overlapping catalog ranges are the
// usual cause.
var ErrDuplicateLocker = errors.New("duplicate locker")
