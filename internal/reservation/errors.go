package reservation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tetratelabs/hfiemu/internal/platform"
)

var (
	// ErrReservationFailed matches every *ReservationFailedError via errors.Is.
	ErrReservationFailed = errors.New("reservation failed")
	// ErrNotInitialized is returned when the region is queried or used before
	// the reservation was made.
	ErrNotInitialized = errors.New("reservation not initialized")
	// ErrReleased is returned when the region is used after release.
	ErrReleased = errors.New("reservation released")
	// ErrInvalidTransition is returned for any backward state transition.
	ErrInvalidTransition = errors.New("invalid reservation state transition")
	// ErrRegionTampered is returned by Audit when something changed the
	// mapping of the reserved region.
	ErrRegionTampered = errors.New("reserved region is no longer fully no-access")
)

// Reason is why a reservation failed.
type Reason uint8

const (
	// AlreadyOccupied means part of the region was already mapped.
	AlreadyOccupied Reason = iota + 1
	// PlatformDenied means the OS refused the mapping.
	PlatformDenied
	// UnsupportedAddressWidth means the address space is too small to hold a
	// low 4GiB region apart from the heap and stacks.
	UnsupportedAddressWidth
)

// String implements fmt.Stringer
func (r Reason) String() string {
	switch r {
	case AlreadyOccupied:
		return "already occupied"
	case PlatformDenied:
		return "platform denied"
	case UnsupportedAddressWidth:
		return "unsupported address width"
	}
	return fmt.Sprintf("Reason(%d)", uint8(r))
}

// ReservationFailedError is returned by Reserver.Initialize. It is fatal: the
// process must not run sandboxed code under partial isolation.
type ReservationFailedError struct {
	Reason Reason
	// Region is what was requested.
	Region Region
	// Err is the underlying platform error, if any.
	Err error
	// Conflicts are the existing mappings inside Region, when the platform
	// exposes a mapping table and Reason is AlreadyOccupied.
	Conflicts []platform.Mapping
}

// Error implements error
func (e *ReservationFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "reservation of %s failed: %s", e.Region, e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	for _, m := range e.Conflicts {
		b.WriteString("\n\toccupied by ")
		b.WriteString(m.String())
	}
	return b.String()
}

// Unwrap allows errors.Is to match ErrReservationFailed and the cause.
func (e *ReservationFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrReservationFailed}
	}
	return []error{ErrReservationFailed, e.Err}
}
