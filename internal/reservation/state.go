package reservation

import "fmt"

// State is the lifecycle of the process-wide reservation. It only moves
// forward: Unreserved, then Reserved, then Released.
type State uint32

const (
	// Unreserved is the zero value: nothing is mapped and no fault can be
	// attributed to the sandbox.
	Unreserved State = iota
	// Reserved means the low region is mapped no-access and faults inside it
	// are sandbox boundary violations.
	Reserved
	// Released means the region was unmapped. Sandboxed code must not run
	// again in this process.
	Released
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case Unreserved:
		return "unreserved"
	case Reserved:
		return "reserved"
	case Released:
		return "released"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// Transition returns the state after moving from s to next, or an error
// wrapping ErrInvalidTransition. Reserved to Reserved is allowed and changes
// nothing.
func (s State) Transition(next State) (State, error) {
	switch {
	case s == Unreserved && next == Reserved,
		s == Reserved && next == Reserved,
		s == Reserved && next == Released:
		return next, nil
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
}
