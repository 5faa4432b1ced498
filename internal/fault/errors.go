package fault

import (
	"errors"
	"fmt"

	"github.com/tetratelabs/hfiemu/internal/reservation"
)

var (
	// ErrOutOfBoundsMemoryAccess is wrapped by every *Trap.
	ErrOutOfBoundsMemoryAccess = errors.New("out of bounds memory access")
	// ErrFatalFault is wrapped by every *FatalFaultError.
	ErrFatalFault = errors.New("fatal memory fault")
	// ErrHandlerInstalled is returned by Interceptor.InstallHandler when a
	// handler is already installed.
	ErrHandlerInstalled = errors.New("fault handler already installed")
	// ErrNoHandler is returned by Interceptor.Deliver when no handler is installed.
	ErrNoHandler = errors.New("no fault handler installed")
)

// Trap is the controlled unwind of a sandboxed access caught inside the
// reserved region. The guarded call returns it instead of crashing.
type Trap struct {
	Record
}

// Error implements error
func (t *Trap) Error() string {
	return fmt.Sprintf("%s at %#x", ErrOutOfBoundsMemoryAccess, t.Addr)
}

// Unwrap allows errors.Is(err, ErrOutOfBoundsMemoryAccess).
func (t *Trap) Unwrap() error {
	return ErrOutOfBoundsMemoryAccess
}

// FatalFaultError describes a fault that is not a sandbox boundary violation.
// The process is terminated when it is created, unless a test replaced the
// terminator.
type FatalFaultError struct {
	Record
	State reservation.State
}

// Error implements error
func (e *FatalFaultError) Error() string {
	return fmt.Sprintf("%s at %#x (pc %#x, %s access): %s in state %s",
		ErrFatalFault, e.Addr, e.PC, e.Access, e.Class, e.State)
}

// Unwrap allows errors.Is(err, ErrFatalFault).
func (e *FatalFaultError) Unwrap() error {
	return ErrFatalFault
}
