package fault

import "fmt"

// Classification is the verdict on one memory fault.
type Classification uint8

const (
	// Unclassifiable means the fault happened outside the Reserved window, so
	// the emulation contract does not hold. Fatal.
	Unclassifiable Classification = iota
	// InSandboxBoundary means the address is inside the reserved region: a
	// sandboxed out-of-bounds access was caught. The only recoverable class.
	InSandboxBoundary
	// OutsideBoundary means the address is outside the reserved region: a
	// host bug or a sandbox escape. Fatal.
	OutsideBoundary
)

// String implements fmt.Stringer
func (c Classification) String() string {
	switch c {
	case Unclassifiable:
		return "unclassifiable"
	case InSandboxBoundary:
		return "in_sandbox_boundary"
	case OutsideBoundary:
		return "outside_boundary"
	}
	return fmt.Sprintf("Classification(%d)", uint8(c))
}

// Access is the kind of memory access that faulted.
type Access uint8

const (
	// AccessUnknown is used for faults caught by the Go runtime, which does
	// not report the access kind.
	AccessUnknown Access = iota
	AccessRead
	AccessWrite
	AccessExecute
)

// String implements fmt.Stringer
func (a Access) String() string {
	switch a {
	case AccessUnknown:
		return "unknown"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessExecute:
		return "execute"
	}
	return fmt.Sprintf("Access(%d)", uint8(a))
}

// Record describes one intercepted fault. It lives only until the fault is
// dispatched.
type Record struct {
	// Addr is the faulting address. Faults in the first page are reported
	// by the Go runtime without an address and recorded as zero.
	Addr uintptr
	// Access is the access kind, when known.
	Access Access
	// PC is the instruction that faulted, or zero if unknown.
	PC uintptr
	// Class is set by Classifier.Handle.
	Class Classification
}
