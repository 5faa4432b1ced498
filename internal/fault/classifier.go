// Package fault classifies memory faults against the reserved low region and
// intercepts them in guarded code.
package fault

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tetratelabs/hfiemu/internal/reservation"
)

// ExitCodeFault is the exit code of a process terminated by a fatal fault.
const ExitCodeFault = 71

// Observer is notified of every classified fault, before dispatch.
type Observer interface {
	FaultClassified(Classification)
}

// Classifier decides whether a faulting address is a sandbox boundary
// violation. It only reads its Registry.
type Classifier struct {
	registry  *reservation.Registry
	logger    logrus.FieldLogger
	observer  Observer
	terminate func(code int)
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger for fatal diagnostics.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// WithObserver sets the Observer of classifications.
func WithObserver(o Observer) Option {
	return func(c *Classifier) {
		c.observer = o
	}
}

// WithTerminator replaces os.Exit on the fatal path.
func WithTerminator(terminate func(code int)) Option {
	return func(c *Classifier) {
		c.terminate = terminate
	}
}

// NewClassifier returns a Classifier reading registry.
func NewClassifier(registry *reservation.Registry, opts ...Option) *Classifier {
	c := &Classifier{
		registry:  registry,
		logger:    logrus.StandardLogger(),
		terminate: os.Exit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the class of a fault at addr. The result depends only on
// addr and the current state. It takes no locks and does not allocate.
func (c *Classifier) Classify(addr uintptr) Classification {
	state, region := c.registry.Snapshot()
	return ClassifyIn(state, region, addr)
}

// ClassifyIn returns the class of a fault at addr, given a reservation state
// and region.
func ClassifyIn(state reservation.State, region reservation.Region, addr uintptr) Classification {
	if state != reservation.Reserved {
		return Unclassifiable
	}
	if region.Contains(addr) {
		return InSandboxBoundary
	}
	return OutsideBoundary
}

// Handle classifies rec and dispatches it. InSandboxBoundary returns a *Trap
// for the guarded caller. Every other class logs a diagnostic and terminates
// the process; if the terminator returns, a *FatalFaultError is returned.
//
// Handle has the signature of a Handler.
func (c *Classifier) Handle(rec *Record) error {
	state, region := c.registry.Snapshot()
	rec.Class = ClassifyIn(state, region, rec.Addr)
	if c.observer != nil {
		c.observer.FaultClassified(rec.Class)
	}

	if rec.Class == InSandboxBoundary {
		return &Trap{Record: *rec}
	}

	err := &FatalFaultError{Record: *rec, State: state}
	c.logger.WithFields(logrus.Fields{
		"addr":           fmt.Sprintf("%#x", rec.Addr),
		"pc":             fmt.Sprintf("%#x", rec.PC),
		"access":         rec.Access.String(),
		"classification": rec.Class.String(),
		"state":          state.String(),
		"region":         region.String(),
	}).Error("fatal memory fault outside the sandbox boundary")
	c.terminate(ExitCodeFault)
	return err
}
