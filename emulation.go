package hfiemu

import (
	"context"

	"github.com/tetratelabs/hfiemu/internal/fault"
	"github.com/tetratelabs/hfiemu/internal/metrics"
	"github.com/tetratelabs/hfiemu/internal/reservation"
)

// Emulation owns the reservation, its registry, the fault classifier and the
// fault interceptor. There should be one per process; see Default.
type Emulation struct {
	emulate     bool
	registry    *reservation.Registry
	reserver    *reservation.Reserver
	classifier  *fault.Classifier
	interceptor *fault.Interceptor
}

// New returns an Emulation in the Unreserved state. It only fails if the
// metrics cannot be registered.
func New(c *Config) (*Emulation, error) {
	reserverOpts := []reservation.Option{
		reservation.WithLogger(c.logger),
		reservation.WithConflictReport(c.reportConflicts),
	}
	classifierOpts := []fault.Option{
		fault.WithLogger(c.logger),
		fault.WithTerminator(c.terminate),
	}
	if c.registerer != nil {
		m, err := metrics.New(c.registerer)
		if err != nil {
			return nil, err
		}
		reserverOpts = append(reserverOpts, reservation.WithObserver(m))
		classifierOpts = append(classifierOpts, fault.WithObserver(m))
	}

	registry := reservation.NewRegistry()
	return &Emulation{
		emulate:     c.emulate,
		registry:    registry,
		reserver:    reservation.NewReserver(registry, c.space, reserverOpts...),
		classifier:  fault.NewClassifier(registry, classifierOpts...),
		interceptor: fault.NewInterceptor(),
	}, nil
}

// Initialize reserves the low 4GiB and installs the fault handler. It is
// idempotent while Reserved and must complete on one goroutine before any
// sandboxed code runs.
func (e *Emulation) Initialize() error {
	if err := e.reserver.Initialize(); err != nil {
		return err
	}
	if !e.interceptor.Installed() {
		if err := e.interceptor.InstallHandler(e.classifier.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Release unmaps the region at shutdown. The fault handler stays installed,
// so a late fault is reported as Unclassifiable rather than crashing without
// a diagnostic.
func (e *Emulation) Release() error {
	return e.reserver.Release()
}

// State returns the reservation state.
func (e *Emulation) State() State {
	return e.registry.CurrentState()
}

// Region returns the reserved region, or ErrNotInitialized.
func (e *Emulation) Region() (Region, error) {
	return e.registry.RegionBounds()
}

// Audit checks the region is still entirely no-access.
func (e *Emulation) Audit() error {
	return e.reserver.Audit()
}

// Classify returns the class a fault at addr would get now.
func (e *Emulation) Classify(addr uintptr) Classification {
	return e.classifier.Classify(addr)
}

// Deliver dispatches a synthetic fault as if sandboxed code raised it.
func (e *Emulation) Deliver(rec Record) error {
	return e.interceptor.Deliver(rec)
}

// Call runs sandboxed code on the calling goroutine. A fault inside the
// reserved region unwinds back here and is returned as a *Trap; any other
// fault terminates the process.
//
// Call refuses to run fn outside the Reserved window: ErrNotInitialized
// before Initialize and ErrReleased after Release.
func (e *Emulation) Call(ctx context.Context, fn func(context.Context)) error {
	switch e.registry.CurrentState() {
	case Unreserved:
		return ErrNotInitialized
	case Released:
		return ErrReleased
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.interceptor.Guard(func() { fn(ctx) })
}
