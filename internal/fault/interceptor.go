package fault

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"
)

// Handler receives every intercepted fault. Classifier.Handle is the handler
// used outside of tests.
type Handler func(*Record) error

// Interceptor is the narrow wrapper over fault interception.
//
// Go delivers synchronous SIGSEGV/SIGBUS (or access violations on Windows)
// to the faulting goroutine as a panic when runtime/debug.SetPanicOnFault is
// enabled. Guard turns that panic into a Record and hands it to the installed
// Handler, so Guard is the checkpoint a caught violation unwinds to.
type Interceptor struct {
	handler atomic.Pointer[Handler]
}

// NewInterceptor returns an Interceptor with no handler installed.
func NewInterceptor() *Interceptor {
	return &Interceptor{}
}

// InstallHandler installs h. Only one handler may be installed at a time.
func (i *Interceptor) InstallHandler(h Handler) error {
	if !i.handler.CompareAndSwap(nil, &h) {
		return ErrHandlerInstalled
	}
	return nil
}

// UninstallHandler removes the installed handler, if any.
func (i *Interceptor) UninstallHandler() {
	i.handler.Store(nil)
}

// Installed returns true if a handler is installed.
func (i *Interceptor) Installed() bool {
	return i.handler.Load() != nil
}

// Deliver hands a synthetic fault to the installed handler, as if the
// guarded code faulted at rec.Addr.
func (i *Interceptor) Deliver(rec Record) error {
	h := i.handler.Load()
	if h == nil {
		return ErrNoHandler
	}
	return (*h)(&rec)
}

// Guard runs fn on the calling goroutine and intercepts any memory fault it
// raises. It returns the handler's verdict, or nil if fn returned normally.
//
// Panics that are not memory faults propagate unchanged. With no handler
// installed, fn runs unguarded and a fault crashes the process.
func (i *Interceptor) Guard(fn func()) (err error) {
	h := i.handler.Load()
	if h == nil {
		fn()
		return nil
	}

	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		addr, ok := faultAddress(recovered)
		if !ok {
			panic(recovered)
		}
		rec := Record{Addr: addr, Access: AccessUnknown, PC: faultPC()}
		err = (*h)(&rec)
	}()

	fn()
	return nil
}

// nilDereference is the message of the runtime error raised for faults in
// the first page, which carries no address.
const nilDereference = "runtime error: invalid memory address or nil pointer dereference"

// faultAddress returns the faulting address if recovered is a memory fault.
func faultAddress(recovered interface{}) (uintptr, bool) {
	rerr, ok := recovered.(runtime.Error)
	if !ok {
		return 0, false
	}
	// See runtime/debug.SetPanicOnFault
	if a, ok := rerr.(interface{ Addr() uintptr }); ok {
		return a.Addr(), true
	}
	if rerr.Error() == nilDereference {
		return 0, true
	}
	return 0, false
}

// faultPC returns the PC of the frame the runtime injected sigpanic into,
// or zero. It must be called from the deferred function that recovered.
func faultPC() uintptr {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function == "runtime.sigpanic" {
			if faulting, _ := frames.Next(); faulting.Function != "" {
				return faulting.PC
			}
			return 0
		}
		if !more {
			return 0
		}
	}
}
