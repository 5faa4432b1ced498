package hfiemu

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"github.com/tetratelabs/hfiemu/internal/buildoptions"
	"github.com/tetratelabs/hfiemu/internal/fault"
)

const (
	// ExitCodeReservationFailed is returned by Main when the reservation
	// failed and the driver was never run.
	ExitCodeReservationFailed = 70
	// ExitCodeFault is the exit code of a process terminated by a fatal fault.
	ExitCodeFault = fault.ExitCodeFault
)

// Driver runs the test suite and returns the process exit code. *testing.M
// implements Driver.
type Driver interface {
	Run() int
}

// DriverFunc adapts a function to Driver.
type DriverFunc func() int

// Run implements Driver.Run
func (f DriverFunc) Run() int {
	return f()
}

// defaultEmulationConfig is NewConfig with conflict reporting on.
func defaultEmulationConfig() *Config {
	return NewConfig().WithConflictReport(true)
}

var defaultEmulation = sync.OnceValue(func() *Emulation {
	e, err := New(defaultEmulationConfig())
	if err != nil {
		panic(errors.New("BUG: default config failed: " + err.Error()))
	}
	return e
})

// Default returns the process-wide Emulation, configured with NewConfig and
// conflict reporting on.
func Default() *Emulation {
	return defaultEmulation()
}

// ReserveLower4 initializes the process-wide Emulation.
func ReserveLower4() error {
	return Default().Initialize()
}

// Main reserves the low 4GiB, when built with the "hfi_emulation" tag, then
// runs driver and returns its exit code unchanged. If the reservation fails,
// driver never runs and Main returns ExitCodeReservationFailed.
//
// On linux a binary that isn't position independent is loaded inside the low
// 4GiB, so build it with -buildmode=pie:
//
//	go test -tags hfi_emulation -buildmode=pie ./...
func Main(driver Driver) int {
	return bootstrap(buildoptions.EmulationEnabled, builtPIE(), ReserveLower4, driver, os.Stderr)
}

// Main is like the package-level Main, for an Emulation with its own Config.
func (e *Emulation) Main(driver Driver) int {
	return bootstrap(e.emulate, builtPIE(), e.Initialize, driver, os.Stderr)
}

// bootstrap is separated out for the purpose of unit testing.
func bootstrap(emulate, pie bool, reserve func() error, driver Driver, stdErr io.Writer) int {
	if emulate {
		if err := reserve(); err != nil {
			fmt.Fprintf(stdErr, "hfiemu: not running sandboxed tests without isolation: %v\n", err)
			if !pie && occupied(err) {
				fmt.Fprintln(stdErr, "hfiemu: the executable may be loaded in the low 4GiB: rebuild it with -buildmode=pie")
			}
			return ExitCodeReservationFailed
		}
	}
	return driver.Run()
}

func occupied(err error) bool {
	var rerr *ReservationFailedError
	return errors.As(err, &rerr) && rerr.Reason == AlreadyOccupied
}

// builtPIE reports whether the running binary was built with -buildmode=pie.
func builtPIE() bool {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return false
	}
	return buildMode(info) == "pie"
}

func buildMode(info *debug.BuildInfo) string {
	for _, s := range info.Settings {
		if s.Key == "-buildmode" {
			return s.Value
		}
	}
	return "exe"
}
