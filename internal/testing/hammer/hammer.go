// Package hammer runs a test body from many goroutines at once, to expose
// data races on paths that must be safe from any faulting goroutine.
package hammer

import (
	"runtime"
	"sync"
	"testing"
)

// Hammer invokes a test concurrently in P goroutines N times per goroutine.
//
// Here's an example:
//
//	P := 8               // max count of goroutines
//	N := 1000            // work per goroutine
//	if testing.Short() { // Adjust down if `-test.short`
//		P = 4
//		N = 100
//	}
//
//	hammer.NewHammer(t, P, N).Run(func(p, n int) {
//		// Classify something derived from p and n.
//	}, nil)
//
//	if t.Failed() {
//		return // At least one goroutine failed, so return now.
//	}
type Hammer interface {
	// Run invokes test concurrently in P goroutines, each looping N times.
	// onRunning, if set, runs after all goroutines started and before any
	// of them invokes test.
	Run(test func(p, n int), onRunning func())
}

// NewHammer returns a Hammer for P goroutines and N iterations per goroutine.
func NewHammer(t testing.TB, P, N int) Hammer {
	return &hammer{t: t, P: P, N: N}
}

type hammer struct {
	t testing.TB
	P int
	N int
}

// Run implements Hammer.Run
func (h *hammer) Run(test func(p, n int), onRunning func()) {
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(h.P / 2)) // Ensure goroutines have to switch cores.

	var started, release, finished sync.WaitGroup
	started.Add(h.P)
	release.Add(1)
	finished.Add(h.P)

	for p := 0; p < h.P; p++ {
		go func(p int) {
			defer finished.Done()
			defer func() {
				// require.XX fails via runtime.Goexit, anything else panics.
				if recovered := recover(); recovered != nil {
					h.t.Error(recovered)
				}
			}()
			started.Done()
			release.Wait()
			for n := 0; n < h.N; n++ {
				test(p, n)
			}
		}(p)
	}

	started.Wait()
	if onRunning != nil {
		onRunning()
	}
	release.Done()
	finished.Wait()
}
