// Package leakcheck detects goroutines left running by a test.
package leakcheck

import (
	"runtime"
	"testing"
	"time"
)

// Detector compares the goroutine count at the end of a test with the
// count recorded at its start
type Detector struct {
	t              testing.TB
	initialCount   int
	allowedGrowth  int
	checkInterval  time.Duration
	stabilizeDelay time.Duration
}

// New creates a detector for t
func New(t testing.TB) *Detector {
	return &Detector{
		t:              t,
		checkInterval:  50 * time.Millisecond,
		stabilizeDelay: 100 * time.Millisecond,
	}
}

// AllowGrowth sets the number of extra goroutines tolerated at the end
func (d *Detector) AllowGrowth(n int) *Detector {
	d.allowedGrowth = n
	return d
}

// StabilizeDelay sets how long to wait before each count
func (d *Detector) StabilizeDelay(delay time.Duration) *Detector {
	d.stabilizeDelay = delay
	return d
}

// Start records the initial goroutine count and registers Check to run
// when the test finishes
func (d *Detector) Start() {
	time.Sleep(d.stabilizeDelay)
	d.initialCount = runtime.NumGoroutine()
	d.t.Cleanup(d.Check)
}

// Check fails the test if the goroutine count grew beyond the allowance.
// The count is sampled until it settles or the deadline passes, since
// goroutines may still be unwinding.
func (d *Detector) Check() {
	d.t.Helper()

	deadline := time.Now().Add(d.stabilizeDelay + 10*d.checkInterval)
	finalCount := runtime.NumGoroutine()
	for finalCount-d.initialCount > d.allowedGrowth && time.Now().Before(deadline) {
		time.Sleep(d.checkInterval)
		finalCount = runtime.NumGoroutine()
	}

	leaked := finalCount - d.initialCount
	if leaked > d.allowedGrowth {
		buf := make([]byte, 1<<20)
		stackLen := runtime.Stack(buf, true)
		d.t.Errorf("goroutine leak: started with %d, ended with %d (leaked %d, allowed %d)\n%s",
			d.initialCount, finalCount, leaked, d.allowedGrowth, buf[:stackLen])
	}
}
