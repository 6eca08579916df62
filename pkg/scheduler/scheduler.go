// Package scheduler provides repeating background tasks with explicit
// cancellation handles, so a host can start and stop polling
// deterministically instead of leaning on implicit lifecycle hooks.
package scheduler

import (
	"sync"
	"time"
)

// Task is a repeating job. Runs are fire-and-forget: an in-flight run is
// not cancelled by the next tick, and overlap is tolerated because the
// jobs scheduled here are idempotent reads.
type Task struct {
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Every starts fn immediately and then once per interval, until Stop.
func Every(interval time.Duration, fn func()) *Task {
	t := &Task{stopCh: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		go fn()
		for {
			select {
			case <-ticker.C:
				go fn()
			case <-t.stopCh:
				return
			}
		}
	}()

	return t
}

// Stop cancels future runs. Safe to call more than once; an in-flight
// run finishes on its own.
func (t *Task) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}
