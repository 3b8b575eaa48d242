// Package pool provides a shared pool of time.Timer instances for the
// blocking command wait path, avoiding a timer allocation per call.
package pool

import (
	"sync"
	"time"
)

var timerPool sync.Pool

// GetTimer returns a timer for the given duration d from the pool.
//
// Return back the timer to the pool with PutTimer.
func GetTimer(d time.Duration) *time.Timer {
	if v := timerPool.Get(); v != nil {
		t, _ := v.(*time.Timer) // the pool only ever holds *time.Timer
		if t.Reset(d) {
			// Timer was active, drain the channel to prevent a stale fire
			select {
			case <-t.C:
			default:
			}
		}
		return t
	}

	return time.NewTimer(d)
}

// PutTimer returns timer to the pool.
//
// t cannot be accessed after returning to the pool.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		// Drain t.C if it wasn't observed by the caller yet.
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}
