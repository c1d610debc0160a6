package timeutil

import (
	"sync"
	"time"
)

var (
	mu  sync.RWMutex
	now = time.Now
)

// Now returns the current time from the installed clock.
func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return now()
}

// SetClock replaces the clock and returns a func that restores the previous one.
func SetClock(fn func() time.Time) (restore func()) {
	mu.Lock()
	prev := now
	now = fn
	mu.Unlock()
	return func() {
		mu.Lock()
		now = prev
		mu.Unlock()
	}
}

// Fixed returns a clock that always reports t.
func Fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
