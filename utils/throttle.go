package utils

import "sync"

// A Throttle lets the first event through and then every nth, so a condition that repeats
// every control period is reported without flooding the log.
type Throttle struct {
	every uint64

	mu     sync.Mutex
	count  uint64
	last   uint64
	active bool
}

// NewThrottle returns a throttle that allows one of every n events. n below 1 allows all.
func NewThrottle(n uint64) *Throttle {
	if n < 1 {
		n = 1
	}
	return &Throttle{every: n}
}

// Allow records an event. It reports whether to report it and how many events were
// suppressed since the last reported one.
func (t *Throttle) Allow() (bool, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	if !t.active || t.count-t.last >= t.every {
		suppressed := uint64(0)
		if t.active {
			suppressed = t.count - t.last - 1
		}
		t.active = true
		t.last = t.count
		return true, suppressed
	}
	return false, 0
}

// Reset forgets past events, so the next one is reported.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
	t.count = 0
	t.last = 0
}
