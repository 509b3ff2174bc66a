package utils

import "sync"

// A RollingAverage is the mean of the last n samples. It is safe for concurrent use.
type RollingAverage struct {
	mu     sync.Mutex
	data   []float64
	pos    int
	filled int
}

// NewRollingAverage returns an average over numSamples samples.
func NewRollingAverage(numSamples int) *RollingAverage {
	if numSamples < 1 {
		numSamples = 1
	}
	return &RollingAverage{data: make([]float64, numSamples)}
}

// NumSamples is the window size.
func (ra *RollingAverage) NumSamples() int {
	return len(ra.data)
}

// Add records a sample, evicting the oldest once the window is full.
func (ra *RollingAverage) Add(x float64) {
	ra.mu.Lock()
	defer ra.mu.Unlock()
	ra.data[ra.pos] = x
	ra.pos = (ra.pos + 1) % len(ra.data)
	if ra.filled < len(ra.data) {
		ra.filled++
	}
}

// Average returns the mean of the samples so far, or 0 before the first one.
func (ra *RollingAverage) Average() float64 {
	ra.mu.Lock()
	defer ra.mu.Unlock()
	if ra.filled == 0 {
		return 0
	}
	var sum float64
	for _, d := range ra.data[:ra.filled] {
		sum += d
	}
	return sum / float64(ra.filled)
}
