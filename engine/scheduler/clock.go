package scheduler

import "time"

// Clock is the monotonic time source that drives animation. It is never reset.
type Clock interface {
	// Elapsed returns the time since the clock started.
	Elapsed() time.Duration
}

type monotonicClock struct {
	start time.Time
}

var _ Clock = &monotonicClock{}

// NewClock creates a Clock started now. It reads the monotonic reading of time.Now, so wall
// clock adjustments do not affect it.
func NewClock() Clock {
	return &monotonicClock{start: time.Now()}
}

func (c *monotonicClock) Elapsed() time.Duration {
	return time.Since(c.start)
}
