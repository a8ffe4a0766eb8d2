package hal

import (
	"time"
)

// HostClock counts milliseconds since it was created.
type HostClock struct {
	start time.Time
}

// NewHostClock creates a HostClock.
func NewHostClock() *HostClock {
	return &HostClock{start: time.Now()}
}

// Millis implements Clock.
func (c *HostClock) Millis() uint32 {
	return uint32(time.Since(c.start) / time.Millisecond)
}

// Delay implements Clock. Sub-millisecond delays spin because the
// scheduler granularity of time.Sleep is too coarse for bit periods.
func (c *HostClock) Delay(d time.Duration) {
	if d >= time.Millisecond {
		time.Sleep(d)
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}
