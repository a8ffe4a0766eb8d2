// Package hal abstracts the hardware the backpack talks to: the
// millisecond clock, GPIO lines and serial byte streams.
package hal

import (
	"io"
	"time"
)

// Clock is the monotonic millisecond clock with a blocking delay used by
// bit-banged protocols and bounded polling loops.
type Clock interface {
	Millis() uint32
	Delay(time.Duration)
}

// Pin is a single GPIO line.
type Pin interface {
	// Out drives the line as an output.
	Out(high bool) error
	// In switches the line to input.
	In() error
	// Read samples the line.
	Read() bool
}

// Port is a serial byte stream. Read never blocks: it returns 0 bytes when
// nothing is buffered.
type Port interface {
	io.ReadWriter
}

// NopPin ignores writes and reads low. Used for optional lines.
type NopPin struct{}

// Out implements Pin.
func (NopPin) Out(bool) error { return nil }

// In implements Pin.
func (NopPin) In() error { return nil }

// Read implements Pin.
func (NopPin) Read() bool { return false }
