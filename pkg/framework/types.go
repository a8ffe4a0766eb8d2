package framework

import (
	"context"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Duration is the number of milliseconds until a device wants its
// Timeout to be invoked again. Negative values are sentinels.
type Duration int32

// Predefined durations.
const (
	// DurationImmediately requests Timeout on the very next tick.
	DurationImmediately Duration = 0
	// DurationNever stops Timeout calls until the next Event.
	DurationNever Duration = -1
	// DurationIgnore keeps the existing schedule. Only meaningful
	// when returned from Event.
	DurationIgnore Duration = -2
)

// TimeSource provides the monotonic millisecond clock.
// The value wraps around; compare with Elapsed.
type TimeSource interface {
	Millis() uint32
}

// Elapsed returns the milliseconds passed from start to now,
// tolerating counter wraparound.
func Elapsed(now, start uint32) uint32 {
	return now - start
}

// DeviceContext provides the context of the current tick.
type DeviceContext interface {
	// Millis is the time sampled once at the beginning of the tick.
	TimeSource
	// Context retrieves context.Context.
	Context() context.Context
	// TriggerEvent requests Event on every device in the next tick.
	TriggerEvent()
}

// Device is a unit of peripheral logic driven by the Loop.
// All methods run on the loop goroutine and must never block
// beyond their own declared bounds.
type Device interface {
	// Initialize is called exactly once at boot. A device returning
	// an error is excluded from scheduling.
	Initialize(DeviceContext) error
	// Start is called once after all devices are initialized.
	Start(DeviceContext) Duration
	// Event is called in the tick after TriggerEvent.
	Event(DeviceContext) Duration
	// Timeout is called when the scheduled duration elapses.
	Timeout(DeviceContext) Duration
}

// BaseDevice provides no-op implementations to be embedded.
type BaseDevice struct{}

// Initialize implements Device.
func (BaseDevice) Initialize(DeviceContext) error { return nil }

// Start implements Device.
func (BaseDevice) Start(DeviceContext) Duration { return DurationNever }

// Event implements Device.
func (BaseDevice) Event(DeviceContext) Duration { return DurationIgnore }

// Timeout implements Device.
func (BaseDevice) Timeout(DeviceContext) Duration { return DurationNever }
