package ui

import (
	"github.com/robotalks/backpack/pkg/connection"
	fx "github.com/robotalks/backpack/pkg/framework"
	"github.com/robotalks/backpack/pkg/hal"
)

// Pattern is a blink pattern. A zero Period holds Steady.
type Pattern struct {
	Steady bool
	Period fx.Duration
}

// Patterns maps connection states to LED patterns.
var Patterns = map[connection.State]Pattern{
	connection.StateStarting:   {Steady: false},
	connection.StateRunning:    {Steady: true},
	connection.StateBinding:    {Period: 100},
	connection.StateWifiUpdate: {Period: 500},
}

// LED shows the connection state. It must be added after the devices
// changing the state so it observes them in the same tick.
type LED struct {
	fx.BaseDevice
	Pin   hal.Pin
	State func() connection.State

	shown connection.State
	level bool
	valid bool
}

// NewLED creates a LED.
func NewLED(pin hal.Pin, state func() connection.State) *LED {
	return &LED{Pin: pin, State: state}
}

// Name implements Named.
func (l *LED) Name() string {
	return "led"
}

// Start implements Device.
func (l *LED) Start(fx.DeviceContext) fx.Duration {
	return l.show()
}

// Event implements Device.
func (l *LED) Event(fx.DeviceContext) fx.Duration {
	if l.valid && l.State() == l.shown {
		return fx.DurationIgnore
	}
	return l.show()
}

// Timeout implements Device.
func (l *LED) Timeout(fx.DeviceContext) fx.Duration {
	if l.State() != l.shown {
		return l.show()
	}
	p := Patterns[l.shown]
	if p.Period <= 0 {
		return fx.DurationNever
	}
	l.drive(!l.level)
	return p.Period
}

func (l *LED) show() fx.Duration {
	l.shown, l.valid = l.State(), true
	p := Patterns[l.shown]
	if p.Period <= 0 {
		l.drive(p.Steady)
		return fx.DurationNever
	}
	l.drive(true)
	return p.Period
}

func (l *LED) drive(level bool) {
	l.level = level
	l.Pin.Out(level)
}
