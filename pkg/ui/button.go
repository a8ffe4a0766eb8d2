// Package ui drives the local button and status LED.
package ui

import (
	fx "github.com/robotalks/backpack/pkg/framework"
	"github.com/robotalks/backpack/pkg/hal"
)

// Default button timing.
const (
	DefaultLongPressMs = 1000
	DefaultPollMs      = 20
)

// Button samples an input line and reports a long press once per hold.
type Button struct {
	fx.BaseDevice
	Pin         hal.Pin
	ActiveLow   bool
	LongPressMs uint32
	PollMs      fx.Duration
	OnLongPress func(now uint32)

	pressed    bool
	pressStart uint32
	fired      bool
}

// NewButton creates a Button.
func NewButton(pin hal.Pin, activeLow bool, onLongPress func(now uint32)) *Button {
	return &Button{
		Pin:         pin,
		ActiveLow:   activeLow,
		LongPressMs: DefaultLongPressMs,
		PollMs:      DefaultPollMs,
		OnLongPress: onLongPress,
	}
}

// Name implements Named.
func (b *Button) Name() string {
	return "button"
}

// Initialize implements Device.
func (b *Button) Initialize(fx.DeviceContext) error {
	return b.Pin.In()
}

// Start implements Device.
func (b *Button) Start(fx.DeviceContext) fx.Duration {
	return b.PollMs
}

// Timeout implements Device.
func (b *Button) Timeout(ctx fx.DeviceContext) fx.Duration {
	now := ctx.Millis()
	if b.Pin.Read() == b.ActiveLow {
		b.pressed = false
		return b.PollMs
	}
	if !b.pressed {
		b.pressed, b.pressStart, b.fired = true, now, false
		return b.PollMs
	}
	if !b.fired && fx.Elapsed(now, b.pressStart) >= b.LongPressMs {
		b.fired = true
		if b.OnLongPress != nil {
			b.OnLongPress(now)
		}
		ctx.TriggerEvent()
	}
	return b.PollMs
}
