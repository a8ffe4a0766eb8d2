package connection

import (
	fx "github.com/robotalks/backpack/pkg/framework"
)

// Device drives boot and time based transitions of a Machine.
type Device struct {
	fx.BaseDevice
	Machine *Machine
}

// NewDevice creates a Device.
func NewDevice(m *Machine) *Device {
	return &Device{Machine: m}
}

// Name implements Named.
func (d *Device) Name() string {
	return "connection"
}

// Start implements Device.
func (d *Device) Start(ctx fx.DeviceContext) fx.Duration {
	d.Machine.Boot(ctx.Millis())
	return d.next(ctx)
}

// Event implements Device. Another device may have started binding.
func (d *Device) Event(ctx fx.DeviceContext) fx.Duration {
	return d.next(ctx)
}

// Timeout implements Device.
func (d *Device) Timeout(ctx fx.DeviceContext) fx.Duration {
	return d.next(ctx)
}

func (d *Device) next(ctx fx.DeviceContext) fx.Duration {
	if ms := d.Machine.Tick(ctx.Millis()); ms >= 0 {
		return fx.Duration(ms)
	}
	return fx.DurationNever
}
