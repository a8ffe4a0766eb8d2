package vrx

import (
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/backpack/pkg/config"
	fx "github.com/robotalks/backpack/pkg/framework"
)

const noPendingIndex int32 = -1

// Device schedules an Adapter on the loop: it applies requested channel
// changes and polls deferred adapter work.
type Device struct {
	fx.BaseDevice
	Adapter  Adapter
	Settings *config.Settings

	pending int32
	current uint8
}

// NewDevice wraps an adapter.
func NewDevice(a Adapter, settings *config.Settings) *Device {
	return &Device{Adapter: a, Settings: settings, pending: noPendingIndex, current: UnknownIndex}
}

// Name implements Named.
func (d *Device) Name() string {
	return "vrx." + d.Adapter.Name()
}

// Initialize implements Device.
func (d *Device) Initialize(fx.DeviceContext) error {
	return d.Adapter.Init()
}

// Start implements Device.
func (d *Device) Start(ctx fx.DeviceContext) fx.Duration {
	return d.poll(ctx)
}

// Event implements Device.
func (d *Device) Event(ctx fx.DeviceContext) fx.Duration {
	if index := atomic.SwapInt32(&d.pending, noPendingIndex); index != noPendingIndex {
		d.SetChannelIndex(uint8(index))
	}
	return d.poll(ctx)
}

// Timeout implements Device.
func (d *Device) Timeout(ctx fx.DeviceContext) fx.Duration {
	return d.poll(ctx)
}

// RequestChannel queues a channel change from any goroutine. It is
// applied on the next event.
func (d *Device) RequestChannel(index uint8) {
	atomic.StoreInt32(&d.pending, int32(index))
}

// Current returns the last successfully applied index.
func (d *Device) Current() uint8 {
	return d.current
}

// SetChannelIndex tunes immediately and remembers the selection. It
// supersedes a request not yet applied.
func (d *Device) SetChannelIndex(index uint8) error {
	atomic.StoreInt32(&d.pending, noPendingIndex)
	if err := d.Adapter.SendIndexCmd(index); err != nil {
		glog.Warningf("%s: set channel %d failed: %v", d.Name(), index, err)
		return err
	}
	d.current = index
	if d.Settings != nil && d.Settings.ChannelIndex() != index {
		d.Settings.SetChannelIndex(index)
		if err := d.Settings.Commit(); err != nil {
			glog.Errorf("commit settings failed: %v", err)
		}
	}
	return nil
}

// Do executes cmd on the adapter. Adapters with deferred work are
// rescheduled through an event.
func (d *Device) Do(ctx fx.DeviceContext, cmd Command) ([]byte, error) {
	var reply []byte
	var err error
	if c, ok := cmd.(SetChannel); ok {
		err = d.SetChannelIndex(c.Index)
	} else {
		reply, err = d.Adapter.Do(cmd)
	}
	if _, ok := d.Adapter.(Poller); ok && ctx != nil {
		ctx.TriggerEvent()
	}
	return reply, err
}

func (d *Device) poll(ctx fx.DeviceContext) fx.Duration {
	if p, ok := d.Adapter.(Poller); ok {
		return p.Poll(ctx.Millis())
	}
	return fx.DurationNever
}
