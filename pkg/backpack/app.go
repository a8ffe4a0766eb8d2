// Package backpack wires the connection state machine, the peer link,
// the receiver backend and the co-processor flasher onto one loop.
package backpack

import (
	"errors"

	"github.com/golang/glog"

	"github.com/robotalks/backpack/pkg/config"
	"github.com/robotalks/backpack/pkg/connection"
	"github.com/robotalks/backpack/pkg/crsf"
	fx "github.com/robotalks/backpack/pkg/framework"
	"github.com/robotalks/backpack/pkg/hal"
	"github.com/robotalks/backpack/pkg/stk500"
	"github.com/robotalks/backpack/pkg/transport"
	"github.com/robotalks/backpack/pkg/ui"
	"github.com/robotalks/backpack/pkg/vrx"
)

// Version is reported to peers asking for the backpack version.
var Version = "1.0.0"

var (
	// ErrNoReceiver is returned when no receiver backend is configured.
	ErrNoReceiver = errors.New("no receiver configured")
	// ErrNoFlasher is returned when no co-processor is configured.
	ErrNoFlasher = errors.New("no flasher configured")
	// ErrQueueFull is returned when too many requests wait for the loop.
	ErrQueueFull = errors.New("request queue full")
)

// Rebooter restarts the backpack.
type Rebooter interface {
	Reboot() error
}

// RebootFunc adapts a func to Rebooter.
type RebootFunc func() error

// Reboot implements Rebooter.
func (f RebootFunc) Reboot() error {
	return f()
}

// WifiService brings up the Wi-Fi update service.
type WifiService interface {
	StartWifi() error
}

// Options assembles an App. Every field except Settings is optional.
type Options struct {
	Settings *config.Settings
	Link     transport.Link
	Adapter  vrx.Adapter
	Flasher  *stk500.Flasher
	Rebooter Rebooter
	Wifi     WifiService

	Button          hal.Pin
	ButtonActiveLow bool
	LED             hal.Pin
}

// App is the backpack.
type App struct {
	Loop     *fx.Loop
	Machine  *connection.Machine
	Settings *config.Settings
	VRX      *vrx.Device
	Flasher  *stk500.Flasher
	Commands *CommandDevice
}

// New builds the App and adds its devices to a new loop in dependency
// order. The LED goes last so it shows changes made within the tick.
func New(clock fx.TimeSource, opts Options) *App {
	app := &App{
		Loop:     fx.NewLoop(clock),
		Machine:  connection.NewMachine(opts.Settings),
		Settings: opts.Settings,
		Flasher:  opts.Flasher,
	}
	app.Machine.OnChange = func(from, to connection.State) {
		app.Commands.stateChanged(from, to)
		app.Loop.TriggerEvent()
	}
	if opts.Adapter != nil {
		app.VRX = vrx.NewDevice(opts.Adapter, opts.Settings)
	}
	app.Commands = newCommandDevice(app, opts)

	app.Loop.AddDevice(connection.NewDevice(app.Machine), app.Commands)
	if app.VRX != nil {
		app.Loop.AddDevice(app.VRX)
	}
	if app.Flasher != nil {
		app.Loop.AddDevice(app.Flasher)
	}
	if opts.Button != nil {
		app.Loop.AddDevice(ui.NewButton(opts.Button, opts.ButtonActiveLow, app.longPress))
	}
	if opts.LED != nil {
		app.Loop.AddDevice(ui.NewLED(opts.LED, app.Machine.State))
	}
	if r, ok := opts.Link.(fx.Runnable); ok {
		app.Loop.AddRunnable(r)
	}
	return app
}

// RequestWifiReboot arranges for the next boot to enter Wi-Fi update
// mode and reboots. Safe to call from any goroutine.
func (a *App) RequestWifiReboot() error {
	return a.Commands.post(func(fx.DeviceContext) {
		a.Settings.SetStartWifiOnBoot(true)
		if err := a.Settings.Commit(); err != nil {
			glog.Errorf("commit settings failed: %v", err)
		}
		a.Commands.reboot()
	})
}

// SetChannelIndex tunes the receiver on the next tick. Safe to call from
// any goroutine.
func (a *App) SetChannelIndex(index uint8) error {
	if a.VRX == nil {
		return ErrNoReceiver
	}
	if !crsf.ValidIndex(index) {
		return &vrx.InvalidIndexError{Index: index}
	}
	a.VRX.RequestChannel(index)
	a.Loop.TriggerEvent()
	return nil
}

// Flash arms a firmware update of the co-processor on the next tick.
// The returned channel receives the outcome of arming. Safe to call from
// any goroutine.
func (a *App) Flash(image []byte, startAddress uint32) <-chan error {
	errCh := make(chan error, 1)
	if a.Flasher == nil {
		errCh <- ErrNoFlasher
		return errCh
	}
	if err := a.Commands.post(func(fx.DeviceContext) {
		errCh <- a.Flasher.Begin(image, startAddress)
	}); err != nil {
		errCh <- err
	}
	return errCh
}

func (a *App) longPress(now uint32) {
	if a.Machine.EnterBinding(now) {
		glog.Info("long press, binding")
	}
}
