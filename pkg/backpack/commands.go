package backpack

import (
	"encoding/binary"

	"github.com/golang/glog"

	"github.com/robotalks/backpack/pkg/config"
	"github.com/robotalks/backpack/pkg/connection"
	"github.com/robotalks/backpack/pkg/crsf"
	fx "github.com/robotalks/backpack/pkg/framework"
	"github.com/robotalks/backpack/pkg/msp"
	"github.com/robotalks/backpack/pkg/transport"
	"github.com/robotalks/backpack/pkg/vrx"
)

// Queue depths between transport goroutines and the loop.
const (
	ReceiveQueueSize = 16
	postQueueSize    = 8
)

type envelope struct {
	src  config.Address
	data []byte
}

// CommandDevice decodes commands arriving over the peer link and applies
// them on the loop.
type CommandDevice struct {
	fx.BaseDevice

	app      *App
	link     transport.Link
	rebooter Rebooter
	wifi     WifiService

	rxCh    chan envelope
	postCh  chan func(fx.DeviceContext)
	wake    func()
	codec   msp.Codec
	restore bool
}

func newCommandDevice(app *App, opts Options) *CommandDevice {
	d := &CommandDevice{
		app:      app,
		link:     opts.Link,
		rebooter: opts.Rebooter,
		wifi:     opts.Wifi,
		rxCh:     make(chan envelope, ReceiveQueueSize),
		postCh:   make(chan func(fx.DeviceContext), postQueueSize),
		wake:     app.Loop.TriggerEvent,
	}
	if d.link != nil {
		d.link.SetReceiver(d.receive)
	}
	return d
}

// Name implements Named.
func (d *CommandDevice) Name() string {
	return "commands"
}

// Event implements Device.
func (d *CommandDevice) Event(ctx fx.DeviceContext) fx.Duration {
	if d.restore && d.app.Machine.State() == connection.StateRunning {
		d.restore = false
		d.restoreChannel()
	}
	for {
		select {
		case fn := <-d.postCh:
			fn(ctx)
		case env := <-d.rxCh:
			d.handleEnvelope(ctx, env)
		default:
			return fx.DurationIgnore
		}
	}
}

// receive is the transport.Receiver. It runs on the transport goroutine.
func (d *CommandDevice) receive(src config.Address, data []byte) {
	select {
	case d.rxCh <- envelope{src: src, data: append([]byte(nil), data...)}:
		d.wake()
	default:
		glog.Warningf("receive queue full, dropped %d bytes from %s", len(data), src)
	}
}

// stateChanged runs on the loop goroutine for every connection
// transition, whatever caused it.
func (d *CommandDevice) stateChanged(from, to connection.State) {
	switch to {
	case connection.StateRunning:
		d.restore = true
	case connection.StateWifiUpdate:
		d.startWifi()
	}
}

// restoreChannel tunes the receiver to the persisted channel. The receiver
// device follows the command device, so it applies the request in the
// same event pass.
func (d *CommandDevice) restoreChannel() {
	if d.app.VRX == nil {
		return
	}
	if index := d.app.Settings.ChannelIndex(); crsf.ValidIndex(index) {
		glog.V(1).Infof("restore channel %d", index)
		d.app.VRX.RequestChannel(index)
	}
}

func (d *CommandDevice) post(fn func(fx.DeviceContext)) error {
	select {
	case d.postCh <- fn:
		d.wake()
		return nil
	default:
		glog.Warning("post queue full, request dropped")
		return ErrQueueFull
	}
}

func (d *CommandDevice) handleEnvelope(ctx fx.DeviceContext, env envelope) {
	if !d.app.Machine.AcceptsSender(env.src) {
		glog.V(2).Infof("ignore %d bytes from unpaired %s", len(env.data), env.src)
		return
	}
	d.codec.Reset()
	for _, pkt := range d.codec.Decode(env.data) {
		d.Dispatch(ctx, env.src, pkt)
	}
}

// Dispatch applies one decoded packet from src.
func (d *CommandDevice) Dispatch(ctx fx.DeviceContext, src config.Address, pkt *msp.Packet) {
	if pkt.Direction != msp.DirCommand {
		return
	}
	m := d.app.Machine
	if !m.Accepts(pkt.Function) {
		glog.V(2).Infof("ignore %s while %s", pkt, m.State())
		return
	}
	glog.V(3).Infof("CMD %s from %s", pkt, src)
	payload := pkt.Payload
	switch pkt.Function {
	case msp.FuncELRSBind:
		if len(payload) < config.AddressLen {
			glog.Warningf("short bind payload (%d bytes)", len(payload))
			return
		}
		var addr config.Address
		copy(addr[:], payload)
		m.CompleteBinding(addr)
	case msp.FuncBackpackSetMode:
		if len(payload) < 1 {
			return
		}
		switch payload[0] {
		case msp.ModeBinding:
			m.EnterBinding(ctx.Millis())
		case msp.ModeWifi:
			m.EnterWifi()
		default:
			glog.Warningf("unknown mode %q", payload[0])
		}
	case msp.FuncELRSSetVRXBackpackWifiMode:
		m.EnterWifi()
	case msp.FuncELRSGetBackpackVersion:
		d.reply(src, msp.NewResponse(pkt.Function, []byte(Version)...))
	case msp.FuncSetVTXConfig:
		if v, ok := le16(payload); ok {
			if v < crsf.ChannelCount {
				d.setChannel(ctx, uint8(v))
			} else {
				d.setChannel(ctx, crsf.IndexOf(v))
			}
		}
	case msp.FuncBackpackSetChannelIndex:
		if len(payload) >= 1 {
			d.setChannel(ctx, payload[0])
		}
	case msp.FuncBackpackSetFrequency:
		if v, ok := le16(payload); ok {
			d.setChannel(ctx, crsf.IndexOf(v))
		}
	case msp.FuncBackpackGetChannelIndex:
		d.reply(src, msp.NewResponse(pkt.Function, d.currentIndex()))
	case msp.FuncBackpackGetFrequency:
		freq := crsf.Frequency(d.currentIndex())
		d.reply(src, msp.NewResponse(pkt.Function, byte(freq), byte(freq>>8)))
	case msp.FuncBackpackSetRecordingState:
		d.setRecording(ctx, payload)
	case msp.FuncBackpackGetRecordingState:
		d.reply(src, msp.NewResponse(pkt.Function, boolByte(d.app.Settings.RecordingEnabled())))
	case msp.FuncBackpackGetRSSI:
		d.query(ctx, src, pkt.Function, vrx.GetRSSI{})
	case msp.FuncBackpackGetBatteryVoltage:
		d.query(ctx, src, pkt.Function, vrx.GetVoltage{})
	case msp.FuncBackpackGetFirmware:
		d.query(ctx, src, pkt.Function, vrx.GetFirmwareVersion{})
	case msp.FuncBackpackSetBuzzer:
		d.do(ctx, vrx.Buzzer{})
	case msp.FuncBackpackSetOSDElement:
		d.do(ctx, vrx.SetOSDElement{Payload: payload})
	default:
		glog.V(2).Infof("unhandled %s", pkt)
	}
}

func (d *CommandDevice) startWifi() {
	if d.wifi == nil {
		glog.Warning("wifi update requested, no wifi service")
		return
	}
	if err := d.wifi.StartWifi(); err != nil {
		glog.Errorf("start wifi failed: %v", err)
	}
}

func (d *CommandDevice) reboot() {
	if d.rebooter == nil {
		glog.Warning("reboot requested, no rebooter")
		return
	}
	if err := d.rebooter.Reboot(); err != nil {
		glog.Errorf("reboot failed: %v", err)
	}
}

func (d *CommandDevice) setChannel(ctx fx.DeviceContext, index uint8) {
	if !crsf.ValidIndex(index) {
		glog.Warningf("ignore channel index %d", index)
		return
	}
	d.do(ctx, vrx.SetChannel{Index: index})
}

func (d *CommandDevice) setRecording(ctx fx.DeviceContext, payload []byte) {
	if len(payload) < 1 {
		return
	}
	cmd := vrx.SetRecordingState{Enabled: payload[0] != 0}
	if v, ok := le16(payload[1:]); ok {
		cmd.DelaySeconds = v
	}
	s := d.app.Settings
	if s.RecordingEnabled() != cmd.Enabled {
		s.SetRecordingEnabled(cmd.Enabled)
		if err := s.Commit(); err != nil {
			glog.Errorf("commit settings failed: %v", err)
		}
	}
	d.do(ctx, cmd)
}

func (d *CommandDevice) do(ctx fx.DeviceContext, cmd vrx.Command) ([]byte, error) {
	if d.app.VRX == nil {
		return nil, ErrNoReceiver
	}
	reply, err := d.app.VRX.Do(ctx, cmd)
	if err != nil {
		glog.Warningf("%s: %T: %v", d.app.VRX.Name(), cmd, err)
	}
	return reply, err
}

func (d *CommandDevice) query(ctx fx.DeviceContext, src config.Address, fn uint16, cmd vrx.Command) {
	reply, err := d.do(ctx, cmd)
	if err != nil {
		d.reply(src, &msp.Packet{Direction: msp.DirError, Function: fn})
		return
	}
	d.reply(src, msp.NewResponse(fn, reply...))
}

func (d *CommandDevice) currentIndex() uint8 {
	if d.app.VRX != nil {
		if index := d.app.VRX.Current(); crsf.ValidIndex(index) {
			return index
		}
	}
	return d.app.Settings.ChannelIndex()
}

func (d *CommandDevice) reply(dst config.Address, pkt *msp.Packet) {
	if d.link == nil {
		return
	}
	if err := d.link.Send(dst, pkt.Bytes()); err != nil {
		glog.Warningf("reply %s to %s: %v", pkt, dst, err)
	}
}

func le16(b []byte) (uint16, bool) {
	if len(b) < 2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b), true
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
