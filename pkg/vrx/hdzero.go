package vrx

import (
	"fmt"

	"github.com/golang/glog"

	fx "github.com/robotalks/backpack/pkg/framework"
	"github.com/robotalks/backpack/pkg/msp"
)

const (
	// hdzeroRounds bounds every set-then-confirm exchange.
	hdzeroRounds = 3
	// DefaultResponseTimeoutMs bounds one request/response round.
	DefaultResponseTimeoutMs uint32 = 50
)

// HDZero drives digital goggles speaking MSP over serial. Every setting
// is confirmed by reading it back.
type HDZero struct {
	link    *msp.Link
	timeout uint32

	recPending bool
	recState   bool
	recStart   uint32
	recDelayMs uint32
}

// NewHDZero creates the adapter.
func NewHDZero(deps Deps) *HDZero {
	link := msp.NewLink(deps.Port, deps.Clock)
	link.Codec.SkipChecksum = deps.Config.LenientChecksum
	timeout := deps.Config.ResponseTimeoutMs
	if timeout == 0 {
		timeout = DefaultResponseTimeoutMs
	}
	return &HDZero{link: link, timeout: timeout}
}

// Name implements Adapter.
func (a *HDZero) Name() string {
	return "hdzero"
}

// Init implements Adapter.
func (a *HDZero) Init() error {
	return nil
}

// SendIndexCmd implements Adapter.
func (a *HDZero) SendIndexCmd(index uint8) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	if got := a.SetChannelIndex(index); got != index {
		return fmt.Errorf("hdzero: channel %d: %w", index, ErrNotConfirmed)
	}
	return nil
}

// SetChannelIndex sets the channel and reads it back, up to three rounds.
// It returns the confirmed index or UnknownIndex.
func (a *HDZero) SetChannelIndex(index uint8) uint8 {
	for round := 1; round <= hdzeroRounds; round++ {
		if err := a.link.Send(msp.NewCommand(msp.FuncBackpackSetChannelIndex, index)); err != nil {
			glog.Warningf("hdzero: send channel failed: %v", err)
			continue
		}
		got := a.GetChannelIndex()
		if got == index {
			return got
		}
		glog.V(2).Infof("hdzero: round %d reported channel %d, want %d", round, got, index)
	}
	glog.Warningf("hdzero: channel %d not confirmed", index)
	return UnknownIndex
}

// GetChannelIndex queries the current channel, UnknownIndex on timeout.
func (a *HDZero) GetChannelIndex() uint8 {
	resp, err := a.link.AwaitPacket(msp.NewCommand(msp.FuncBackpackGetChannelIndex), a.timeout)
	if err != nil || len(resp.Payload) < 1 {
		return UnknownIndex
	}
	return resp.Payload[0]
}

// GetRecordingState queries DVR state.
func (a *HDZero) GetRecordingState() (bool, error) {
	resp, err := a.link.AwaitPacket(msp.NewCommand(msp.FuncBackpackGetRecordingState), a.timeout)
	if err != nil {
		return false, err
	}
	if len(resp.Payload) < 1 {
		return false, ErrNotConfirmed
	}
	return resp.Payload[0] != 0, nil
}

// SetRecordingState sets DVR state and reads it back, up to three rounds.
func (a *HDZero) SetRecordingState(enabled bool) error {
	var state byte
	if enabled {
		state = 1
	}
	for round := 1; round <= hdzeroRounds; round++ {
		if err := a.link.Send(msp.NewCommand(msp.FuncBackpackSetRecordingState, state, 0, 0)); err != nil {
			glog.Warningf("hdzero: send recording state failed: %v", err)
			continue
		}
		if got, err := a.GetRecordingState(); err == nil && got == enabled {
			return nil
		}
	}
	return fmt.Errorf("hdzero: recording %v: %w", enabled, ErrNotConfirmed)
}

// ScheduleRecordingState defers SetRecordingState by delayMs from now.
func (a *HDZero) ScheduleRecordingState(enabled bool, now, delayMs uint32) {
	a.recPending, a.recState = true, enabled
	a.recStart, a.recDelayMs = now, delayMs
}

// Poll implements Poller.
func (a *HDZero) Poll(now uint32) fx.Duration {
	if !a.recPending {
		return fx.DurationNever
	}
	if elapsed := now - a.recStart; elapsed < a.recDelayMs {
		return fx.Duration(a.recDelayMs - elapsed)
	}
	a.recPending = false
	if err := a.SetRecordingState(a.recState); err != nil {
		glog.Warning(err)
	}
	return fx.DurationNever
}

// Do implements Adapter.
func (a *HDZero) Do(cmd Command) ([]byte, error) {
	switch c := cmd.(type) {
	case SetChannel:
		return nil, a.SendIndexCmd(c.Index)
	case SetRecordingState:
		if c.DelaySeconds == 0 {
			a.recPending = false
			return nil, a.SetRecordingState(c.Enabled)
		}
		a.ScheduleRecordingState(c.Enabled, a.link.Clock.Millis(), uint32(c.DelaySeconds)*1000)
		return nil, nil
	case Buzzer:
		return nil, a.link.Send(msp.NewCommand(msp.FuncBackpackSetBuzzer))
	case SetOSDElement:
		return nil, a.link.Send(msp.NewCommand(msp.FuncBackpackSetOSDElement, c.Payload...))
	case GetRSSI:
		return a.query(msp.FuncBackpackGetRSSI)
	case GetVoltage:
		return a.query(msp.FuncBackpackGetBatteryVoltage)
	case GetFirmwareVersion:
		return a.query(msp.FuncBackpackGetFirmware)
	}
	return nil, ErrUnsupported
}

func (a *HDZero) query(fn uint16) ([]byte, error) {
	resp, err := a.link.AwaitPacket(msp.NewCommand(fn), a.timeout)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}
