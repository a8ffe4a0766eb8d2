package vrx

import (
	"github.com/golang/glog"

	"github.com/robotalks/backpack/pkg/crsf"
)

// SteadyView drives diversity receivers built on the same synthesizer.
// The current register is read back first and left alone when unchanged,
// since a rewrite makes the receiver rescan.
type SteadyView struct {
	synth rtc6705
}

// NewSteadyView creates the adapter.
func NewSteadyView(deps Deps) *SteadyView {
	return &SteadyView{
		synth: rtc6705{clock: deps.Clock, sel: deps.PinSelect, sck: deps.PinClock, data: deps.PinData},
	}
}

// Name implements Adapter.
func (a *SteadyView) Name() string {
	return "steadyview"
}

// Init implements Adapter.
func (a *SteadyView) Init() error {
	return a.synth.init()
}

// SendIndexCmd implements Adapter.
func (a *SteadyView) SendIndexCmd(index uint8) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	want := RegisterValue(crsf.Frequency(index))
	if cur := a.synth.readRegister(rtcRegB); cur == want {
		glog.V(2).Infof("steadyview: already on %s%d", crsf.BandName(index), crsf.ChannelInBand(index))
		return nil
	}
	a.synth.writeWord(RegisterWord(rtcRegA, rtcAutoSearchOff))
	a.synth.writeWord(RegisterWord(rtcRegB, want))
	return nil
}

// Do implements Adapter.
func (a *SteadyView) Do(cmd Command) ([]byte, error) {
	if c, ok := cmd.(SetChannel); ok {
		return nil, a.SendIndexCmd(c.Index)
	}
	return nil, ErrUnsupported
}
