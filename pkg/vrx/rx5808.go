package vrx

import (
	"github.com/golang/glog"

	"github.com/robotalks/backpack/pkg/config"
	"github.com/robotalks/backpack/pkg/crsf"
)

// RX5808 drives register-programmed analog receiver modules.
type RX5808 struct {
	synth    rtc6705
	settings *config.Settings
}

// NewRX5808 creates the adapter.
func NewRX5808(deps Deps) *RX5808 {
	return &RX5808{
		synth:    rtc6705{clock: deps.Clock, sel: deps.PinSelect, sck: deps.PinClock, data: deps.PinData},
		settings: deps.Settings,
	}
}

// Name implements Adapter.
func (a *RX5808) Name() string {
	return "rx5808"
}

// Init implements Adapter.
func (a *RX5808) Init() error {
	return a.synth.init()
}

// Frequency returns the calibrated frequency for index.
func (a *RX5808) Frequency(index uint8) uint16 {
	f := crsf.Frequency(index)
	if a.settings != nil {
		f = uint16(int(f) + int(a.settings.FrequencyTrim()))
	}
	return f
}

// SendIndexCmd implements Adapter.
func (a *RX5808) SendIndexCmd(index uint8) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	f := a.Frequency(index)
	glog.V(2).Infof("rx5808: tune %s%d %d MHz", crsf.BandName(index), crsf.ChannelInBand(index), f)
	a.synth.writeWord(RegisterWord(rtcRegB, RegisterValue(f)))
	return nil
}

// Do implements Adapter.
func (a *RX5808) Do(cmd Command) ([]byte, error) {
	if c, ok := cmd.(SetChannel); ok {
		return nil, a.SendIndexCmd(c.Index)
	}
	return nil, ErrUnsupported
}
