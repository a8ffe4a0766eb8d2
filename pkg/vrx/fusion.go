package vrx

import (
	"encoding/binary"

	"github.com/robotalks/backpack/pkg/crsf"
	"github.com/robotalks/backpack/pkg/msp"
)

// Fusion drives receivers taking a frequency over MSP, fire-and-forget.
type Fusion struct {
	link *msp.Link
}

// NewFusion creates the adapter.
func NewFusion(deps Deps) *Fusion {
	return &Fusion{link: msp.NewLink(deps.Port, deps.Clock)}
}

// Name implements Adapter.
func (a *Fusion) Name() string {
	return "fusion"
}

// Init implements Adapter.
func (a *Fusion) Init() error {
	return nil
}

// SendIndexCmd implements Adapter.
func (a *Fusion) SendIndexCmd(index uint8) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	var payload [2]byte
	binary.LittleEndian.PutUint16(payload[:], crsf.Frequency(index))
	return a.link.Send(msp.NewCommand(msp.FuncBackpackSetFrequency, payload[:]...))
}

// Do implements Adapter.
func (a *Fusion) Do(cmd Command) ([]byte, error) {
	if c, ok := cmd.(SetChannel); ok {
		return nil, a.SendIndexCmd(c.Index)
	}
	return nil, ErrUnsupported
}
