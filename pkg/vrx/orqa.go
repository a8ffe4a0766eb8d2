package vrx

import (
	"github.com/golang/glog"

	"github.com/robotalks/backpack/pkg/crsf"
	"github.com/robotalks/backpack/pkg/hal"
)

// GHST framing shares the CRSF layout and CRC.
const (
	ghstAddrGoggles  byte = 0x89
	ghstTypeVTXState byte = 0x2f
)

// ghstBands maps table bands A, B, E, F, R, L to the GHST band numbering.
var ghstBands = [...]byte{2, 3, 4, 0, 1, 5}

// GHSTStatus packs band and channel of index into one byte.
func GHSTStatus(index uint8) byte {
	return ghstBands[crsf.Band(index)-1]<<4 | (crsf.ChannelInBand(index) - 1)
}

// Orqa drives goggles taking the channel as a GHST frame, fire-and-forget.
type Orqa struct {
	port  hal.Port
	frame [crsf.FrameOverhead + 1]byte
}

// NewOrqa creates the adapter.
func NewOrqa(deps Deps) *Orqa {
	return &Orqa{port: deps.Port}
}

// Name implements Adapter.
func (a *Orqa) Name() string {
	return "orqa"
}

// Init implements Adapter.
func (a *Orqa) Init() error {
	return nil
}

// SendIndexCmd implements Adapter.
func (a *Orqa) SendIndexCmd(index uint8) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	a.frame[crsf.OffsetPayload] = GHSTStatus(index)
	crsf.SetHeaderAndCrc(a.frame[:], ghstTypeVTXState, 1, ghstAddrGoggles)
	glog.V(2).Infof("orqa: status 0x%02x", a.frame[crsf.OffsetPayload])
	_, err := a.port.Write(a.frame[:])
	return err
}

// Do implements Adapter.
func (a *Orqa) Do(cmd Command) ([]byte, error) {
	if c, ok := cmd.(SetChannel); ok {
		return nil, a.SendIndexCmd(c.Index)
	}
	return nil, ErrUnsupported
}
