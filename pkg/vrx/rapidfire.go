package vrx

import (
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/backpack/pkg/crsf"
	fx "github.com/robotalks/backpack/pkg/framework"
	"github.com/robotalks/backpack/pkg/hal"
)

// Rapidfire commands and directions.
const (
	rfCmdChannel byte = 'C'
	rfCmdBand    byte = 'B'
	rfCmdBeep    byte = 'S'

	rfDirSet   byte = '='
	rfDirQuery byte = '>'

	rfBeepRepeat = 3
	// rfHalfPeriod keeps the bit clock under 80 kHz.
	rfHalfPeriod = 13 * time.Microsecond
	// rfGapMs separates consecutive frames.
	rfGapMs    fx.Duration = 100
	rfInitHold             = 200 * time.Millisecond
)

// rfBands maps table bands A, B, E, F, R, L to the receiver's numbering.
var rfBands = [...]byte{5, 4, 3, 1, 2, 6}

// RapidfireFrame encodes [cmd, dir, len, checksum, payload...] where the
// checksum is the 8-bit sum of every other byte.
func RapidfireFrame(cmd, dir byte, payload ...byte) []byte {
	frame := make([]byte, 4+len(payload))
	frame[0], frame[1], frame[2] = cmd, dir, byte(len(payload))
	copy(frame[4:], payload)
	sum := cmd + dir + frame[2]
	for _, b := range payload {
		sum += b
	}
	frame[3] = sum
	return frame
}

// Rapidfire drives receivers accepting checksummed commands over a
// bit-banged serial link. Frames are queued and sent one per poll so
// the inter-frame gaps never block the loop.
type Rapidfire struct {
	clock hal.Clock
	sel   hal.Pin
	sck   hal.Pin
	data  hal.Pin

	queue    [][]byte
	sent     bool
	lastSent uint32
}

// NewRapidfire creates the adapter.
func NewRapidfire(deps Deps) *Rapidfire {
	return &Rapidfire{clock: deps.Clock, sel: deps.PinSelect, sck: deps.PinClock, data: deps.PinData}
}

// Name implements Adapter.
func (a *Rapidfire) Name() string {
	return "rapidfire"
}

// Init implements Adapter. The receiver needs all lines low then high
// to enable the command interface.
func (a *Rapidfire) Init() error {
	for _, level := range []bool{false, true} {
		for _, pin := range []hal.Pin{a.sel, a.sck, a.data} {
			if err := pin.Out(level); err != nil {
				return err
			}
		}
		a.clock.Delay(rfInitHold)
	}
	return nil
}

// SendIndexCmd implements Adapter.
func (a *Rapidfire) SendIndexCmd(index uint8) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	glog.V(2).Infof("rapidfire: tune %s%d", crsf.BandName(index), crsf.ChannelInBand(index))
	a.enqueue(RapidfireFrame(rfCmdBand, rfDirSet, rfBands[crsf.Band(index)-1]))
	a.enqueue(RapidfireFrame(rfCmdChannel, rfDirSet, crsf.ChannelInBand(index)))
	a.enqueueBeep()
	return nil
}

// Do implements Adapter.
func (a *Rapidfire) Do(cmd Command) ([]byte, error) {
	switch c := cmd.(type) {
	case SetChannel:
		return nil, a.SendIndexCmd(c.Index)
	case SetBand:
		if c.Band < 1 || int(c.Band) > len(rfBands) {
			return nil, ErrUnsupported
		}
		a.enqueue(RapidfireFrame(rfCmdBand, rfDirSet, rfBands[c.Band-1]))
		return nil, nil
	case Buzzer:
		a.enqueueBeep()
		return nil, nil
	}
	return nil, ErrUnsupported
}

// Pending returns the number of queued frames.
func (a *Rapidfire) Pending() int {
	return len(a.queue)
}

// Poll implements Poller.
func (a *Rapidfire) Poll(now uint32) fx.Duration {
	if len(a.queue) == 0 {
		return fx.DurationNever
	}
	if elapsed := now - a.lastSent; a.sent && elapsed < uint32(rfGapMs) {
		return rfGapMs - fx.Duration(elapsed)
	}
	a.sendFrame(a.queue[0])
	a.queue = a.queue[1:]
	a.sent, a.lastSent = true, now
	if len(a.queue) == 0 {
		return fx.DurationNever
	}
	return rfGapMs
}

func (a *Rapidfire) enqueue(frame []byte) {
	a.queue = append(a.queue, frame)
}

// enqueueBeep repeats the beep since receivers miss single ones.
func (a *Rapidfire) enqueueBeep() {
	for i := 0; i < rfBeepRepeat; i++ {
		a.enqueue(RapidfireFrame(rfCmdBeep, rfDirQuery))
	}
}

// sendFrame shifts bytes out most significant bit first while select is
// held low.
func (a *Rapidfire) sendFrame(frame []byte) {
	a.sel.Out(false)
	a.clock.Delay(rfHalfPeriod)
	for _, b := range frame {
		for i := 7; i >= 0; i-- {
			a.sck.Out(false)
			a.data.Out(b>>uint(i)&1 != 0)
			a.clock.Delay(rfHalfPeriod)
			a.sck.Out(true)
			a.clock.Delay(rfHalfPeriod)
		}
	}
	a.data.Out(false)
	a.sel.Out(true)
	a.clock.Delay(rfHalfPeriod)
}
