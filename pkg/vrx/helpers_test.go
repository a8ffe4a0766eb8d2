package vrx

import (
	"github.com/robotalks/backpack/pkg/hal/sim"
	"github.com/robotalks/backpack/pkg/msp"
)

// fakeSynth decodes the three wire synthesizer protocol from pin activity.
type fakeSynth struct {
	sel, sck, data *sim.Pin

	regs   map[byte]uint32
	writes []uint32
	reads  int

	bits   uint32
	nbits  uint
	outBit bool
}

func newFakeSynth() *fakeSynth {
	f := &fakeSynth{sel: &sim.Pin{}, sck: &sim.Pin{}, data: &sim.Pin{}, regs: make(map[byte]uint32)}
	f.sel.OnOut = func(high bool) {
		if !high {
			f.bits, f.nbits = 0, 0
			return
		}
		if f.nbits == rtcWordBits {
			if f.bits>>4&1 == rtcWrite {
				f.regs[byte(f.bits&0x0f)] = f.bits >> 5
				f.writes = append(f.writes, f.bits)
			} else {
				f.reads++
			}
		}
		f.nbits = 0
	}
	f.sck.OnOut = func(high bool) {
		if !high || f.sel.Level() {
			return
		}
		edge := f.nbits
		f.nbits++
		if edge < rtcAddrBits+1 || f.bits>>4&1 == rtcWrite {
			if f.data.Level() {
				f.bits |= 1 << edge
			}
			return
		}
		f.outBit = f.regs[byte(f.bits&0x0f)]>>(edge-rtcAddrBits-1)&1 != 0
	}
	f.data.Input = func() bool { return f.outBit }
	return f
}

func (f *fakeSynth) deps(clock *sim.Clock) Deps {
	return Deps{Clock: clock, PinSelect: f.sel, PinClock: f.sck, PinData: f.data}
}

// fakeShifter decodes most significant bit first bytes framed by select.
type fakeShifter struct {
	sel, sck, data *sim.Pin

	frames [][]byte
	cur    []byte
	nbits  uint
	b      byte
}

func newFakeShifter() *fakeShifter {
	f := &fakeShifter{sel: &sim.Pin{}, sck: &sim.Pin{}, data: &sim.Pin{}}
	f.sel.OnOut = func(high bool) {
		if !high {
			f.cur, f.nbits, f.b = nil, 0, 0
			return
		}
		if f.cur != nil {
			f.frames = append(f.frames, f.cur)
			f.cur = nil
		}
	}
	f.sck.OnOut = func(high bool) {
		if !high || f.sel.Level() {
			return
		}
		f.b <<= 1
		if f.data.Level() {
			f.b |= 1
		}
		if f.nbits++; f.nbits == 8 {
			f.cur = append(f.cur, f.b)
			f.nbits, f.b = 0, 0
		}
	}
	return f
}

// fakeGoggles answers MSP requests on a sim.Port.
type fakeGoggles struct {
	port      *sim.Port
	codec     msp.Codec
	channel   uint8
	recording bool
	sets      map[uint16]int
	// stuckChannel, when set, is reported regardless of what was set.
	stuckChannel *uint8
	silent       bool
}

func newFakeGoggles() *fakeGoggles {
	g := &fakeGoggles{sets: make(map[uint16]int)}
	g.port = &sim.Port{OnWrite: func(p *sim.Port, data []byte) {
		for _, pkt := range g.codec.Decode(data) {
			g.handle(pkt)
		}
	}}
	return g
}

func (g *fakeGoggles) handle(pkt *msp.Packet) {
	g.sets[pkt.Function]++
	if g.silent {
		return
	}
	switch pkt.Function {
	case msp.FuncBackpackSetChannelIndex:
		g.channel = pkt.Payload[0]
	case msp.FuncBackpackGetChannelIndex:
		ch := g.channel
		if g.stuckChannel != nil {
			ch = *g.stuckChannel
		}
		g.port.Inject(msp.NewResponse(pkt.Function, ch).Bytes()...)
	case msp.FuncBackpackSetRecordingState:
		g.recording = pkt.Payload[0] != 0
	case msp.FuncBackpackGetRecordingState:
		var state byte
		if g.recording {
			state = 1
		}
		g.port.Inject(msp.NewResponse(pkt.Function, state).Bytes()...)
	case msp.FuncBackpackGetRSSI:
		g.port.Inject(msp.NewResponse(pkt.Function, 80, 75).Bytes()...)
	}
}
