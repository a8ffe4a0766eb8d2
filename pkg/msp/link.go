package msp

import (
	"errors"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/backpack/pkg/hal"
)

// ErrTimeout indicates no matching response arrived in time.
var ErrTimeout = errors.New("msp: response timeout")

// Link is a request/response endpoint over a non-blocking byte stream.
type Link struct {
	Port  io.ReadWriter
	Clock hal.Clock
	Codec Codec
}

// NewLink creates a Link.
func NewLink(port io.ReadWriter, clock hal.Clock) *Link {
	return &Link{Port: port, Clock: clock}
}

// Send writes a packet without waiting for a reply.
func (l *Link) Send(pkt *Packet) error {
	glog.V(4).Infof("msp: SND %s", pkt)
	_, err := pkt.WriteTo(l.Port)
	return err
}

// AwaitPacket sends req and polls the stream until a response with the
// same function arrives or timeoutMs elapses. Packets for other
// functions are dropped.
func (l *Link) AwaitPacket(req *Packet, timeoutMs uint32) (*Packet, error) {
	l.Codec.Reset()
	if err := l.Send(req); err != nil {
		return nil, err
	}
	start := l.Clock.Millis()
	buf := make([]byte, 64)
	for {
		n, err := l.Port.Read(buf)
		if err != nil {
			return nil, err
		}
		for _, b := range buf[:n] {
			if !l.Codec.Feed(b) {
				continue
			}
			pkt := l.Codec.TakeReceived()
			if pkt.Function == req.Function && pkt.Direction != DirCommand {
				glog.V(4).Infof("msp: RCV %s", pkt)
				return pkt, nil
			}
			glog.V(4).Infof("msp: unexpected %s while awaiting 0x%04x", pkt, req.Function)
		}
		if l.Clock.Millis()-start > timeoutMs {
			return nil, ErrTimeout
		}
		if n == 0 {
			l.Clock.Delay(time.Millisecond)
		}
	}
}
