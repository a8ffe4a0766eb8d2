package transport

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"
	"github.com/robotalks/backpack/pkg/config"
	fx "github.com/robotalks/backpack/pkg/framework"
)

// Endpoint turns a PacketReadWriter carrying envelopes into a Link for
// one local address.
type Endpoint struct {
	Local      config.Address
	ReadWriter PacketReadWriter

	lock     sync.RWMutex
	receiver Receiver
}

// NewEndpoint creates an Endpoint.
func NewEndpoint(local config.Address, rw PacketReadWriter) *Endpoint {
	return &Endpoint{Local: local, ReadWriter: rw}
}

// Send implements Link.
func (e *Endpoint) Send(dst config.Address, data []byte) error {
	if len(data) > MaxPayload {
		return ErrPayloadTooLarge
	}
	glog.V(3).Infof("SND %s -> %s %d bytes", e.Local, dst, len(data))
	return e.ReadWriter.WritePacket(Encode(e.Local, dst, data))
}

// SetReceiver implements Link.
func (e *Endpoint) SetReceiver(r Receiver) {
	e.lock.Lock()
	e.receiver = r
	e.lock.Unlock()
}

// HandlePacket delivers one envelope. Packets from the local address or
// addressed to another peer are dropped.
func (e *Endpoint) HandlePacket(pkt []byte) {
	src, dst, data, ok := Decode(pkt)
	if !ok {
		glog.V(2).Infof("drop short envelope (%d bytes)", len(pkt))
		return
	}
	if src == e.Local || (dst != e.Local && dst != Broadcast) {
		return
	}
	e.lock.RLock()
	r := e.receiver
	e.lock.RUnlock()
	if r != nil {
		r(src, data)
	}
}

// Run implements Runnable. It reads until the reader fails. Readers
// implementing io.Closer are closed when ctx is canceled.
func (e *Endpoint) Run(ctx context.Context) error {
	if closer, ok := e.ReadWriter.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, e.readLoop)
	}
	err := e.readLoop()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (e *Endpoint) readLoop() error {
	for {
		pkt, err := e.ReadWriter.ReadPacket()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		e.HandlePacket(pkt)
	}
}
