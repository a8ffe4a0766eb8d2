// Package websocket carries peer envelopes through a websocket bridge
// which relays every binary message to all other connections.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/backpack/pkg/config"
	"github.com/robotalks/backpack/pkg/transport"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// DefaultRetryInterval is the pause between reconnect attempts.
const DefaultRetryInterval = time.Second

// Link is a transport.Link through a bridge. It redials until the
// context is canceled.
type Link struct {
	URL           string
	Origin        string
	Local         config.Address
	RetryInterval time.Duration

	lock     sync.Mutex
	endpoint *transport.Endpoint
	receiver transport.Receiver
}

// NewLink creates a Link.
func NewLink(url string, local config.Address) *Link {
	return &Link{
		URL:           url,
		Origin:        "http://localhost/",
		Local:         local,
		RetryInterval: DefaultRetryInterval,
	}
}

// Name implements Named.
func (l *Link) Name() string {
	return "link.websocket"
}

// Send implements Link.
func (l *Link) Send(dst config.Address, data []byte) error {
	l.lock.Lock()
	ep := l.endpoint
	l.lock.Unlock()
	if ep == nil {
		return transport.ErrNotConnected
	}
	return ep.Send(dst, data)
}

// SetReceiver implements Link.
func (l *Link) SetReceiver(r transport.Receiver) {
	l.lock.Lock()
	l.receiver = r
	if l.endpoint != nil {
		l.endpoint.SetReceiver(r)
	}
	l.lock.Unlock()
}

// Run implements Runnable.
func (l *Link) Run(ctx context.Context) error {
	for {
		if err := l.session(ctx); err != nil {
			glog.Warningf("websocket %s: %v", l.URL, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.RetryInterval):
		}
	}
}

func (l *Link) session(ctx context.Context) error {
	conn, err := websocket.Dial(l.URL, "", l.Origin)
	if err != nil {
		return err
	}
	conn.PayloadType = websocket.BinaryFrame
	ep := transport.NewEndpoint(l.Local, New(conn))
	l.lock.Lock()
	ep.SetReceiver(l.receiver)
	l.endpoint = ep
	l.lock.Unlock()
	glog.Infof("websocket %s connected", l.URL)

	err = ep.Run(ctx)

	l.lock.Lock()
	l.endpoint = nil
	l.lock.Unlock()
	return err
}
