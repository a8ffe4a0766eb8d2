package websocket

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/backpack/pkg/transport"
)

// Bridge relays envelopes between all connected peers. Addressing is
// left to the receiving Endpoints.
type Bridge struct {
	lock  sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// NewBridge creates a Bridge.
func NewBridge() *Bridge {
	return &Bridge{conns: make(map[*websocket.Conn]struct{})}
}

// Handler returns the http.Handler accepting peers.
func (b *Bridge) Handler() http.Handler {
	return websocket.Handler(b.serve)
}

// Peers returns the number of connected peers.
func (b *Bridge) Peers() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.conns)
}

func (b *Bridge) serve(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	b.lock.Lock()
	b.conns[conn] = struct{}{}
	b.lock.Unlock()
	glog.V(1).Infof("bridge: peer %s joined", conn.Request().RemoteAddr)
	defer func() {
		b.lock.Lock()
		delete(b.conns, conn)
		b.lock.Unlock()
		conn.Close()
		glog.V(1).Infof("bridge: peer %s left", conn.Request().RemoteAddr)
	}()

	rw := New(conn)
	for {
		pkt, err := rw.ReadPacket()
		if err != nil {
			return
		}
		if len(pkt) < transport.HeaderLen {
			continue
		}
		b.relay(conn, pkt)
	}
}

func (b *Bridge) relay(from *websocket.Conn, pkt []byte) {
	b.lock.RLock()
	targets := make([]*websocket.Conn, 0, len(b.conns))
	for conn := range b.conns {
		if conn != from {
			targets = append(targets, conn)
		}
	}
	b.lock.RUnlock()
	for _, conn := range targets {
		if err := New(conn).WritePacket(pkt); err != nil {
			glog.Warningf("bridge: relay to %s: %v", conn.Request().RemoteAddr, err)
		}
	}
}
