package transport

import (
	"io"
	"sync"

	"github.com/robotalks/backpack/pkg/config"
)

// Hub is an in-process medium connecting Endpoints. Delivery is
// synchronous on the sender's goroutine.
type Hub struct {
	lock      sync.RWMutex
	endpoints map[config.Address]*Endpoint
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{endpoints: make(map[config.Address]*Endpoint)}
}

// Join attaches a new Endpoint for addr.
func (h *Hub) Join(addr config.Address) *Endpoint {
	ep := NewEndpoint(addr, &hubPort{hub: h})
	h.lock.Lock()
	h.endpoints[addr] = ep
	h.lock.Unlock()
	return ep
}

// Leave detaches the Endpoint of addr.
func (h *Hub) Leave(addr config.Address) {
	h.lock.Lock()
	delete(h.endpoints, addr)
	h.lock.Unlock()
}

func (h *Hub) route(pkt []byte) {
	_, dst, _, ok := Decode(pkt)
	if !ok {
		return
	}
	h.lock.RLock()
	var targets []*Endpoint
	if dst == Broadcast {
		for _, ep := range h.endpoints {
			targets = append(targets, ep)
		}
	} else if ep := h.endpoints[dst]; ep != nil {
		targets = append(targets, ep)
	}
	h.lock.RUnlock()
	for _, ep := range targets {
		ep.HandlePacket(append([]byte(nil), pkt...))
	}
}

type hubPort struct {
	hub *Hub
}

func (p *hubPort) ReadPacket() ([]byte, error) {
	return nil, io.EOF
}

func (p *hubPort) WritePacket(pkt []byte) error {
	p.hub.route(pkt)
	return nil
}
