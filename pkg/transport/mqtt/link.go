package mqtt

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/backpack/pkg/config"
	"github.com/robotalks/backpack/pkg/transport"
)

// BroadcastTopic is subscribed by every peer.
const BroadcastTopic = "broadcast"

// DefaultSendTimeout bounds a publish issued from the loop.
const DefaultSendTimeout = 200 * time.Millisecond

// Topic returns the topic a peer listens on.
func Topic(addr config.Address) string {
	if addr == transport.Broadcast {
		return BroadcastTopic
	}
	return fmt.Sprintf("peer/%x", addr[:])
}

// Link is a transport.Link over MQTT. The queue callbacks only copy
// envelopes into a bounded buffer which the embedded Endpoint drains.
type Link struct {
	*transport.Endpoint
	Queue       *Queue
	SendTimeout time.Duration

	packetCh  chan []byte
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewLink creates a Link for the local address.
func NewLink(q *Queue, local config.Address) *Link {
	l := &Link{
		Queue:       q,
		SendTimeout: DefaultSendTimeout,
		packetCh:    make(chan []byte, 16),
		doneCh:      make(chan struct{}),
	}
	l.Endpoint = transport.NewEndpoint(local, l)
	return l
}

// Dial creates a Link from a broker URL.
func Dial(brokerURL string, local config.Address) (*Link, error) {
	q, err := NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewLink(q, local), nil
}

// Name implements Named.
func (l *Link) Name() string {
	return "link.mqtt"
}

// ReadPacket implements PacketReader.
func (l *Link) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-l.packetCh:
		return pkt, nil
	case <-l.doneCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter. The envelope is published to the
// topic of its destination.
func (l *Link) WritePacket(pkt []byte) error {
	_, dst, _, ok := transport.Decode(pkt)
	if !ok {
		return io.ErrShortWrite
	}
	if !l.Queue.Client.IsConnected() {
		return transport.ErrNotConnected
	}
	token := l.Queue.Pub(Topic(dst), pkt)
	if !token.WaitTimeout(l.SendTimeout) {
		return fmt.Errorf("publish to %s timed out", Topic(dst))
	}
	return token.Error()
}

// Run implements Runnable.
func (l *Link) Run(ctx context.Context) error {
	subs := []*Subscription{
		l.Queue.Sub(Topic(l.Local), l.handleMsg),
		l.Queue.Sub(BroadcastTopic, l.handleMsg),
	}
	token := l.Queue.Connect()
	go func() {
		if token.Wait(); token.Error() != nil {
			glog.Errorf("mqtt connect: %v", token.Error())
		}
	}()
	err := l.Endpoint.Run(ctx)
	for _, sub := range subs {
		sub.Close()
	}
	l.Queue.Close()
	return err
}

// Close stops the reader.
func (l *Link) Close() error {
	l.closeOnce.Do(func() { close(l.doneCh) })
	return nil
}

func (l *Link) handleMsg(topic string, payload []byte) {
	select {
	case l.packetCh <- payload:
	default:
		glog.Warningf("mqtt %s: receive buffer full, envelope dropped", topic)
	}
}
