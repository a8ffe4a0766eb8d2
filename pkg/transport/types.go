package transport

import (
	"errors"

	"github.com/robotalks/backpack/pkg/config"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Receiver is invoked for every payload addressed to the local peer.
// It runs on the transport goroutine and must only hand the data off.
type Receiver func(src config.Address, data []byte)

// Link is the wireless peer link.
type Link interface {
	Send(dst config.Address, data []byte) error
	SetReceiver(Receiver)
}

// Broadcast reaches every peer.
var Broadcast = config.Address{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// HeaderLen is the envelope header: source then destination address.
const HeaderLen = 2 * config.AddressLen

// MaxPayload bounds the data carried in one envelope.
const MaxPayload = 250

var (
	// ErrNotConnected is returned by Send before the link is up.
	ErrNotConnected = errors.New("link not connected")
	// ErrPayloadTooLarge is returned for data over MaxPayload.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Encode builds an envelope.
func Encode(src, dst config.Address, data []byte) []byte {
	pkt := make([]byte, HeaderLen+len(data))
	copy(pkt, src[:])
	copy(pkt[config.AddressLen:], dst[:])
	copy(pkt[HeaderLen:], data)
	return pkt
}

// Decode splits an envelope. The returned data aliases pkt.
func Decode(pkt []byte) (src, dst config.Address, data []byte, ok bool) {
	if len(pkt) < HeaderLen {
		return
	}
	copy(src[:], pkt)
	copy(dst[:], pkt[config.AddressLen:])
	return src, dst, pkt[HeaderLen:], true
}
