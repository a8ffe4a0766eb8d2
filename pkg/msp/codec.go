package msp

import (
	"github.com/golang/glog"
)

// DefaultMaxPayload bounds the payload buffer of a Codec.
const DefaultMaxPayload = 1024

type decodeState int

const (
	stateIdle      decodeState = iota // waiting for '$'
	stateMarker                       // waiting for 'M' or 'X'
	stateDirection                    // waiting for direction
	stateV1Size                       // waiting for v1 size
	stateV1Func                       // waiting for v1 function
	stateV1JumboLo                    // waiting for jumbo length low byte
	stateV1JumboHi                    // waiting for jumbo length high byte
	stateV2Flags                      // waiting for v2 flags
	stateV2FuncLo                     // waiting for v2 function low byte
	stateV2FuncHi                     // waiting for v2 function high byte
	stateV2SizeLo                     // waiting for v2 size low byte
	stateV2SizeHi                     // waiting for v2 size high byte
	statePayload                      // receiving payload
	stateChecksum                     // waiting for checksum
)

// Codec decodes a byte stream into packets, one byte at a time.
// It holds at most one packet: the one being assembled or the last
// completed one not yet taken.
type Codec struct {
	// MaxPayload overrides DefaultMaxPayload when positive.
	MaxPayload int
	// SkipChecksum accepts frames with mismatching checksums. Some receiver
	// firmwares emit wrong checksums on otherwise valid responses.
	SkipChecksum bool

	state    decodeState
	packet   Packet
	size     int
	offset   int
	checksum byte
	received *Packet
}

// Reset drops any partial or unconsumed packet.
func (c *Codec) Reset() {
	c.state = stateIdle
	c.received = nil
}

// Feed consumes one byte and reports whether a valid packet is complete.
func (c *Codec) Feed(b byte) bool {
	c.received = nil
	switch c.state {
	case stateIdle:
		if b == markerStart {
			c.state = stateMarker
		}
	case stateMarker:
		switch b {
		case markerV1:
			c.packet = Packet{Version: V1}
			c.state = stateDirection
		case markerV2:
			c.packet = Packet{Version: V2}
			c.state = stateDirection
		case markerStart:
		default:
			c.state = stateIdle
		}
	case stateDirection:
		if dir := Direction(b); dir.valid() {
			c.packet.Direction = dir
			c.checksum = 0
			if c.packet.Version == V2 {
				c.state = stateV2Flags
			} else {
				c.state = stateV1Size
			}
		} else {
			c.state = stateIdle
		}
	case stateV1Size:
		c.size = int(b)
		c.checksum = b
		c.state = stateV1Func
	case stateV1Func:
		c.packet.Function = uint16(b)
		c.checksum ^= b
		if c.size == jumboSize {
			c.state = stateV1JumboLo
			return false
		}
		return c.beginPayload()
	case stateV1JumboLo:
		c.size = int(b)
		c.checksum ^= b
		c.state = stateV1JumboHi
	case stateV1JumboHi:
		c.size |= int(b) << 8
		c.checksum ^= b
		return c.beginPayload()
	case stateV2Flags:
		c.packet.Flags = b
		c.checksum = CRC8DVBS2(0, []byte{b})
		c.state = stateV2FuncLo
	case stateV2FuncLo:
		c.packet.Function = uint16(b)
		c.checksum = CRC8DVBS2(c.checksum, []byte{b})
		c.state = stateV2FuncHi
	case stateV2FuncHi:
		c.packet.Function |= uint16(b) << 8
		c.checksum = CRC8DVBS2(c.checksum, []byte{b})
		c.state = stateV2SizeLo
	case stateV2SizeLo:
		c.size = int(b)
		c.checksum = CRC8DVBS2(c.checksum, []byte{b})
		c.state = stateV2SizeHi
	case stateV2SizeHi:
		c.size |= int(b) << 8
		c.checksum = CRC8DVBS2(c.checksum, []byte{b})
		return c.beginPayload()
	case statePayload:
		c.packet.Payload[c.offset] = b
		c.offset++
		if c.packet.Version == V2 {
			c.checksum = CRC8DVBS2(c.checksum, []byte{b})
		} else {
			c.checksum ^= b
		}
		if c.offset >= c.size {
			c.state = stateChecksum
		}
	case stateChecksum:
		c.state = stateIdle
		if b != c.checksum && !c.SkipChecksum {
			glog.V(3).Infof("msp: checksum mismatch fn=0x%04x got %02x want %02x", c.packet.Function, b, c.checksum)
			return false
		}
		pkt := c.packet
		c.received = &pkt
		return true
	}
	return false
}

func (c *Codec) beginPayload() bool {
	max := c.MaxPayload
	if max <= 0 {
		max = DefaultMaxPayload
	}
	if c.size > max {
		glog.V(3).Infof("msp: payload %d exceeds %d, resync", c.size, max)
		c.state = stateIdle
		return false
	}
	c.offset = 0
	c.packet.Payload = nil
	if c.size > 0 {
		c.packet.Payload = make([]byte, c.size)
		c.state = statePayload
	} else {
		c.state = stateChecksum
	}
	return false
}

// TakeReceived returns the completed packet and marks it consumed.
// It returns nil when no packet is available.
func (c *Codec) TakeReceived() *Packet {
	pkt := c.received
	c.received = nil
	return pkt
}

// Decode feeds a whole buffer and returns every packet it completes.
func (c *Codec) Decode(data []byte) (pkts []*Packet) {
	for _, b := range data {
		if c.Feed(b) {
			pkts = append(pkts, c.TakeReceived())
		}
	}
	return
}
