package msp

import (
	"fmt"
	"io"
)

// Direction is the third byte of a frame.
type Direction byte

// Directions.
const (
	DirCommand  Direction = '<'
	DirResponse Direction = '>'
	DirError    Direction = '!'
)

func (d Direction) valid() bool {
	return d == DirCommand || d == DirResponse || d == DirError
}

// Version selects the framing.
type Version byte

// Versions.
const (
	V1 Version = 1
	V2 Version = 2
)

const (
	markerStart = '$'
	markerV1    = 'M'
	markerV2    = 'X'

	jumboSize = 255
)

// Packet is one decoded or to-be-encoded frame.
type Packet struct {
	Version   Version
	Direction Direction
	Flags     byte
	Function  uint16
	Payload   []byte
}

// NewCommand creates a command packet.
func NewCommand(fn uint16, payload ...byte) *Packet {
	return newPacket(DirCommand, fn, payload)
}

// NewResponse creates a response packet.
func NewResponse(fn uint16, payload ...byte) *Packet {
	return newPacket(DirResponse, fn, payload)
}

func newPacket(dir Direction, fn uint16, payload []byte) *Packet {
	p := &Packet{Direction: dir, Function: fn, Payload: payload}
	p.Version = p.WireVersion()
	return p
}

// WireVersion returns the framing actually used by Bytes.
func (p *Packet) WireVersion() Version {
	if p.Version == V2 || p.Function > 0xff {
		return V2
	}
	return V1
}

// String implements fmt.Stringer.
func (p *Packet) String() string {
	return fmt.Sprintf("v%d %c fn=0x%04x len=%d", p.WireVersion(), p.Direction, p.Function, len(p.Payload))
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes() []byte {
	dir := p.Direction
	if dir == 0 {
		dir = DirCommand
	}
	size := len(p.Payload)
	if p.WireVersion() == V2 {
		b := make([]byte, 0, size+9)
		b = append(b, markerStart, markerV2, byte(dir),
			p.Flags, byte(p.Function), byte(p.Function>>8), byte(size), byte(size>>8))
		b = append(b, p.Payload...)
		return append(b, CRC8DVBS2(0, b[3:]))
	}
	b := make([]byte, 0, size+8)
	b = append(b, markerStart, markerV1, byte(dir))
	if size >= jumboSize {
		b = append(b, jumboSize, byte(p.Function), byte(size), byte(size>>8))
	} else {
		b = append(b, byte(size), byte(p.Function))
	}
	b = append(b, p.Payload...)
	return append(b, xorSum(0, b[3:]))
}

// WriteTo writes encoded bytes.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Bytes())
	return int64(n), err
}

func xorSum(sum byte, data []byte) byte {
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// CRC8DVBS2 continues a CRC-8/DVB-S2 (poly 0xD5) over data.
func CRC8DVBS2(crc byte, data []byte) byte {
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ 0xd5
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
