// Package crsf implements the compact link framing used between link
// components and the shared 48-entry video channel table.
package crsf

// Frame layout: [dest, size, type, payload..., crc8] where size counts
// type, payload and crc.
const (
	OffsetDest    = 0
	OffsetSize    = 1
	OffsetType    = 2
	OffsetPayload = 3

	// FrameOverhead is the bytes of a frame other than its payload.
	FrameOverhead = 4
	// MaxFrameSize bounds a whole frame.
	MaxFrameSize = 64
)

// Addresses.
const (
	AddrFlightController byte = 0xc8
	AddrRadioTransmitter byte = 0xea
	AddrCrsfTransmitter  byte = 0xee
)

// Frame types.
const (
	TypeRCChannels byte = 0x16
	TypeDevicePing byte = 0x28
)

// FrameLen returns the buffer length of a frame with the given payload.
func FrameLen(payloadSize int) int {
	return payloadSize + FrameOverhead
}

// SetHeaderAndCrc fills the header and trailing CRC of buf in place.
// buf must hold at least FrameLen(payloadSize) bytes with the payload
// already at OffsetPayload.
func SetHeaderAndCrc(buf []byte, frameType byte, payloadSize int, dest byte) {
	buf[OffsetDest] = dest
	buf[OffsetSize] = byte(payloadSize + 2)
	buf[OffsetType] = frameType
	end := OffsetPayload + payloadSize
	buf[end] = CRC8(buf[OffsetType:end])
}

// NewFrame allocates a complete frame around payload.
func NewFrame(frameType byte, dest byte, payload []byte) []byte {
	buf := make([]byte, FrameLen(len(payload)))
	copy(buf[OffsetPayload:], payload)
	SetHeaderAndCrc(buf, frameType, len(payload), dest)
	return buf
}

// Valid checks the size byte and CRC of a complete frame.
func Valid(frame []byte) bool {
	if len(frame) < FrameOverhead || len(frame) > MaxFrameSize {
		return false
	}
	if int(frame[OffsetSize])+2 != len(frame) {
		return false
	}
	last := len(frame) - 1
	return CRC8(frame[OffsetType:last]) == frame[last]
}

// Payload returns the payload of a valid frame.
func Payload(frame []byte) []byte {
	return frame[OffsetPayload : len(frame)-1]
}
