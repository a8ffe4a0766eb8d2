package crsf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC8Reference(t *testing.T) {
	require.Equal(t, byte(0xbc), CRC8([]byte("123456789")))
}

func TestSetHeaderAndCrc(t *testing.T) {
	buf := make([]byte, FrameLen(2)+3)
	buf[OffsetPayload], buf[OffsetPayload+1] = AddrCrsfTransmitter, AddrRadioTransmitter
	SetHeaderAndCrc(buf, TypeDevicePing, 2, AddrFlightController)
	require.Equal(t, []byte{0xc8, 4, 0x28, 0xee, 0xea, 0x97}, buf[:6])
	require.Equal(t, []byte{0, 0, 0}, buf[6:])
	require.True(t, Valid(buf[:6]))
}

func TestValidRejectsCorruption(t *testing.T) {
	frame := NewFrame(TypeRCChannels, AddrFlightController, make([]byte, 22))
	require.True(t, Valid(frame))
	require.Equal(t, byte(0xef), frame[len(frame)-1])
	require.Len(t, Payload(frame), 22)

	frame[5] = 1
	require.False(t, Valid(frame))
	require.False(t, Valid(frame[:10]))
	require.False(t, Valid([]byte{0xc8, 2}))
}

func TestChannelTable(t *testing.T) {
	rows := [][]uint16{
		{5865, 5845, 5825, 5805, 5785, 5765, 5745, 5725},
		{5733, 5752, 5771, 5790, 5809, 5828, 5847, 5866},
		{5705, 5685, 5665, 5645, 5885, 5905, 5925, 5945},
		{5740, 5760, 5780, 5800, 5820, 5840, 5860, 5880},
		{5658, 5695, 5732, 5769, 5806, 5843, 5880, 5917},
		{5362, 5399, 5436, 5473, 5510, 5547, 5584, 5621},
	}
	for i := uint8(0); i < ChannelCount; i++ {
		require.Equal(t, i/8+1, Band(i))
		require.Equal(t, i%8+1, ChannelInBand(i))
		require.Equal(t, rows[i/8][i%8], Frequency(i))
		require.Equal(t, i, Index(Band(i), ChannelInBand(i)))
	}
	require.Equal(t, uint16(0), Frequency(48))
	require.Equal(t, uint16(0), Frequency(255))
}

func TestIndexTenIsB3(t *testing.T) {
	require.Equal(t, uint8(2), Band(10))
	require.Equal(t, uint8(3), ChannelInBand(10))
	require.Equal(t, "B", BandName(10))
	require.Equal(t, uint16(5771), Frequency(10))
}

func TestIndexOf(t *testing.T) {
	require.Equal(t, uint8(10), IndexOf(5771))
	// F8 and R7 share 5880; the first wins.
	require.Equal(t, uint8(31), IndexOf(5880))
	require.Equal(t, uint8(InvalidIndex), IndexOf(5000))
	require.Equal(t, uint8(InvalidIndex), Index(7, 1))
	require.Equal(t, uint8(InvalidIndex), Index(1, 9))
}
