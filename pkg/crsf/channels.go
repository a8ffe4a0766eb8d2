package crsf

// ChannelCount is the number of entries in the channel table.
const ChannelCount = 48

// ChannelsPerBand is the number of channels in each band.
const ChannelsPerBand = 8

// InvalidIndex is returned by IndexOf for unknown frequencies.
const InvalidIndex = 0xff

// BandNames lists the bands in table order.
var BandNames = [...]string{"A", "B", "E", "F", "R", "L"}

var frequencyTable = [ChannelCount]uint16{
	5865, 5845, 5825, 5805, 5785, 5765, 5745, 5725, // A
	5733, 5752, 5771, 5790, 5809, 5828, 5847, 5866, // B
	5705, 5685, 5665, 5645, 5885, 5905, 5925, 5945, // E
	5740, 5760, 5780, 5800, 5820, 5840, 5860, 5880, // F
	5658, 5695, 5732, 5769, 5806, 5843, 5880, 5917, // R
	5362, 5399, 5436, 5473, 5510, 5547, 5584, 5621, // L
}

// ValidIndex tells whether index addresses the table.
func ValidIndex(index uint8) bool {
	return index < ChannelCount
}

// Frequency returns the MHz of index, or 0 when out of range.
func Frequency(index uint8) uint16 {
	if !ValidIndex(index) {
		return 0
	}
	return frequencyTable[index]
}

// Band returns the 1-based band of index.
func Band(index uint8) uint8 {
	return index/ChannelsPerBand + 1
}

// ChannelInBand returns the 1-based channel within the band.
func ChannelInBand(index uint8) uint8 {
	return index%ChannelsPerBand + 1
}

// BandName returns the letter of the band containing index.
func BandName(index uint8) string {
	if !ValidIndex(index) {
		return "?"
	}
	return BandNames[index/ChannelsPerBand]
}

// Index builds an index from 1-based band and channel.
func Index(band, channel uint8) uint8 {
	if band < 1 || band > uint8(len(BandNames)) || channel < 1 || channel > ChannelsPerBand {
		return InvalidIndex
	}
	return (band-1)*ChannelsPerBand + channel - 1
}

// IndexOf returns the first index tuned to freq, or InvalidIndex.
func IndexOf(freq uint16) uint8 {
	for i, f := range frequencyTable {
		if f == freq {
			return uint8(i)
		}
	}
	return InvalidIndex
}
