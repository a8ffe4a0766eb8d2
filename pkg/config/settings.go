package config

import (
	"encoding/binary"

	"github.com/golang/glog"
)

// SettingsVersion is bumped whenever the layout of persisted values
// changes. Stores carrying another version are reset to defaults.
const SettingsVersion uint32 = 3

// AddressLen is the length of a peer address.
const AddressLen = 6

// Address is a 6-byte wireless peer address.
type Address [AddressLen]byte

// IsZero tells whether no address is stored.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String formats the address as colon separated hex.
func (a Address) String() string {
	const hex = "0123456789abcdef"
	b := make([]byte, 0, 17)
	for i, v := range a {
		if i > 0 {
			b = append(b, ':')
		}
		b = append(b, hex[v>>4], hex[v&0xf])
	}
	return string(b)
}

const (
	keyVersion     = "version"
	keyPeerAddress = "peer"
	keyBootCount   = "boot"
	keyStartWifi   = "wifi"
	keyChannel     = "channel"
	keyRecording   = "recording"
	keyFreqTrim    = "rx5808.trim"
)

// Settings is the typed view over a Store.
type Settings struct {
	store Store
}

// LoadSettings wraps store, resetting it to defaults on a version mismatch.
func LoadSettings(store Store) *Settings {
	s := &Settings{store: store}
	if ver, ok := s.uint32(keyVersion); !ok || ver != SettingsVersion {
		if ok {
			glog.Warningf("settings version %d != %d, resetting to defaults", ver, SettingsVersion)
		}
		s.SetDefaults()
		if err := s.Commit(); err != nil {
			glog.Errorf("commit default settings failed: %v", err)
		}
	}
	return s
}

// SetDefaults stages the compiled-in defaults.
func (s *Settings) SetDefaults() {
	s.putUint32(keyVersion, SettingsVersion)
	s.store.Set(keyPeerAddress, make([]byte, AddressLen))
	s.store.Set(keyBootCount, []byte{0})
	s.store.Set(keyStartWifi, []byte{0})
	s.store.Set(keyChannel, []byte{0})
	s.store.Set(keyRecording, []byte{0})
	s.store.Set(keyFreqTrim, []byte{0})
}

// Commit persists staged changes.
func (s *Settings) Commit() error {
	return s.store.Commit()
}

// PeerAddress returns the paired peer, zero when unpaired.
func (s *Settings) PeerAddress() (addr Address) {
	if val, ok := s.store.Get(keyPeerAddress); ok && len(val) == AddressLen {
		copy(addr[:], val)
	}
	return
}

// SetPeerAddress stages a new peer.
func (s *Settings) SetPeerAddress(addr Address) {
	s.store.Set(keyPeerAddress, addr[:])
}

// BootCount returns the quick power-cycle counter.
func (s *Settings) BootCount() uint8 {
	return s.byteVal(keyBootCount)
}

// SetBootCount stages the boot counter.
func (s *Settings) SetBootCount(n uint8) {
	s.store.Set(keyBootCount, []byte{n})
}

// StartWifiOnBoot tells whether the next boot enters Wi-Fi update mode.
func (s *Settings) StartWifiOnBoot() bool {
	return s.byteVal(keyStartWifi) != 0
}

// SetStartWifiOnBoot stages the Wi-Fi-on-boot flag.
func (s *Settings) SetStartWifiOnBoot(en bool) {
	s.store.Set(keyStartWifi, []byte{boolByte(en)})
}

// ChannelIndex returns the last selected channel index.
func (s *Settings) ChannelIndex() uint8 {
	return s.byteVal(keyChannel)
}

// SetChannelIndex stages the selected channel index.
func (s *Settings) SetChannelIndex(index uint8) {
	s.store.Set(keyChannel, []byte{index})
}

// RecordingEnabled returns the last recording state.
func (s *Settings) RecordingEnabled() bool {
	return s.byteVal(keyRecording) != 0
}

// SetRecordingEnabled stages the recording state.
func (s *Settings) SetRecordingEnabled(en bool) {
	s.store.Set(keyRecording, []byte{boolByte(en)})
}

// FrequencyTrim returns the register receiver calibration in MHz.
func (s *Settings) FrequencyTrim() int8 {
	return int8(s.byteVal(keyFreqTrim))
}

// SetFrequencyTrim stages the calibration.
func (s *Settings) SetFrequencyTrim(mhz int8) {
	s.store.Set(keyFreqTrim, []byte{byte(mhz)})
}

func (s *Settings) byteVal(key string) byte {
	if val, ok := s.store.Get(key); ok && len(val) > 0 {
		return val[0]
	}
	return 0
}

func (s *Settings) uint32(key string) (uint32, bool) {
	val, ok := s.store.Get(key)
	if !ok || len(val) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(val), true
}

func (s *Settings) putUint32(key string, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	s.store.Set(key, b[:])
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
