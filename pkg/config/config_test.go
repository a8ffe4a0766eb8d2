package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/backpack/pkg/stk500"
)

func TestSettingsDefaultsOnEmptyStore(t *testing.T) {
	store := NewMemStore()
	s := LoadSettings(store)
	require.True(t, s.PeerAddress().IsZero())
	require.Equal(t, uint8(0), s.BootCount())
	require.False(t, s.StartWifiOnBoot())
	require.Equal(t, 1, store.Commits)
}

func TestSettingsVersionMismatchResets(t *testing.T) {
	store := NewMemStore()
	store.Set(keyVersion, []byte{1, 0, 0, 0})
	store.Set(keyPeerAddress, []byte{1, 2, 3, 4, 5, 6})
	store.Set(keyBootCount, []byte{2})
	s := LoadSettings(store)
	require.True(t, s.PeerAddress().IsZero())
	require.Equal(t, uint8(0), s.BootCount())
}

func TestSettingsKeptOnMatchingVersion(t *testing.T) {
	store := NewMemStore()
	s := LoadSettings(store)
	s.SetPeerAddress(Address{0x11, 0x22, 0x33, 0x44, 0x55, 0x66})
	s.SetFrequencyTrim(-3)
	require.NoError(t, s.Commit())

	s = LoadSettings(store)
	require.Equal(t, Address{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}, s.PeerAddress())
	require.Equal(t, int8(-3), s.FrequencyTrim())
	require.Equal(t, 2, store.Commits)
}

func TestFileStorePersists(t *testing.T) {
	dir, err := os.MkdirTemp("", "backpack")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "sub", "settings.pb")

	s := LoadSettings(OpenFileStore(path))
	s.SetPeerAddress(Address{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff})
	s.SetStartWifiOnBoot(true)
	require.NoError(t, s.Commit())

	s = LoadSettings(OpenFileStore(path))
	require.Equal(t, "aa:bb:cc:dd:ee:ff", s.PeerAddress().String())
	require.True(t, s.StartWifiOnBoot())
}

func TestFileStoreCorruptFallsBack(t *testing.T) {
	dir, err := os.MkdirTemp("", "backpack")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "settings.pb")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xff, 0xff}, 0o644))

	s := LoadSettings(OpenFileStore(path))
	require.True(t, s.PeerAddress().IsZero())
}

func TestLoadDevice(t *testing.T) {
	dir, err := os.MkdirTemp("", "backpack")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "backpack.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
name = "goggles"
[vrx]
kind = "hdzero"
serial = "/dev/ttyUSB0"
[flasher]
page_size = 64
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "goggles", cfg.Name)
	require.Equal(t, "hdzero", cfg.VRX.Kind)
	require.Equal(t, 115200, cfg.VRX.Baud)
	require.Equal(t, 64, cfg.Flasher.PageSize)
	require.Equal(t, 10, cfg.Flasher.SyncAttempts)

	cfg, err = Load(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.VRX.Kind = "analog"
	require.Error(t, cfg.Validate())
}

func TestFlasherDefaultsMatchFlasher(t *testing.T) {
	cfg := Default()
	flasher := stk500.DefaultConfig()
	require.True(t, cfg.Flasher.Verify)
	require.Equal(t, flasher.Verify, cfg.Flasher.Verify)
	require.Equal(t, flasher.FlashSize, cfg.Flasher.FlashSize)
	require.Equal(t, flasher.PageSize, cfg.Flasher.PageSize)
	require.Equal(t, flasher.SyncAttempts, cfg.Flasher.SyncAttempts)
	require.Equal(t, flasher.SyncTimeoutMs, cfg.Flasher.SyncTimeoutMs)
}

func TestValidateRejectsZeroSyncTimeout(t *testing.T) {
	cfg := Default()
	cfg.Flasher.SyncTimeoutMs = 0
	require.Error(t, cfg.Validate())
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("11:22:33:44:55:66")
	require.NoError(t, err)
	require.Equal(t, Address{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}, addr)
	addr, err = ParseAddress("a1b2c3d4e5f6")
	require.NoError(t, err)
	require.Equal(t, "a1:b2:c3:d4:e5:f6", addr.String())
	_, err = ParseAddress("11:22")
	require.Error(t, err)
	_, err = ParseAddress("zz2233445566")
	require.Error(t, err)
}
