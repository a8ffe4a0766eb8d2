package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/robotalks/backpack/pkg/stk500"
)

// Device is the static configuration of one backpack.
type Device struct {
	Name         string        `toml:"name"`
	SettingsPath string        `toml:"settings_path"`
	Link         LinkConfig    `toml:"link"`
	VRX          VRXConfig     `toml:"vrx"`
	UI           UIConfig      `toml:"ui"`
	Flasher      FlasherConfig `toml:"flasher"`
}

// LinkConfig selects the wireless peer transport.
type LinkConfig struct {
	// URL is mqtt://host:port/topic-prefix or ws://host:port/path.
	URL string `toml:"url"`
	// Address overrides the locally derived 6-byte address, hex encoded.
	Address string `toml:"address,omitempty"`
}

// VRXConfig selects the receiver backend and its wiring.
type VRXConfig struct {
	// Kind is one of rx5808, steadyview, rapidfire, hdzero, orqa, fusion
	// or empty for none.
	Kind   string `toml:"kind"`
	Serial string `toml:"serial,omitempty"`
	Baud   int    `toml:"baud"`
	// Pins name GPIO lines of bit-banged backends.
	PinSelect string `toml:"pin_select,omitempty"`
	PinClock  string `toml:"pin_clock,omitempty"`
	PinData   string `toml:"pin_data,omitempty"`
	// ResponseTimeoutMs bounds each request/response round.
	ResponseTimeoutMs uint32 `toml:"response_timeout_ms"`
	// LenientChecksum accepts responses with mismatching checksums.
	LenientChecksum bool `toml:"lenient_checksum"`
}

// UIConfig names the button and LED lines.
type UIConfig struct {
	Button string `toml:"button,omitempty"`
	LED    string `toml:"led,omitempty"`
	// ButtonActiveLow inverts the button input.
	ButtonActiveLow bool `toml:"button_active_low"`
}

// FlasherConfig describes the attached co-processor.
type FlasherConfig struct {
	Serial        string `toml:"serial,omitempty"`
	Baud          int    `toml:"baud"`
	PinReset      string `toml:"pin_reset,omitempty"`
	PinBoot       string `toml:"pin_boot,omitempty"`
	FlashSize     int    `toml:"flash_size"`
	PageSize      int    `toml:"page_size"`
	SyncAttempts  int    `toml:"sync_attempts"`
	SyncTimeoutMs uint32 `toml:"sync_timeout_ms"`
	Verify        bool   `toml:"verify"`
}

// Default returns the compiled-in configuration.
func Default() Device {
	flasher := stk500.DefaultConfig()
	return Device{
		Name:         "backpack",
		SettingsPath: "backpack-settings.pb",
		Link: LinkConfig{
			URL: "mqtt://localhost:1883/backpack/",
		},
		VRX: VRXConfig{
			Baud:              115200,
			ResponseTimeoutMs: 50,
		},
		Flasher: FlasherConfig{
			Baud:          115200,
			FlashSize:     flasher.FlashSize,
			PageSize:      flasher.PageSize,
			SyncAttempts:  flasher.SyncAttempts,
			SyncTimeoutMs: flasher.SyncTimeoutMs,
			Verify:        flasher.Verify,
		},
	}
}

var (
	configPath    string
	flagLinkURL   string
	flagVRXKind   string
	flagVRXSerial string
)

func init() {
	configPath = os.Getenv("BACKPACK_CONFIG")
	flagLinkURL = os.Getenv("BACKPACK_LINK_URL")
	flagVRXKind = os.Getenv("BACKPACK_VRX")
	flagVRXSerial = os.Getenv("BACKPACK_VRX_SERIAL")
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&configPath, "config", configPath, "Configuration file (TOML)")
	flag.StringVar(&flagLinkURL, "link", flagLinkURL, "Peer link URL, mqtt://host:port/prefix or ws://host:port/path")
	flag.StringVar(&flagVRXKind, "vrx", flagVRXKind, "VRX backend")
	flag.StringVar(&flagVRXSerial, "vrx-serial", flagVRXSerial, "VRX serial device")
}

// Load reads path over Default. A missing file is not an error.
func Load(path string) (Device, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// NewDevice loads the file named by flags or environment and applies
// overrides.
func NewDevice() (Device, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return cfg, err
	}
	if flagLinkURL != "" {
		cfg.Link.URL = flagLinkURL
	}
	if flagVRXKind != "" {
		cfg.VRX.Kind = flagVRXKind
	}
	if flagVRXSerial != "" {
		cfg.VRX.Serial = flagVRXSerial
	}
	return cfg, cfg.Validate()
}

// Marshal encodes the configuration as TOML.
func (d *Device) Marshal() ([]byte, error) {
	return toml.Marshal(d)
}

// Validate checks value ranges.
func (d *Device) Validate() error {
	switch d.VRX.Kind {
	case "", "rx5808", "steadyview", "rapidfire", "hdzero", "orqa", "fusion":
	default:
		return fmt.Errorf("vrx.kind %q unknown", d.VRX.Kind)
	}
	if d.Flasher.PageSize <= 0 || d.Flasher.PageSize > 256 || d.Flasher.PageSize%2 != 0 {
		return fmt.Errorf("flasher.page_size %d invalid", d.Flasher.PageSize)
	}
	if d.Flasher.FlashSize <= 0 {
		return fmt.Errorf("flasher.flash_size %d invalid", d.Flasher.FlashSize)
	}
	if d.Flasher.SyncAttempts <= 0 {
		return fmt.Errorf("flasher.sync_attempts %d invalid", d.Flasher.SyncAttempts)
	}
	if d.Flasher.SyncTimeoutMs == 0 {
		return fmt.Errorf("flasher.sync_timeout_ms must be positive")
	}
	if d.Link.Address != "" {
		if _, err := ParseAddress(d.Link.Address); err != nil {
			return fmt.Errorf("link.address: %w", err)
		}
	}
	return nil
}

// ParseAddress parses 12 hex digits, optionally colon separated.
func ParseAddress(s string) (addr Address, err error) {
	digits := make([]byte, 0, 12)
	for i := 0; i < len(s); i++ {
		if s[i] != ':' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) != 2*AddressLen {
		return addr, fmt.Errorf("address %q must have 12 hex digits", s)
	}
	for i := range addr {
		v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
		if err != nil {
			return addr, fmt.Errorf("address %q: %w", s, err)
		}
		addr[i] = byte(v)
	}
	return addr, nil
}
