// Package vrx tunes attached video receivers. Every receiver family is an
// Adapter selected at runtime from configuration.
package vrx

import (
	"errors"
	"fmt"

	fx "github.com/robotalks/backpack/pkg/framework"
)

var (
	// ErrUnsupported indicates the backend has no encoding for a command.
	ErrUnsupported = errors.New("vrx: command not supported")
	// ErrNotConfirmed indicates the receiver never reported the requested
	// value within the retry budget.
	ErrNotConfirmed = errors.New("vrx: not confirmed")
)

// UnknownIndex is reported when a receiver's channel cannot be determined.
const UnknownIndex uint8 = 255

// InvalidIndexError rejects an index outside the channel table.
type InvalidIndexError struct {
	Index uint8
}

// Error implements error.
func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("vrx: channel index %d out of range", e.Index)
}

// Adapter is one receiver backend.
type Adapter interface {
	Name() string
	// Init prepares the hardware. Called once.
	Init() error
	// SendIndexCmd tunes to a channel table index.
	SendIndexCmd(index uint8) error
	// Do executes a command, returning reply bytes where the command
	// queries the receiver.
	Do(Command) ([]byte, error)
}

// Poller is implemented by adapters with deferred work.
type Poller interface {
	// Poll runs due work and returns when it wants to be polled again.
	Poll(now uint32) fx.Duration
}

// Command is one of the request types below.
type Command interface {
	command()
}

// SetChannel tunes to a channel index.
type SetChannel struct{ Index uint8 }

// SetBand selects a 1-based band keeping the channel.
type SetBand struct{ Band uint8 }

// Buzzer sounds the receiver buzzer.
type Buzzer struct{}

// GetFirmwareVersion queries the receiver firmware.
type GetFirmwareVersion struct{}

// GetRSSI queries signal strength.
type GetRSSI struct{}

// GetVoltage queries the receiver supply.
type GetVoltage struct{}

// SetRecordingState starts or stops DVR recording, optionally after a
// delay in seconds.
type SetRecordingState struct {
	Enabled      bool
	DelaySeconds uint16
}

// SetOSDElement places raw element bytes on the receiver OSD.
type SetOSDElement struct{ Payload []byte }

func (SetChannel) command()         {}
func (SetBand) command()            {}
func (Buzzer) command()             {}
func (GetFirmwareVersion) command() {}
func (GetRSSI) command()            {}
func (GetVoltage) command()         {}
func (SetRecordingState) command()  {}
func (SetOSDElement) command()      {}

func checkIndex(index uint8) error {
	if index >= 48 {
		return &InvalidIndexError{Index: index}
	}
	return nil
}
