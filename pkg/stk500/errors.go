package stk500

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy rejects Begin while a session is running.
	ErrBusy = errors.New("stk500: flasher busy")
	// ErrNoSync indicates the bootloader never answered GET_SYNC.
	ErrNoSync = errors.New("stk500: bootloader not in sync")
)

// ImageTooLargeError rejects images exceeding the flash.
type ImageTooLargeError struct {
	Size     int
	Capacity int
}

func (e *ImageTooLargeError) Error() string {
	return fmt.Sprintf("stk500: image of %d bytes exceeds flash capacity %d", e.Size, e.Capacity)
}

// ProtocolError reports a missing or unexpected reply.
type ProtocolError struct {
	Phase   Phase
	Command byte
	Address uint32
	Reply   []byte
}

func (e *ProtocolError) Error() string {
	if len(e.Reply) == 0 {
		return fmt.Sprintf("stk500: %s: no reply to 0x%02x at 0x%04x", e.Phase, e.Command, e.Address)
	}
	return fmt.Sprintf("stk500: %s: bad reply % x to 0x%02x at 0x%04x", e.Phase, e.Reply, e.Command, e.Address)
}

// VerifyError reports a page read back differently.
type VerifyError struct {
	Address uint32
	Offset  int
	Want    byte
	Got     byte
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("stk500: verify mismatch at 0x%04x: want 0x%02x, got 0x%02x",
		e.Address+uint32(e.Offset), e.Want, e.Got)
}

var errTimeout = errors.New("stk500: reply timeout")
