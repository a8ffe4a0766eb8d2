// Package stk500 reflashes an attached co-processor through its STK500v1
// serial bootloader.
//
// The Flasher is a scheduler device. Reset and boot hold times are
// returned to the loop as durations, and each tick performs at most one
// bounded request/response exchange, so a firmware update never stalls
// the other devices for longer than one reply timeout.
//
// Sequence:
//
//	reset       assert boot select, hold reset low, release, wait boot delay
//	sync        GET_SYNC up to SyncAttempts times
//	enter       ENTER_PROGMODE
//	program     LOAD_ADDRESS + PROG_PAGE per page
//	verify      LOAD_ADDRESS + READ_PAGE per page (optional)
//	leave       LEAVE_PROGMODE
//
// Any failure after sync aborts and leaves the target in its bootloader.
package stk500
