package vrx

import (
	"time"

	"github.com/robotalks/backpack/pkg/hal"
)

// RTC6705 synthesizer registers.
const (
	rtcRegA byte = 0x00
	rtcRegB byte = 0x01

	rtcWrite = 1
	rtcRead  = 0

	rtcAddrBits = 4
	rtcDataBits = 20
	rtcWordBits = rtcAddrBits + 1 + rtcDataBits

	// rtcAutoSearchOff is written to register A before retuning receivers
	// that otherwise start scanning on their own.
	rtcAutoSearchOff uint32 = 0x8

	rtcHalfPeriod = 1 * time.Microsecond
)

// RegisterValue converts MHz into the register B value.
func RegisterValue(freq uint16) uint32 {
	n := uint32(freq-479) / 2
	return (n/32)<<7 | n%32
}

// RegisterWord builds the serial word writing value into addr.
func RegisterWord(addr byte, value uint32) uint32 {
	return uint32(addr&0x0f) | rtcWrite<<4 | (value&0xfffff)<<5
}

// rtc6705 bit-bangs the three wire synthesizer interface. Bits go out
// least significant first, sampled on the rising clock edge.
type rtc6705 struct {
	clock hal.Clock
	sel   hal.Pin
	sck   hal.Pin
	data  hal.Pin
}

func (r *rtc6705) init() error {
	if err := r.sel.Out(true); err != nil {
		return err
	}
	if err := r.sck.Out(false); err != nil {
		return err
	}
	return r.data.Out(false)
}

func (r *rtc6705) clockBit(bit bool) {
	r.data.Out(bit)
	r.clock.Delay(rtcHalfPeriod)
	r.sck.Out(true)
	r.clock.Delay(rtcHalfPeriod)
	r.sck.Out(false)
}

func (r *rtc6705) writeWord(word uint32) {
	r.sel.Out(false)
	r.clock.Delay(rtcHalfPeriod)
	for i := uint(0); i < rtcWordBits; i++ {
		r.clockBit(word>>i&1 != 0)
	}
	r.data.Out(false)
	r.sel.Out(true)
	r.clock.Delay(rtcHalfPeriod)
}

func (r *rtc6705) readRegister(addr byte) uint32 {
	header := uint32(addr&0x0f) | rtcRead<<4
	r.sel.Out(false)
	r.clock.Delay(rtcHalfPeriod)
	for i := uint(0); i < rtcAddrBits+1; i++ {
		r.clockBit(header>>i&1 != 0)
	}
	r.data.In()
	var value uint32
	for i := uint(0); i < rtcDataBits; i++ {
		r.clock.Delay(rtcHalfPeriod)
		r.sck.Out(true)
		if r.data.Read() {
			value |= 1 << i
		}
		r.clock.Delay(rtcHalfPeriod)
		r.sck.Out(false)
	}
	r.data.Out(false)
	r.sel.Out(true)
	r.clock.Delay(rtcHalfPeriod)
	return value
}
