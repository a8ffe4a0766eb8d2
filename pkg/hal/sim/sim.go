// Package sim provides in-memory clock, pins and ports used to exercise
// device logic without hardware.
package sim

import (
	"sync"
	"time"
)

// Clock is a virtual clock. Delay advances it instantly.
type Clock struct {
	lock sync.Mutex
	now  time.Duration
}

// NewClock creates a Clock starting at the given millisecond.
func NewClock(ms uint32) *Clock {
	return &Clock{now: time.Duration(ms) * time.Millisecond}
}

// Millis implements hal.Clock.
func (c *Clock) Millis() uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return uint32(c.now / time.Millisecond)
}

// Delay implements hal.Clock.
func (c *Clock) Delay(d time.Duration) {
	c.Advance(d)
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.lock.Lock()
	c.now += d
	c.lock.Unlock()
}

// Set moves the clock to an absolute millisecond.
func (c *Clock) Set(ms uint32) {
	c.lock.Lock()
	c.now = time.Duration(ms) * time.Millisecond
	c.lock.Unlock()
}

// Pin records output levels. Input, when set, supplies values to Read
// while the pin is an input.
type Pin struct {
	Name   string
	Levels []bool
	Input  func() bool
	OnOut  func(high bool)

	level  bool
	output bool
}

// Out implements hal.Pin.
func (p *Pin) Out(high bool) error {
	p.output = true
	p.level = high
	p.Levels = append(p.Levels, high)
	if p.OnOut != nil {
		p.OnOut(high)
	}
	return nil
}

// In implements hal.Pin.
func (p *Pin) In() error {
	p.output = false
	return nil
}

// Read implements hal.Pin.
func (p *Pin) Read() bool {
	if !p.output && p.Input != nil {
		return p.Input()
	}
	return p.level
}

// IsOutput tells the current direction.
func (p *Pin) IsOutput() bool {
	return p.output
}

// Level returns the last driven level.
func (p *Pin) Level() bool {
	return p.level
}

// Port is a scripted byte stream. Every Write is recorded and passed to
// OnWrite, which may Inject a reply.
type Port struct {
	OnWrite func(p *Port, data []byte)

	lock    sync.Mutex
	rx      []byte
	writes  [][]byte
	written []byte
}

// Read implements hal.Port without blocking.
func (p *Port) Read(buf []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	n := copy(buf, p.rx)
	p.rx = p.rx[n:]
	return n, nil
}

// Write implements hal.Port.
func (p *Port) Write(data []byte) (int, error) {
	cp := append([]byte(nil), data...)
	p.lock.Lock()
	p.writes = append(p.writes, cp)
	p.written = append(p.written, cp...)
	p.lock.Unlock()
	if p.OnWrite != nil {
		p.OnWrite(p, cp)
	}
	return len(data), nil
}

// Inject queues bytes to be read.
func (p *Port) Inject(data ...byte) {
	p.lock.Lock()
	p.rx = append(p.rx, data...)
	p.lock.Unlock()
}

// Writes returns each Write call's bytes.
func (p *Port) Writes() [][]byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([][]byte(nil), p.writes...)
}

// Written returns all bytes written so far.
func (p *Port) Written() []byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]byte(nil), p.written...)
}

// Reset drops recorded writes and pending input.
func (p *Port) Reset() {
	p.lock.Lock()
	p.rx, p.writes, p.written = nil, nil, nil
	p.lock.Unlock()
}
