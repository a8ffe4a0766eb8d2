package stk500

import (
	"bytes"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/backpack/pkg/framework"
	"github.com/robotalks/backpack/pkg/hal"
)

// Flasher programs the co-processor as a scheduler device.
type Flasher struct {
	fx.BaseDevice

	port  hal.Port
	clock hal.Clock
	reset hal.Pin
	boot  hal.Pin
	cfg   Config

	session *Session
	last    *Result
}

// New creates a Flasher. reset is active low; boot selects the
// bootloader when high. Either pin may be hal.NopPin.
func New(port hal.Port, clock hal.Clock, reset, boot hal.Pin, opts ...Option) *Flasher {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Flasher{port: port, clock: clock, reset: reset, boot: boot, cfg: cfg}
}

// Name implements Named.
func (f *Flasher) Name() string {
	return "stk500"
}

// Initialize implements Device.
func (f *Flasher) Initialize(fx.DeviceContext) error {
	if err := f.boot.Out(false); err != nil {
		return err
	}
	return f.reset.Out(true)
}

// Begin arms a session. The loop must get an event to start it.
func (f *Flasher) Begin(image []byte, startAddress uint32) error {
	if f.session != nil {
		return ErrBusy
	}
	if size := int(startAddress) + len(image); size > f.cfg.FlashSize {
		return &ImageTooLargeError{Size: size, Capacity: f.cfg.FlashSize}
	}
	f.session = &Session{Image: image, StartAddress: startAddress, Phase: PhaseIdle}
	f.last = nil
	glog.Infof("stk500: flashing %d bytes at 0x%04x", len(image), startAddress)
	return nil
}

// Busy tells whether a session is in flight.
func (f *Flasher) Busy() bool {
	return f.session != nil
}

// Result returns the outcome of the last finished session.
func (f *Flasher) Result() (Result, bool) {
	if f.last == nil {
		return Result{}, false
	}
	return *f.last, true
}

// Event implements Device.
func (f *Flasher) Event(fx.DeviceContext) fx.Duration {
	if f.session != nil && f.session.Phase == PhaseIdle {
		return fx.DurationImmediately
	}
	return fx.DurationIgnore
}

// Timeout implements Device.
func (f *Flasher) Timeout(fx.DeviceContext) fx.Duration {
	if f.session == nil {
		return fx.DurationNever
	}
	return f.step(f.session)
}

func (f *Flasher) step(s *Session) fx.Duration {
	switch s.Phase {
	case PhaseIdle:
		f.boot.Out(true)
		f.reset.Out(false)
		s.Phase = PhaseReset
		return fx.Duration(f.cfg.ResetHoldMs)
	case PhaseReset:
		f.reset.Out(true)
		s.Phase = PhaseBootDelay
		return fx.Duration(f.cfg.BootDelayMs)
	case PhaseBootDelay:
		s.Phase = PhaseSync
		return fx.DurationImmediately
	case PhaseSync:
		s.SyncAttempts++
		f.drain()
		reply, err := f.exchange(simpleCmd(CmdGetSync), 2, f.cfg.SyncTimeoutMs)
		if err == nil && bytes.Equal(reply, []byte{RespInSync, RespOK}) {
			glog.V(2).Infof("stk500: in sync after %d attempts", s.SyncAttempts)
			s.Phase = PhaseEnterProgMode
			return fx.DurationImmediately
		}
		if s.SyncAttempts >= f.cfg.SyncAttempts {
			return f.finish(s, ErrNoSync)
		}
		return fx.DurationImmediately
	case PhaseEnterProgMode:
		if err := f.command(s, CmdEnterProgMode, simpleCmd(CmdEnterProgMode), 0); err != nil {
			return f.finish(s, err)
		}
		s.Phase = PhaseProgram
		return fx.DurationImmediately
	case PhaseProgram:
		addr, data := s.page(f.cfg.PageSize)
		if err := f.command(s, CmdLoadAddress, loadAddressCmd(addr), addr); err != nil {
			return f.finish(s, err)
		}
		if err := f.command(s, CmdProgPage, progPageCmd(data), addr); err != nil {
			return f.finish(s, err)
		}
		s.Offset += len(data)
		f.progress(s)
		if s.Offset >= s.Total() {
			s.Offset = 0
			if f.cfg.Verify {
				s.Phase = PhaseVerify
			} else {
				s.Phase = PhaseLeaveProgMode
			}
		}
		return fx.DurationImmediately
	case PhaseVerify:
		addr, data := s.page(f.cfg.PageSize)
		if err := f.verifyPage(s, addr, data); err != nil {
			return f.finish(s, err)
		}
		s.Offset += len(data)
		f.progress(s)
		if s.Offset >= s.Total() {
			s.Offset = s.Total()
			s.Phase = PhaseLeaveProgMode
		}
		return fx.DurationImmediately
	case PhaseLeaveProgMode:
		if err := f.command(s, CmdLeaveProgMode, simpleCmd(CmdLeaveProgMode), 0); err != nil {
			return f.finish(s, err)
		}
		f.boot.Out(false)
		s.Offset = s.Total()
		return f.finish(s, nil)
	}
	return fx.DurationNever
}

func (f *Flasher) finish(s *Session, err error) fx.Duration {
	res := Result{Err: err, Phase: s.Phase, Written: s.Offset, SyncAttempts: s.SyncAttempts}
	if err != nil {
		glog.Errorf("stk500: flash aborted in %s: %v", s.Phase, err)
	} else {
		res.Phase = PhaseDone
		glog.Infof("stk500: flashed %d bytes", s.Total())
	}
	f.session, f.last = nil, &res
	if f.cfg.Done != nil {
		f.cfg.Done(res)
	}
	return fx.DurationNever
}

func (f *Flasher) progress(s *Session) {
	if f.cfg.Progress != nil {
		f.cfg.Progress(Progress{Phase: s.Phase, Written: s.Offset, Total: s.Total()})
	}
}

// command sends req and requires INSYNC OK.
func (f *Flasher) command(s *Session, cmd byte, req []byte, addr uint32) error {
	reply, err := f.exchange(req, 2, f.cfg.ReplyTimeoutMs)
	if err != nil || reply[0] != RespInSync || reply[1] != RespOK {
		return &ProtocolError{Phase: s.Phase, Command: cmd, Address: addr, Reply: reply}
	}
	return nil
}

func (f *Flasher) verifyPage(s *Session, addr uint32, data []byte) error {
	if err := f.command(s, CmdLoadAddress, loadAddressCmd(addr), addr); err != nil {
		return err
	}
	reply, err := f.exchange(readPageCmd(len(data)), len(data)+2, f.cfg.ReplyTimeoutMs)
	if err != nil || reply[0] != RespInSync || reply[len(reply)-1] != RespOK {
		return &ProtocolError{Phase: s.Phase, Command: CmdReadPage, Address: addr, Reply: reply}
	}
	for i, b := range reply[1 : len(reply)-1] {
		if b != data[i] {
			return &VerifyError{Address: addr, Offset: i, Want: data[i], Got: b}
		}
	}
	return nil
}

// exchange writes req and collects n reply bytes within timeoutMs. A
// partial reply is returned with errTimeout.
func (f *Flasher) exchange(req []byte, n int, timeoutMs uint32) ([]byte, error) {
	if _, err := f.port.Write(req); err != nil {
		return nil, err
	}
	reply := make([]byte, 0, n)
	buf := make([]byte, n)
	start := f.clock.Millis()
	for len(reply) < n {
		cnt, err := f.port.Read(buf[:n-len(reply)])
		if err != nil {
			return reply, err
		}
		reply = append(reply, buf[:cnt]...)
		if len(reply) >= n {
			break
		}
		if f.clock.Millis()-start > timeoutMs {
			return reply, errTimeout
		}
		if cnt == 0 {
			f.clock.Delay(time.Millisecond)
		}
	}
	return reply, nil
}

func (f *Flasher) drain() {
	buf := make([]byte, 64)
	for i := 0; i < 16; i++ {
		if n, err := f.port.Read(buf); err != nil || n == 0 {
			return
		}
	}
}
