package stk500

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/backpack/pkg/framework"
	"github.com/robotalks/backpack/pkg/hal/sim"
)

type fakeBootloader struct {
	port  *sim.Port
	flash []byte
	addr  int
	cmds  map[byte]int

	noSync      bool
	failProgAt  int
	corruptRead bool
}

func newFakeBootloader() *fakeBootloader {
	b := &fakeBootloader{flash: make([]byte, 1024), cmds: make(map[byte]int), failProgAt: -1}
	b.port = &sim.Port{OnWrite: func(p *sim.Port, data []byte) { b.handle(data) }}
	return b
}

func (b *fakeBootloader) handle(req []byte) {
	cmd := req[0]
	b.cmds[cmd]++
	if req[len(req)-1] != CrcEOP {
		b.port.Inject(RespNoSync)
		return
	}
	switch cmd {
	case CmdGetSync:
		if b.noSync {
			return
		}
	case CmdLoadAddress:
		b.addr = (int(req[1]) | int(req[2])<<8) * 2
	case CmdProgPage:
		if b.cmds[cmd]-1 == b.failProgAt {
			b.port.Inject(RespInSync, RespFailed)
			return
		}
		n := int(req[1])<<8 | int(req[2])
		copy(b.flash[b.addr:], req[4:4+n])
	case CmdReadPage:
		n := int(req[1])<<8 | int(req[2])
		page := append([]byte(nil), b.flash[b.addr:b.addr+n]...)
		if b.corruptRead {
			page[n-1] ^= 0xff
		}
		b.port.Inject(RespInSync)
		b.port.Inject(page...)
		b.port.Inject(RespOK)
		return
	}
	b.port.Inject(RespInSync, RespOK)
}

func testImage(n int) []byte {
	img := make([]byte, n)
	for i := range img {
		img[i] = byte(i*13 + 1)
	}
	return img
}

func runToCompletion(t *testing.T, f *Flasher) Result {
	for i := 0; f.Busy(); i++ {
		require.True(t, i < 1000, "flasher did not finish")
		f.Timeout(nil)
	}
	res, ok := f.Result()
	require.True(t, ok)
	return res
}

func TestFlashProgramsAndVerifies(t *testing.T) {
	boot := newFakeBootloader()
	clock := sim.NewClock(0)
	resetPin, bootPin := &sim.Pin{}, &sim.Pin{}
	var progress []Progress
	var done []Result
	f := New(boot.port, clock, resetPin, bootPin,
		WithFlash(1024, 128),
		WithProgress(func(p Progress) { progress = append(progress, p) }),
		WithDone(func(r Result) { done = append(done, r) }))
	require.NoError(t, f.Initialize(nil))

	img := testImage(300)
	require.NoError(t, f.Begin(img, 0))
	require.Equal(t, ErrBusy, f.Begin(img, 0))

	require.Equal(t, fx.Duration(10), f.Timeout(nil))
	require.False(t, resetPin.Level())
	require.True(t, bootPin.Level())
	require.Equal(t, fx.Duration(50), f.Timeout(nil))
	require.True(t, resetPin.Level())

	res := runToCompletion(t, f)
	require.True(t, res.OK(), "%v", res.Err)
	require.Equal(t, PhaseDone, res.Phase)
	require.Equal(t, 300, res.Written)
	require.Equal(t, 1, res.SyncAttempts)
	require.Equal(t, img, boot.flash[:300])
	require.Equal(t, 3, boot.cmds[CmdProgPage])
	require.Equal(t, 3, boot.cmds[CmdReadPage])
	require.Equal(t, 6, boot.cmds[CmdLoadAddress])
	require.Equal(t, 1, boot.cmds[CmdLeaveProgMode])
	require.Len(t, progress, 6)
	require.Equal(t, Progress{Phase: PhaseProgram, Written: 300, Total: 300}, progress[2])
	require.Equal(t, []Result{res}, done)
	require.False(t, bootPin.Level())
	require.False(t, f.Busy())
}

func TestFlashWireFormat(t *testing.T) {
	require.Equal(t, []byte{0x55, 0x40, 0x00, 0x20}, loadAddressCmd(0x80))
	require.Equal(t, []byte{0x64, 0x00, 0x02, 'F', 0xaa, 0xbb, 0x20}, progPageCmd([]byte{0xaa, 0xbb}))
	require.Equal(t, []byte{0x74, 0x01, 0x00, 'F', 0x20}, readPageCmd(256))
}

func TestFlashSyncAttemptBound(t *testing.T) {
	const attempts, timeout = 5, 20
	boot := newFakeBootloader()
	boot.noSync = true
	clock := sim.NewClock(0)
	f := New(boot.port, clock, hal0(), hal0(), WithSync(attempts, timeout))
	require.NoError(t, f.Begin(testImage(16), 0))
	f.Timeout(nil)
	f.Timeout(nil)
	require.Equal(t, fx.DurationImmediately, f.Timeout(nil))

	start := clock.Millis()
	res := runToCompletion(t, f)
	elapsed := clock.Millis() - start
	require.Equal(t, ErrNoSync, res.Err)
	require.Equal(t, PhaseSync, res.Phase)
	require.Equal(t, attempts, res.SyncAttempts)
	require.Equal(t, attempts, boot.cmds[CmdGetSync])
	require.True(t, elapsed >= attempts*timeout && elapsed <= attempts*(timeout+1), "elapsed %d", elapsed)
	require.Zero(t, boot.cmds[CmdEnterProgMode])
}

func TestFlashAbortsAfterSync(t *testing.T) {
	boot := newFakeBootloader()
	boot.failProgAt = 1
	bootPin := &sim.Pin{}
	f := New(boot.port, sim.NewClock(0), &sim.Pin{}, bootPin, WithFlash(1024, 128))
	require.NoError(t, f.Begin(testImage(300), 0))
	res := runToCompletion(t, f)

	require.False(t, res.OK())
	perr, ok := res.Err.(*ProtocolError)
	require.True(t, ok)
	require.Equal(t, PhaseProgram, perr.Phase)
	require.Equal(t, CmdProgPage, perr.Command)
	require.Equal(t, uint32(128), perr.Address)
	require.Equal(t, []byte{RespInSync, RespFailed}, perr.Reply)
	require.Equal(t, 128, res.Written)
	require.Equal(t, 2, boot.cmds[CmdProgPage])
	require.Equal(t, 1, boot.cmds[CmdGetSync])
	require.Zero(t, boot.cmds[CmdLeaveProgMode])
	require.True(t, bootPin.Level())
}

func TestFlashVerifyMismatch(t *testing.T) {
	boot := newFakeBootloader()
	boot.corruptRead = true
	f := New(boot.port, sim.NewClock(0), hal0(), hal0(), WithFlash(1024, 64))
	require.NoError(t, f.Begin(testImage(64), 0x100))
	res := runToCompletion(t, f)
	verr, ok := res.Err.(*VerifyError)
	require.True(t, ok)
	require.Equal(t, uint32(0x100), verr.Address)
	require.Equal(t, 63, verr.Offset)
	require.Equal(t, PhaseVerify, res.Phase)
}

func TestFlashNoVerify(t *testing.T) {
	boot := newFakeBootloader()
	f := New(boot.port, sim.NewClock(0), hal0(), hal0(), WithVerify(false))
	require.NoError(t, f.Begin(testImage(10), 0))
	res := runToCompletion(t, f)
	require.True(t, res.OK())
	require.Zero(t, boot.cmds[CmdReadPage])
	require.Equal(t, testImage(10), boot.flash[:10])
}

func TestFlashRefusesLargeImage(t *testing.T) {
	f := New(&sim.Port{}, sim.NewClock(0), hal0(), hal0(), WithFlash(256, 64))
	err := f.Begin(testImage(200), 64)
	require.Error(t, err)
	tooLarge, ok := err.(*ImageTooLargeError)
	require.True(t, ok)
	require.Equal(t, 264, tooLarge.Size)
	require.False(t, f.Busy())
	require.NoError(t, f.Begin(testImage(192), 64))
}

func TestFlasherOnLoop(t *testing.T) {
	boot := newFakeBootloader()
	clock := sim.NewClock(0)
	f := New(boot.port, clock, hal0(), hal0(), WithFlash(1024, 128))
	loop := fx.NewLoop(clock)
	loop.AddDevice(f)
	require.NoError(t, loop.Init())

	loop.Tick(clock.Millis())
	require.NoError(t, f.Begin(testImage(200), 0))
	loop.TriggerEvent()
	for i := 0; i < 200 && f.Busy(); i++ {
		clock.Advance(time.Millisecond)
		loop.Tick(clock.Millis())
	}
	res, ok := f.Result()
	require.True(t, ok)
	require.True(t, res.OK())
}

func hal0() *sim.Pin {
	return &sim.Pin{}
}
