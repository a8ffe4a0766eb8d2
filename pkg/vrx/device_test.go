package vrx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/backpack/pkg/config"
	fx "github.com/robotalks/backpack/pkg/framework"
	"github.com/robotalks/backpack/pkg/hal/sim"
)

func TestDeviceAppliesRequestedChannel(t *testing.T) {
	chip := newFakeSynth()
	clock := sim.NewClock(0)
	store := config.NewMemStore()
	settings := config.LoadSettings(store)
	dev := NewDevice(NewRX5808(chip.deps(clock)), settings)
	require.Equal(t, "vrx.rx5808", dev.Name())

	loop := fx.NewLoop(clock)
	loop.AddDevice(dev)
	require.NoError(t, loop.Init())
	require.Equal(t, UnknownIndex, dev.Current())

	dev.RequestChannel(10)
	loop.TriggerEvent()
	loop.Tick(5)
	require.Equal(t, uint8(10), dev.Current())
	require.Equal(t, RegisterValue(5771), chip.regs[rtcRegB])
	committed, ok := store.Committed("channel")
	require.True(t, ok)
	require.Equal(t, []byte{10}, committed)

	commits := store.Commits
	require.NoError(t, dev.SetChannelIndex(10))
	require.Equal(t, commits, store.Commits)
}

func TestDeviceDirectSetSupersedesRequest(t *testing.T) {
	chip := newFakeSynth()
	clock := sim.NewClock(0)
	dev := NewDevice(NewRX5808(chip.deps(clock)), nil)
	loop := fx.NewLoop(clock)
	loop.AddDevice(dev)
	require.NoError(t, loop.Init())

	dev.RequestChannel(3)
	require.NoError(t, dev.SetChannelIndex(10))
	loop.TriggerEvent()
	loop.Tick(5)
	require.Equal(t, uint8(10), dev.Current())
	require.Equal(t, RegisterValue(5771), chip.regs[rtcRegB])
}

func TestDeviceKeepsCurrentOnFailure(t *testing.T) {
	g := newFakeGoggles()
	wrong := uint8(1)
	g.stuckChannel = &wrong
	a, _ := newTestHDZero(g)
	dev := NewDevice(a, nil)
	require.Error(t, dev.SetChannelIndex(10))
	require.Equal(t, UnknownIndex, dev.Current())
}

func TestDevicePollsRapidfire(t *testing.T) {
	chip := newFakeShifter()
	clock := sim.NewClock(0)
	dev := NewDevice(NewRapidfire(Deps{Clock: clock, PinSelect: chip.sel, PinClock: chip.sck, PinData: chip.data}), nil)
	loop := fx.NewLoop(clock)
	loop.AddDevice(dev)
	require.NoError(t, loop.Init())

	_, err := dev.Do(loop, SetChannel{Index: 0})
	require.NoError(t, err)
	for now := uint32(1000); now <= 1500; now += 10 {
		loop.Tick(now)
	}
	require.Len(t, chip.frames, 5)
	require.Equal(t, RapidfireFrame(rfCmdBand, rfDirSet, 5), chip.frames[0])
	require.Equal(t, RapidfireFrame(rfCmdChannel, rfDirSet, 1), chip.frames[1])
}
