package connection

import (
	"testing"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/backpack/pkg/framework"
)

type testClock uint32

func (c *testClock) Millis() uint32 { return uint32(*c) }

func TestDeviceDrivesBindingTimeout(t *testing.T) {
	m, _ := newTestMachine()
	var clock testClock
	loop := fx.NewLoop(&clock)
	loop.AddDevice(NewDevice(m))
	require.NoError(t, loop.Init())
	require.Equal(t, StateRunning, m.State())

	loop.Tick(2001)
	require.Equal(t, uint8(0), m.Settings().BootCount())

	require.True(t, m.EnterBinding(5000))
	loop.TriggerEvent()
	loop.Tick(5000)
	loop.Tick(5000 + BindingTimeoutMs)
	require.Equal(t, StateBinding, m.State())
	loop.Tick(5000 + BindingTimeoutMs + 1)
	require.Equal(t, StateRunning, m.State())
}
