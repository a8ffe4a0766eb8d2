package backpack

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/backpack/pkg/config"
	"github.com/robotalks/backpack/pkg/connection"
	"github.com/robotalks/backpack/pkg/msp"
	"github.com/robotalks/backpack/pkg/transport"
	"github.com/robotalks/backpack/pkg/vrx"
)

var (
	localAddr = config.Address{0x02, 0xbb, 0, 0, 0, 0x01}
	boundAddr = config.Address{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	otherAddr = config.Address{0x02, 0xcc, 0, 0, 0, 0x02}
)

type testClock uint32

func (c *testClock) Millis() uint32 { return uint32(*c) }

type fakeAdapter struct {
	sent []uint8
	cmds []vrx.Command
}

func (a *fakeAdapter) Name() string { return "fake" }
func (a *fakeAdapter) Init() error  { return nil }

func (a *fakeAdapter) SendIndexCmd(index uint8) error {
	a.sent = append(a.sent, index)
	return nil
}

func (a *fakeAdapter) Do(cmd vrx.Command) ([]byte, error) {
	a.cmds = append(a.cmds, cmd)
	switch c := cmd.(type) {
	case vrx.SetChannel:
		return nil, a.SendIndexCmd(c.Index)
	case vrx.GetRSSI:
		return []byte{42}, nil
	case vrx.Buzzer, vrx.SetRecordingState, vrx.SetOSDElement:
		return nil, nil
	}
	return nil, vrx.ErrUnsupported
}

type fakeWifi struct{ started int }

func (w *fakeWifi) StartWifi() error {
	w.started++
	return nil
}

type harness struct {
	t       *testing.T
	clock   testClock
	store   *config.MemStore
	app     *App
	adapter *fakeAdapter
	wifi    *fakeWifi
	reboots int
	peers   map[config.Address]*transport.Endpoint
	replies []*msp.Packet
}

func newHarness(t *testing.T, setup func(*config.Settings)) *harness {
	h := &harness{t: t, store: config.NewMemStore()}
	if setup != nil {
		settings := config.LoadSettings(h.store)
		setup(settings)
		require.NoError(t, settings.Commit())
	}
	h.boot()
	return h
}

// boot builds a fresh App over the committed store, like a power cycle.
func (h *harness) boot() {
	h.adapter = &fakeAdapter{}
	h.wifi = &fakeWifi{}
	h.replies = nil
	h.peers = make(map[config.Address]*transport.Endpoint)
	hub := transport.NewHub()
	for _, addr := range []config.Address{boundAddr, otherAddr} {
		ep := hub.Join(addr)
		ep.SetReceiver(func(src config.Address, data []byte) {
			require.Equal(h.t, localAddr, src)
			var codec msp.Codec
			h.replies = append(h.replies, codec.Decode(data)...)
		})
		h.peers[addr] = ep
	}
	h.app = New(&h.clock, Options{
		Settings: config.LoadSettings(h.store),
		Link:     hub.Join(localAddr),
		Adapter:  h.adapter,
		Rebooter: RebootFunc(func() error { h.reboots++; return nil }),
		Wifi:     h.wifi,
	})
	require.NoError(h.t, h.app.Loop.Init())
	h.app.Loop.Tick(h.clock.Millis())
}

func (h *harness) send(from config.Address, pkt *msp.Packet) {
	require.NoError(h.t, h.peers[from].Send(localAddr, pkt.Bytes()))
	h.app.Loop.Tick(h.clock.Millis())
}

func (h *harness) advance(ms uint32) {
	h.clock += testClock(ms)
	h.app.Loop.Tick(h.clock.Millis())
}

func (h *harness) lastReply() *msp.Packet {
	require.NotEmpty(h.t, h.replies)
	return h.replies[len(h.replies)-1]
}

func TestBindOverLink(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, connection.StateRunning, h.app.Machine.State())

	h.advance(100)
	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackSetMode, msp.ModeBinding))
	require.Equal(t, connection.StateBinding, h.app.Machine.State())
	require.Equal(t, uint32(100), h.app.Machine.BindingStart())

	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackSetChannelIndex, 7))
	require.NotContains(t, h.adapter.sent, uint8(7))

	h.send(otherAddr, msp.NewCommand(msp.FuncELRSBind, boundAddr[:]...))
	require.Equal(t, connection.StateRunning, h.app.Machine.State())
	require.Equal(t, boundAddr, h.app.Settings.PeerAddress())
	committed, ok := h.store.Committed("peer")
	require.True(t, ok)
	require.Equal(t, boundAddr[:], committed)

	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackSetChannelIndex, 7))
	require.NotContains(t, h.adapter.sent, uint8(7))
	h.send(boundAddr, msp.NewCommand(msp.FuncBackpackSetChannelIndex, 7))
	require.Contains(t, h.adapter.sent, uint8(7))
}

func TestBindingTimesOutOnLoop(t *testing.T) {
	h := newHarness(t, nil)
	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackSetMode, msp.ModeBinding))
	require.Equal(t, connection.StateBinding, h.app.Machine.State())
	h.advance(connection.BindingTimeoutMs)
	require.Equal(t, connection.StateBinding, h.app.Machine.State())
	h.advance(1)
	require.Equal(t, connection.StateRunning, h.app.Machine.State())
	require.True(t, h.app.Settings.PeerAddress().IsZero())
}

func TestRestoresPersistedChannel(t *testing.T) {
	h := newHarness(t, func(s *config.Settings) { s.SetChannelIndex(10) })
	require.Equal(t, []uint8{10}, h.adapter.sent)
	require.Equal(t, uint8(10), h.app.VRX.Current())
}

func TestRestoresChannelAfterBootBinding(t *testing.T) {
	h := newHarness(t, func(s *config.Settings) {
		s.SetChannelIndex(10)
		s.SetBootCount(connection.BootCountBindThreshold)
	})
	require.Equal(t, connection.StateBinding, h.app.Machine.State())
	require.Empty(t, h.adapter.sent)

	h.advance(connection.BindingTimeoutMs + 1)
	require.Equal(t, connection.StateRunning, h.app.Machine.State())
	h.advance(1)
	require.Equal(t, []uint8{10}, h.adapter.sent)
	require.Equal(t, uint8(10), h.app.VRX.Current())
}

func TestSetVTXConfig(t *testing.T) {
	h := newHarness(t, nil)
	h.send(otherAddr, msp.NewCommand(msp.FuncSetVTXConfig, 5771&0xff, 5771>>8, 0, 0))
	require.Equal(t, uint8(10), h.app.VRX.Current())
	require.Equal(t, uint8(10), h.app.Settings.ChannelIndex())

	h.send(otherAddr, msp.NewCommand(msp.FuncSetVTXConfig, 3, 0))
	require.Equal(t, uint8(3), h.app.VRX.Current())

	n := len(h.adapter.sent)
	h.send(otherAddr, msp.NewCommand(msp.FuncSetVTXConfig, 0x10, 0x27))
	require.Len(t, h.adapter.sent, n)
}

func TestGetters(t *testing.T) {
	h := newHarness(t, nil)
	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackSetFrequency, 5771&0xff, 5771>>8))

	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackGetChannelIndex))
	require.Equal(t, msp.DirResponse, h.lastReply().Direction)
	require.Equal(t, []byte{10}, h.lastReply().Payload)

	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackGetFrequency))
	require.Equal(t, []byte{5771 & 0xff, 5771 >> 8}, h.lastReply().Payload)

	h.send(otherAddr, msp.NewCommand(msp.FuncELRSGetBackpackVersion))
	require.Equal(t, msp.FuncELRSGetBackpackVersion, h.lastReply().Function)
	require.Equal(t, []byte(Version), h.lastReply().Payload)

	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackGetRSSI))
	require.Equal(t, []byte{42}, h.lastReply().Payload)

	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackGetBatteryVoltage))
	require.Equal(t, msp.DirError, h.lastReply().Direction)
	require.Equal(t, msp.FuncBackpackGetBatteryVoltage, h.lastReply().Function)
}

func TestRecordingState(t *testing.T) {
	h := newHarness(t, nil)
	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackSetRecordingState, 1, 5, 0))
	require.Contains(t, h.adapter.cmds, vrx.SetRecordingState{Enabled: true, DelaySeconds: 5})
	committed, ok := h.store.Committed("recording")
	require.True(t, ok)
	require.Equal(t, []byte{1}, committed)

	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackGetRecordingState))
	require.Equal(t, []byte{1}, h.lastReply().Payload)
}

func TestWifiMode(t *testing.T) {
	h := newHarness(t, nil)
	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackSetMode, msp.ModeWifi))
	require.Equal(t, connection.StateWifiUpdate, h.app.Machine.State())
	require.Equal(t, 1, h.wifi.started)

	h.send(otherAddr, msp.NewCommand(msp.FuncBackpackSetChannelIndex, 4))
	require.NotContains(t, h.adapter.sent, uint8(4))
}

func TestRequestWifiReboot(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.app.RequestWifiReboot())
	h.advance(1)
	require.Equal(t, 1, h.reboots)
	committed, ok := h.store.Committed("wifi")
	require.True(t, ok)
	require.Equal(t, []byte{1}, committed)
	require.Equal(t, 0, h.wifi.started)

	h.boot()
	require.Equal(t, connection.StateWifiUpdate, h.app.Machine.State())
	require.Equal(t, 1, h.wifi.started)
	h.advance(1000)
	require.Equal(t, 1, h.wifi.started)

	h.boot()
	require.Equal(t, connection.StateRunning, h.app.Machine.State())
	require.Equal(t, 0, h.wifi.started)
}

func TestWifiOnBootStartsService(t *testing.T) {
	h := newHarness(t, func(s *config.Settings) { s.SetStartWifiOnBoot(true) })
	h.advance(1001)
	require.Equal(t, connection.StateWifiUpdate, h.app.Machine.State())
	require.Equal(t, 1, h.wifi.started)
}

func TestPostQueueFull(t *testing.T) {
	h := newHarness(t, nil)
	for i := 0; i < postQueueSize; i++ {
		require.NoError(t, h.app.RequestWifiReboot())
	}
	require.Equal(t, ErrQueueFull, h.app.RequestWifiReboot())
	h.advance(1)
	require.Equal(t, postQueueSize, h.reboots)
	require.NoError(t, h.app.RequestWifiReboot())
}

func TestSetChannelIndexEntryPoint(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.app.SetChannelIndex(12))
	h.advance(1)
	require.Equal(t, uint8(12), h.app.VRX.Current())

	err := h.app.SetChannelIndex(48)
	var invalid *vrx.InvalidIndexError
	require.True(t, errors.As(err, &invalid))
}

func TestFlashWithoutFlasher(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, ErrNoFlasher, <-h.app.Flash([]byte{1}, 0))
}
