package sh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/backpack/pkg/config"
	"github.com/robotalks/backpack/pkg/msp"
	"github.com/robotalks/backpack/pkg/transport"
)

var (
	ctlAddr      = config.Address{0x02, 0, 0, 0, 0, 0xc1}
	backpackAddr = config.Address{0x02, 0, 0, 0, 0, 0xb1}
)

func newTestSession(hub *transport.Hub, targetAddr config.Address) *Session {
	ep := hub.Join(ctlAddr)
	sess := &Session{Link: ep, Target: targetAddr, respCh: make(chan *msp.Packet, respQueueSize)}
	ep.SetReceiver(sess.receive)
	return sess
}

func TestRequestWaitsForMatchingReply(t *testing.T) {
	hub := transport.NewHub()
	bp := hub.Join(backpackAddr)
	bp.SetReceiver(func(src config.Address, data []byte) {
		var codec msp.Codec
		for _, pkt := range codec.Decode(data) {
			bp.Send(src, msp.NewResponse(msp.FuncBackpackGetRSSI, 1).Bytes())
			bp.Send(src, msp.NewResponse(pkt.Function, 10).Bytes())
		}
	})
	sess := newTestSession(hub, backpackAddr)

	resp, err := sess.Request(msp.NewCommand(msp.FuncBackpackGetChannelIndex), time.Second)
	require.NoError(t, err)
	require.Equal(t, msp.FuncBackpackGetChannelIndex, resp.Function)
	require.Equal(t, []byte{10}, resp.Payload)
}

func TestRequestTimesOut(t *testing.T) {
	hub := transport.NewHub()
	hub.Join(backpackAddr)
	sess := newTestSession(hub, backpackAddr)

	_, err := sess.Request(msp.NewCommand(msp.FuncELRSGetBackpackVersion), 20*time.Millisecond)
	require.Equal(t, msp.ErrTimeout, err)
}

func TestRequestReportsError(t *testing.T) {
	hub := transport.NewHub()
	bp := hub.Join(backpackAddr)
	bp.SetReceiver(func(src config.Address, data []byte) {
		bp.Send(src, (&msp.Packet{Direction: msp.DirError, Function: msp.FuncBackpackGetRSSI}).Bytes())
	})
	sess := newTestSession(hub, backpackAddr)

	resp, err := sess.Request(msp.NewCommand(msp.FuncBackpackGetRSSI), time.Second)
	require.Error(t, err)
	require.Equal(t, msp.DirError, resp.Direction)
}

func TestSessionIgnoresOtherPeers(t *testing.T) {
	hub := transport.NewHub()
	other := hub.Join(config.Address{0x02, 0, 0, 0, 0, 0xee})
	sess := newTestSession(hub, backpackAddr)

	require.NoError(t, other.Send(ctlAddr, msp.NewResponse(msp.FuncBackpackGetRSSI, 1).Bytes()))
	require.Len(t, sess.respCh, 0)
}

func TestParseTarget(t *testing.T) {
	addr, err := parseTarget("broadcast")
	require.NoError(t, err)
	require.Equal(t, transport.Broadcast, addr)
	addr, err = parseTarget("02:00:00:00:00:b1")
	require.NoError(t, err)
	require.Equal(t, backpackAddr, addr)
	_, err = parseTarget("nope")
	require.Error(t, err)
}
