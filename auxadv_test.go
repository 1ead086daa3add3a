package baseband_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinygo.org/x/baseband"
)

func auxChannel(index uint8) baseband.ChannelParams {
	ch := advChannel()
	ch.Index = index
	return ch
}

func chainOf(offsets ...baseband.Usecs) (func(s *baseband.OpState) baseband.ChainSegment, *int) {
	calls := 0
	return func(s *baseband.OpState) baseband.ChainSegment {
		calls++
		if calls > len(offsets) {
			return baseband.ChainSegment{}
		}
		return baseband.ChainSegment{
			Offset:  offsets[calls-1],
			Channel: uint8(10 + calls),
			PDU:     [][]byte{{byte(baseband.AdvExtInd), 0x01, 0x00}},
		}
	}, &calls
}

func TestAuxAdvertisingChain(t *testing.T) {
	h := newHarness(t, 0)
	due := baseband.Time{Ticks: 50}
	prepare, calls := chainOf(500, 245800)
	aux := &baseband.AuxAdvOp{
		Channel:      auxChannel(5),
		TxAuxBufs:    [][]byte{{byte(baseband.AdvExtInd), 0x01, 0x00}},
		PrepareChain: prepare,
	}
	h.execute(h.op(baseband.OpAuxAdv, due, 1000000, aux))

	a := h.pending()
	assert.Equal(t, due, a.Start)
	assert.Equal(t, uint8(5), a.Channel.Index)
	assert.False(t, a.FollowIFS)
	h.txDone(baseband.Success)

	// The offset is rounded up to the 30µs unit.
	a = h.pending()
	assert.Equal(t, due.Add(510), a.Start)
	assert.Equal(t, uint8(11), a.Channel.Index)
	assert.False(t, a.AtIFS)
	h.txDone(baseband.Success)

	// Past the 30µs range the unit is 300µs.
	second := a.Start.Add(246000)
	a = h.pending()
	assert.Equal(t, second, a.Start)
	assert.Equal(t, uint8(12), a.Channel.Index)
	h.txDone(baseband.Success)

	h.idle()
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []baseband.Reason{baseband.ReasonComplete}, h.reasons)
}

func TestAuxAdvertisingChainTruncated(t *testing.T) {
	h := newHarness(t, 0)
	prepare, calls := chainOf(500, 500, 500)
	aux := &baseband.AuxAdvOp{
		Channel:      auxChannel(5),
		TxAuxBufs:    [][]byte{{byte(baseband.AdvExtInd), 0x01, 0x00}},
		PrepareChain: prepare,
	}
	// Segments land at 510 and 1020, the third at 1530 is past the end.
	h.execute(h.op(baseband.OpAuxAdv, baseband.Time{}, 1200, aux))
	for i := 0; i < 3; i++ {
		h.txDone(baseband.Success)
	}
	h.idle()
	assert.Equal(t, 3, *calls)
	assert.Len(t, h.radio.Arms(), 3)
	assert.Equal(t, []baseband.Reason{baseband.ReasonComplete}, h.reasons)
}

func TestAuxScanRequestThenChain(t *testing.T) {
	h := newHarness(t, 0)
	prepare, calls := chainOf(300)
	rsp := [][]byte{{byte(baseband.AdvExtInd), 0x01, 0x00}}
	aux := &baseband.AuxAdvOp{
		Channel:   auxChannel(5),
		TxAuxBufs: [][]byte{{byte(baseband.AdvExtInd), 0x01, 0x00}},
		RxReqBuf:  make([]byte, baseband.MaxAdvPDULen),
		TxRspBufs: rsp,
		RxReq: func(s *baseband.OpState, req []byte, info baseband.RxInfo, res baseband.FilterResult) bool {
			return true
		},
		PrepareChain: prepare,
	}
	h.execute(h.op(baseband.OpAuxAdv, baseband.Time{}, 100000, aux))
	assert.True(t, h.pending().FollowIFS)
	h.txDone(baseband.Success)

	assert.True(t, h.pending().AtIFS)
	h.rxDone(baseband.Success, directedPDU(baseband.ScanReq, peerAddr, localAddr, 0))

	a := h.pending()
	assert.True(t, a.AtIFS)
	assert.Equal(t, rsp[0], a.PDU)
	h.txDone(baseband.Success)

	// The chain follows the AUX_SCAN_RSP.
	chain := h.pending()
	assert.Equal(t, a.Start.Add(300), chain.Start)
	h.txDone(baseband.Success)
	h.idle()
	assert.Equal(t, 2, *calls)
}

func TestAuxNoRequestStillChains(t *testing.T) {
	h := newHarness(t, 0)
	prepare, calls := chainOf(600)
	aux := &baseband.AuxAdvOp{
		Channel:   auxChannel(5),
		TxAuxBufs: [][]byte{{byte(baseband.AdvExtInd), 0x01, 0x00}},
		RxReqBuf:  make([]byte, baseband.MaxAdvPDULen),
		RxReq: func(s *baseband.OpState, req []byte, info baseband.RxInfo, res baseband.FilterResult) bool {
			t.Fatal("no request expected")
			return false
		},
		PrepareChain: prepare,
	}
	h.execute(h.op(baseband.OpAuxAdv, baseband.Time{}, 100000, aux))
	h.txDone(baseband.Success)
	h.rxDone(baseband.CRCFailed, []byte{0xff})
	a := h.pending()
	assert.Equal(t, baseband.Time{}.Add(600), a.Start)
	h.txDone(baseband.Success)
	h.idle()
	assert.Equal(t, 2, *calls)
}

func TestAuxConnectRequest(t *testing.T) {
	h := newHarness(t, 0)
	connRsp := [][]byte{{byte(baseband.AuxConnectRsp), 0x00}}
	prepare, calls := chainOf(300)
	aux := &baseband.AuxAdvOp{
		Channel:       auxChannel(5),
		TxAuxBufs:     [][]byte{{byte(baseband.AdvExtInd), 0x01, 0x00}},
		RxReqBuf:      make([]byte, baseband.MaxAdvPDULen),
		TxConnRspBufs: connRsp,
		RxReq: func(s *baseband.OpState, req []byte, info baseband.RxInfo, res baseband.FilterResult) bool {
			return true
		},
		PrepareChain: prepare,
	}
	h.execute(h.op(baseband.OpAuxAdv, baseband.Time{}, 100000, aux))
	h.txDone(baseband.Success)
	h.rxDone(baseband.Success, directedPDU(baseband.ConnectInd, peerAddr, localAddr, 22))
	a := h.pending()
	assert.Equal(t, connRsp[0], a.PDU)
	h.txDone(baseband.Success)
	h.idle()
	assert.Zero(t, *calls)
	assert.Equal(t, []baseband.Reason{baseband.ReasonComplete}, h.reasons)
}

func TestPeriodicAdvertisingIgnoresRequests(t *testing.T) {
	h := newHarness(t, 0)
	prepare, calls := chainOf(1000)
	aux := &baseband.AuxAdvOp{
		Channel:      auxChannel(20),
		TxAuxBufs:    [][]byte{{byte(baseband.AdvExtInd), 0x01, 0x00}},
		RxReqBuf:     make([]byte, baseband.MaxAdvPDULen),
		PrepareChain: prepare,
	}
	h.execute(h.op(baseband.OpPeriodicAdv, baseband.Time{}, 100000, aux))
	a := h.pending()
	assert.False(t, a.FollowIFS)
	h.txDone(baseband.Success)
	a = h.pending()
	assert.Equal(t, baseband.DirTx, a.Dir)
	assert.Equal(t, baseband.Time{}.Add(1020), a.Start)
	h.txDone(baseband.Failed)
	h.idle()
	require.Equal(t, 1, *calls)
	assert.Equal(t, []baseband.Reason{baseband.ReasonFailed}, h.reasons)
}

func TestAuxTruncatedRequest(t *testing.T) {
	h := newHarness(t, 0)
	h.ctrl.SetFilter(acceptEverything{})
	prepare, calls := chainOf(1000)
	aux := &baseband.AuxAdvOp{
		Channel:       auxChannel(5),
		TxAuxBufs:     [][]byte{{byte(baseband.AdvExtInd), 0x01, 0x00}},
		RxReqBuf:      make([]byte, baseband.MaxAdvPDULen),
		TxConnRspBufs: [][]byte{{byte(baseband.AuxConnectRsp), 0x00}},
		RxReq: func(s *baseband.OpState, req []byte, info baseband.RxInfo, res baseband.FilterResult) bool {
			t.Fatalf("request without a header delivered: %x", req)
			return true
		},
		PrepareChain: prepare,
	}
	h.execute(h.op(baseband.OpAuxAdv, baseband.Time{}, 100000, aux))
	h.txDone(baseband.Success)
	h.rxDone(baseband.Success, nil)

	a := h.pending()
	assert.False(t, a.AtIFS)
	assert.Equal(t, baseband.Time{}.Add(1020), a.Start)
	assert.Equal(t, 1, *calls)
}
