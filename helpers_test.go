package baseband_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tinygo.org/x/baseband"
	"tinygo.org/x/baseband/radiosim"
)

var (
	localAddr = baseband.Address{0x01, 0x00, 0x00, 0xee, 0xff, 0xc0}
	peerAddr  = baseband.Address{0x66, 0x55, 0x44, 0x33, 0x22, 0xd1}
)

const setupDelay = 100

// harness runs one controller against a simulated radio and records how the
// operations end.
type harness struct {
	t     *testing.T
	radio *radiosim.Radio
	ctrl  *baseband.Controller

	reasons []baseband.Reason
	aborted int
}

func newHarness(t *testing.T, maxScanPeriod baseband.Usecs) *harness {
	radio := radiosim.New(nil)
	cfg := baseband.Config{
		Roles:         baseband.RoleObserver | baseband.RoleBroadcaster | baseband.RoleCentral | baseband.RolePeripheral | baseband.RoleTest,
		SetupDelay:    setupDelay,
		MaxScanPeriod: maxScanPeriod,
	}
	return &harness{t: t, radio: radio, ctrl: baseband.NewController(radio, cfg)}
}

func (h *harness) op(kind baseband.OpKind, due baseband.Time, max baseband.Usecs, payload interface{}) *baseband.Operation {
	return &baseband.Operation{
		Kind:        kind,
		Due:         due,
		MaxDuration: max,
		Payload:     payload,
		End: func(op *baseband.Operation, reason baseband.Reason) {
			h.reasons = append(h.reasons, reason)
		},
		Abort: func(op *baseband.Operation) {
			h.aborted++
		},
	}
}

func (h *harness) execute(op *baseband.Operation) {
	h.t.Helper()
	require.NoError(h.t, h.ctrl.Execute(op))
}

// pending returns the armed transfer, which must exist.
func (h *harness) pending() radiosim.Arm {
	h.t.Helper()
	a, ok := h.radio.Pending()
	require.True(h.t, ok, "no transfer armed")
	return a
}

// idle checks that nothing is armed and the operation has ended.
func (h *harness) idle() {
	h.t.Helper()
	_, ok := h.radio.Pending()
	require.False(h.t, ok, "transfer still armed")
	require.Nil(h.t, h.ctrl.Current())
	require.False(h.t, h.radio.IFSArmed(), "IFS timer left running")
}

func (h *harness) txDone(status baseband.Status) {
	h.t.Helper()
	require.NoError(h.t, h.radio.CompleteTx(status))
}

func (h *harness) rxDone(status baseband.Status, pdu []byte) {
	h.t.Helper()
	require.NoError(h.t, h.radio.CompleteRx(status, pdu, -50))
}

func advChannel() baseband.ChannelParams {
	return baseband.ChannelParams{
		PHY:           baseband.PHY1M,
		Index:         37,
		AccessAddress: baseband.AdvAccessAddress,
		CRCInit:       baseband.AdvCRCInit,
	}
}

func advIndPDU() []byte {
	return baseband.NewAdvPDU(baseband.AdvHeader{Type: baseband.AdvInd, TxAdd: true}, peerAddr[:], []byte{0x02, 0x01, 0x06})
}

func directedPDU(typ baseband.AdvPDUType, from, to baseband.Address, extra int) []byte {
	return baseband.NewAdvPDU(baseband.AdvHeader{Type: typ, TxAdd: true, RxAdd: true}, from[:], to[:], make([]byte, extra))
}
