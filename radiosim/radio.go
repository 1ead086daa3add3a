// Package radiosim is a host-side baseband.Radio with a virtual clock. It
// records every armed transfer and lets the caller decide how each one ends,
// either by calling CompleteTx and CompleteRx directly or through a Responder
// driven by Step and Run.
package radiosim

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"tinygo.org/x/baseband"
)

var (
	ErrBusy    = errors.New("radiosim: a transfer is already armed")
	ErrNoIFS   = errors.New("radiosim: transfer at TIFS without the IFS timer")
	ErrIdle    = errors.New("radiosim: no transfer armed")
	ErrWrongOp = errors.New("radiosim: armed transfer has the other direction")
)

// Arm is a transfer as it was armed by the controller.
type Arm struct {
	Dir       baseband.Direction
	AtIFS     bool
	Start     baseband.Time // when the transfer begins on air
	RxTimeout baseband.Usecs
	Channel   baseband.ChannelParams

	// FollowIFS is the state of the IFS timer when the transfer was armed.
	FollowIFS bool

	PDU   []byte // transmitted bytes, concatenated
	RxCap int    // size of the receive buffer
}

type transfer struct {
	Arm
	rxBuf []byte
	onTx  baseband.TxCallback
	onRx  baseband.RxCallback
}

// Radio implements baseband.Radio.
type Radio struct {
	mu sync.Mutex

	now       baseband.Time
	lastEnd   baseband.Time
	params    baseband.ChannelParams
	onTx      baseband.TxCallback
	onRx      baseband.RxCallback
	due       baseband.Time
	rxTimeout baseband.Usecs
	ifsDur    baseband.Usecs

	// ifs is requested by SetIFS for the transfers armed next; ifsReady is
	// set while the timer started by the end of such a transfer runs.
	ifs      bool
	ifsReady bool

	active *transfer
	log    ringBuffer

	responder Responder
	armed     chan struct{}

	// Log receives one debug entry per completed transfer.
	Log logrus.FieldLogger
}

var _ baseband.Radio = (*Radio)(nil)

// New returns an idle radio at time zero. A nil responder acknowledges every
// transmission and lets every reception time out.
func New(r Responder) *Radio {
	if r == nil {
		r = Silence
	}
	return &Radio{
		responder: r,
		armed:     make(chan struct{}, 1),
		Log:       logrus.StandardLogger(),
	}
}

// Now implements baseband.Radio.
func (r *Radio) Now() baseband.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now
}

// Advance moves the clock d microseconds forward.
func (r *Radio) Advance(d baseband.Usecs) {
	r.mu.Lock()
	r.now = r.now.Add(d)
	r.mu.Unlock()
}

// SetChannelParams implements baseband.Radio.
func (r *Radio) SetChannelParams(p baseband.ChannelParams) {
	r.mu.Lock()
	r.params = p
	r.mu.Unlock()
}

// SetDataExchange implements baseband.Radio.
func (r *Radio) SetDataExchange(onTx baseband.TxCallback, onRx baseband.RxCallback, due baseband.Time, rxTimeout baseband.Usecs) {
	r.mu.Lock()
	r.onTx, r.onRx = onTx, onRx
	r.due, r.rxTimeout = due, rxTimeout
	r.mu.Unlock()
}

// SetIFS implements baseband.Radio. It applies to the transfers armed after
// the call: when one of them ends the IFS timer starts.
func (r *Radio) SetIFS(enabled bool, d baseband.Usecs) {
	r.mu.Lock()
	r.ifs, r.ifsDur = enabled, d
	r.mu.Unlock()
}

// CancelIFS implements baseband.Radio.
func (r *Radio) CancelIFS() {
	r.mu.Lock()
	r.ifs = false
	r.ifsReady = false
	r.mu.Unlock()
}

// CancelActive implements baseband.Radio.
func (r *Radio) CancelActive() {
	r.mu.Lock()
	r.active = nil
	r.mu.Unlock()
}

// Transmit implements baseband.Radio.
func (r *Radio) Transmit(bufs [][]byte) error {
	return r.arm(baseband.DirTx, false, bufs, nil)
}

// TransmitAtIFS implements baseband.Radio.
func (r *Radio) TransmitAtIFS(bufs [][]byte) error {
	return r.arm(baseband.DirTx, true, bufs, nil)
}

// Receive implements baseband.Radio.
func (r *Radio) Receive(buf []byte) error {
	return r.arm(baseband.DirRx, false, nil, buf)
}

// ReceiveAtIFS implements baseband.Radio.
func (r *Radio) ReceiveAtIFS(buf []byte) error {
	return r.arm(baseband.DirRx, true, nil, buf)
}

func (r *Radio) arm(dir baseband.Direction, atIFS bool, bufs [][]byte, rxBuf []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return ErrBusy
	}
	t := &transfer{
		Arm: Arm{
			Dir:       dir,
			AtIFS:     atIFS,
			Channel:   r.params,
			FollowIFS: r.ifs,
			RxCap:     len(rxBuf),
		},
		rxBuf: rxBuf,
		onTx:  r.onTx,
		onRx:  r.onRx,
	}
	if atIFS {
		if !r.ifsReady {
			return ErrNoIFS
		}
		r.ifsReady = false
		t.Start = r.lastEnd.Add(r.ifsDur)
	} else {
		t.Start = r.due
		if t.Start.Before(r.now) {
			t.Start = r.now
		}
		if dir == baseband.DirRx {
			t.RxTimeout = r.rxTimeout
		}
	}
	for _, b := range bufs {
		t.PDU = append(t.PDU, b...)
	}
	r.active = t
	r.log.push(t.Arm)

	select {
	case r.armed <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the armed transfer, if any.
func (r *Radio) Pending() (Arm, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return Arm{}, false
	}
	return r.active.Arm, true
}

// Arms returns the most recent armed transfers, oldest first.
func (r *Radio) Arms() []Arm {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.snapshot()
}

// ResetLog forgets the recorded transfers.
func (r *Radio) ResetLog() {
	r.mu.Lock()
	r.log = ringBuffer{}
	r.mu.Unlock()
}

// IFSArmed reports whether the IFS timer is running, so that a transfer can
// be armed at TIFS.
func (r *Radio) IFSArmed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ifsReady
}

func (r *Radio) take(dir baseband.Direction) (*transfer, error) {
	t := r.active
	if t == nil {
		return nil, ErrIdle
	}
	if t.Dir != dir {
		return nil, ErrWrongOp
	}
	r.active = nil
	return t, nil
}

func (r *Radio) airTime(t *transfer, n int) baseband.Usecs {
	opts := t.Channel.Options
	if t.AtIFS {
		opts = t.Channel.TIFSOptions
	}
	return baseband.AirTime(t.Channel.PHY, opts, n)
}

// CompleteTx ends the armed transmission with status. The clock moves to the
// end of the packet.
func (r *Radio) CompleteTx(status baseband.Status) error {
	r.mu.Lock()
	t, err := r.take(baseband.DirTx)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.finish(t, t.Start.Add(r.airTime(t, len(t.PDU))))
	r.mu.Unlock()

	r.Log.WithFields(logrus.Fields{"channel": t.Channel.Index, "len": len(t.PDU), "status": status}).Debug("radiosim: tx done")
	if t.onTx != nil {
		t.onTx(status)
	}
	return nil
}

// CompleteRx ends the armed reception. On Success and CRCFailed pdu is copied
// into the receive buffer and the clock moves to the end of the packet;
// otherwise pdu is ignored and, for RxTimeout, the clock moves to the end of
// the receive window.
func (r *Radio) CompleteRx(status baseband.Status, pdu []byte, rssi int8) error {
	r.mu.Lock()
	t, err := r.take(baseband.DirRx)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	info := baseband.RxInfo{RSSI: rssi, Timestamp: t.Start, PHYOptions: t.Channel.Options}
	end := t.Start
	switch status {
	case baseband.Success, baseband.CRCFailed:
		info.Len = copy(t.rxBuf, pdu)
		end = t.Start.Add(r.airTime(t, len(pdu)))
	case baseband.RxTimeout:
		if t.AtIFS {
			end = t.Start.Add(baseband.PreambleAAUsecs(t.Channel.PHY))
		} else {
			end = t.Start.Add(t.RxTimeout)
		}
	}
	r.finish(t, end)
	r.mu.Unlock()

	r.Log.WithFields(logrus.Fields{"channel": t.Channel.Index, "len": info.Len, "status": status}).Debug("radiosim: rx done")
	if t.onRx != nil {
		t.onRx(status, info)
	}
	return nil
}

func (r *Radio) finish(t *transfer, end baseband.Time) {
	r.lastEnd = end
	r.ifsReady = t.FollowIFS
	if r.now.Before(end) {
		r.now = end
	}
}

// Step completes the armed transfer as the responder decides. It reports
// false when nothing was armed.
func (r *Radio) Step() bool {
	a, ok := r.Pending()
	if !ok {
		return false
	}
	reply := r.responder.Respond(a)
	if a.Dir == baseband.DirTx {
		return r.CompleteTx(reply.Status) == nil
	}
	return r.CompleteRx(reply.Status, reply.PDU, reply.RSSI) == nil
}

// Run completes armed transfers through the responder until ctx is done.
func (r *Radio) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.armed:
			for ctx.Err() == nil && r.Step() {
			}
		}
	}
}
