package baseband

// OpState is the live state of the executing operation. The controller creates
// one per Execute and drops it when the operation ends; host callbacks receive
// it as a handle to the running operation and must not keep it afterwards.
type OpState struct {
	op    *Operation
	ctrl  *Controller
	gen   uint32
	state uint8

	terminate  bool
	ifsArmed   bool
	phy        PHY
	chanParams ChannelParams
	ended      bool
	notified   bool
	reason     Reason

	rx rxSlot

	// Scratch used by the engines.
	ref         Time // scan window start, or start of the previous transmission
	cursor      ChannelCursor
	pendingPost bool
	pendingTx   [][]byte
	connectRsp  bool
	segments    int
	lastTx      [][]byte
	lastRx      []byte
}

// Op returns the executing operation.
func (s *OpState) Op() *Operation {
	return s.op
}

// State returns the engine specific event state.
func (s *OpState) State() uint8 {
	return s.state
}

// Now returns the current radio time.
func (s *OpState) Now() Time {
	return s.ctrl.radio.Now()
}

// Terminate asks the controller to end the operation before any further
// radio transfer is armed. It is meant to be called from host callbacks.
func (s *OpState) Terminate() {
	s.terminate = true
}

// Terminating reports whether Terminate was called.
func (s *OpState) Terminating() bool {
	return s.terminate
}

// IFSArmed reports whether the previous transfer left the IFS timer armed, so
// that a transfer at TIFS can follow it.
func (s *OpState) IFSArmed() bool {
	return s.ifsArmed
}

// RxInFlight reports whether a receive buffer is owned by the radio.
func (s *OpState) RxInFlight() bool {
	return s.rx.busy()
}

func (s *OpState) channel() ChannelParams {
	return s.chanParams
}

func (s *OpState) setupDelay() Usecs {
	return s.ctrl.cfg.SetupDelay
}

func (s *OpState) filter() Filter {
	return s.ctrl.filter
}

// rxSlot holds the single receive buffer a connection event may have in
// flight. put transfers ownership to the radio, take hands it back.
type rxSlot struct {
	buf   []byte
	armed bool
}

func (r *rxSlot) put(kind OpKind, state uint8, buf []byte) {
	if r.armed {
		desync(kind, state, "second receive buffer posted while one is in flight")
	}
	if buf == nil {
		desync(kind, state, "nil receive buffer posted")
	}
	r.buf = buf
	r.armed = true
}

func (r *rxSlot) take() []byte {
	buf := r.buf
	r.buf = nil
	r.armed = false
	return buf
}

func (r *rxSlot) peek() []byte {
	return r.buf
}

func (r *rxSlot) busy() bool {
	return r.armed
}

// received returns the part of buf the driver filled.
func (s *OpState) received(buf []byte, info RxInfo) []byte {
	if info.Len < 0 || info.Len > len(buf) {
		desync(s.op.Kind, s.state, "driver reported %d bytes for a %d byte buffer", info.Len, len(buf))
	}
	return buf[:info.Len]
}
