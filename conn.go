package baseband

// ConnRole is the role of the local device in a connection.
type ConnRole uint8

const (
	Master ConnRole = iota
	Slave
)

func (r ConnRole) String() string {
	if r == Master {
		return "master"
	}
	return "slave"
}

// ConnOp is the payload of an OpConn operation: one connection event.
type ConnOp struct {
	Role    ConnRole
	Channel ChannelParams

	// RxTimeout is how long the slave listens for the master's first
	// packet, window widening included.
	RxTimeout Usecs

	// Tx is the first PDU of the event. The master must provide it; a slave
	// may queue it from Setup or RxData instead.
	Tx [][]byte

	// Rx is the first receive buffer. Ownership moves to the engine when
	// the event starts and comes back through RxData.
	Rx []byte

	// Setup runs before the first transfer is armed, for example to load
	// the encryption context.
	Setup func(ev *ConnEvent)

	// TxDone reports the end of every transmission.
	TxDone func(ev *ConnEvent, status Status)

	// RxData hands every receive buffer back to the host: filled, after a
	// failed reception, or with status Canceled when the event ends while
	// the buffer is still in flight.
	RxData func(ev *ConnEvent, buf []byte, info RxInfo, status Status)
}

// ConnEvent is the handle connection callbacks use to steer the event.
type ConnEvent struct {
	*OpState
	conn *ConnOp
}

// Conn returns the payload of the event.
func (ev *ConnEvent) Conn() *ConnOp {
	return ev.conn
}

// Send queues the next PDU. It goes out at TIFS after the current reception
// ends. Only one PDU may be queued at a time.
func (ev *ConnEvent) Send(bufs ...[]byte) {
	if ev.pendingTx != nil {
		desync(OpConn, ev.state, "PDU queued while another one is pending")
	}
	ev.pendingTx = bufs
}

// PostRx hands buf to the engine for the next reception. It panics if a
// receive buffer is already in flight.
func (ev *ConnEvent) PostRx(buf []byte) {
	ev.rx.put(OpConn, ev.state, buf)
}

// Cancel ends the event once the current callback returns. A receive buffer
// still in flight is returned through RxData with status Canceled.
func (ev *ConnEvent) Cancel() {
	ev.Terminate()
}

const (
	connStateTx uint8 = iota
	connStateRx
)

type connEngine struct{}

func (connEngine) Execute(s *OpState) Action {
	conn := s.op.Payload.(*ConnOp)
	if conn.RxData == nil {
		desync(OpConn, s.state, "connection event without receive callback")
	}
	ev := &ConnEvent{OpState: s, conn: conn}
	if conn.Rx != nil {
		ev.PostRx(conn.Rx)
		conn.Rx = nil
	}
	if conn.Setup != nil {
		conn.Setup(ev)
	}

	if conn.Role == Master {
		if len(conn.Tx) == 0 {
			desync(OpConn, s.state, "master connection event without a PDU")
		}
		s.state = connStateTx
		return Continue(txAt(s.op.Due, &conn.Channel, conn.Tx, s.rx.busy()))
	}

	if conn.Tx != nil && s.pendingTx == nil {
		s.pendingTx = conn.Tx
	}
	timeout := conn.RxTimeout
	if timeout == 0 {
		timeout = s.op.MaxDuration
	}
	s.state = connStateRx
	return armConnRx(s, false, s.op.Due, timeout, &conn.Channel)
}

func (connEngine) HandleEvent(s *OpState, ev Event) Action {
	conn := s.op.Payload.(*ConnOp)
	h := &ConnEvent{OpState: s, conn: conn}

	switch s.state {
	case connStateTx:
		if ev.Kind != EventTxDone {
			desync(OpConn, s.state, "unexpected %s", ev.Kind)
		}
		if conn.TxDone != nil {
			conn.TxDone(h, ev.Status)
		}
		if ev.Status != Success {
			return Terminate(ReasonFailed)
		}
		if s.terminate {
			return Terminate(ReasonTerminated)
		}
		if !s.rx.busy() || !s.ifsArmed {
			// Nothing to receive: the event is over.
			return Complete()
		}
		s.state = connStateRx
		return armConnRx(s, true, Time{}, 0, nil)

	case connStateRx:
		if ev.Kind != EventRxDone {
			desync(OpConn, s.state, "unexpected %s", ev.Kind)
		}
		if !s.rx.busy() {
			desync(OpConn, s.state, "reception completed without a buffer in flight")
		}
		buf := s.rx.take()
		data := buf[:0]
		if ev.Status == Success || ev.Status == CRCFailed {
			data = s.received(buf, ev.Info)
		}
		conn.RxData(h, data, ev.Info, ev.Status)

		switch {
		case s.terminate:
			return Terminate(ReasonTerminated)
		case ev.Status == Failed:
			return Terminate(ReasonFailed)
		case ev.Status == RxTimeout:
			// Without a received packet there is no anchor for TIFS.
			return Complete()
		case s.pendingTx == nil:
			return Complete()
		}
		tx := s.pendingTx
		s.pendingTx = nil
		s.state = connStateTx
		return Continue(txIFS(tx, s.rx.busy()))
	}

	desync(OpConn, s.state, "unknown state")
	return Action{}
}

// Finish hands a receive buffer that is still in flight back to the host.
func (connEngine) Finish(s *OpState, reason Reason) {
	s.pendingTx = nil
	if !s.rx.busy() {
		return
	}
	conn := s.op.Payload.(*ConnOp)
	buf := s.rx.take()
	conn.RxData(&ConnEvent{OpState: s, conn: conn}, buf[:0], RxInfo{}, Canceled)
}

// armConnRx arms the reception of the buffer in flight. The buffer must be
// the only one owned by the engine; the following transmission always goes out
// at TIFS.
func armConnRx(s *OpState, atIFS bool, due Time, timeout Usecs, ch *ChannelParams) Action {
	if !s.rx.busy() {
		desync(OpConn, s.state, "reception armed without a receive buffer")
	}
	if atIFS {
		return Continue(rxIFS(s.rx.peek(), true))
	}
	return Continue(rxAt(due, timeout, ch, s.rx.peek(), true))
}
