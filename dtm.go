package baseband

// TestMode selects the direction of a direct test mode operation.
type TestMode uint8

const (
	TestTx TestMode = iota
	TestRx
)

// TestOp is the payload of an OpTest operation.
type TestOp struct {
	Mode    TestMode
	Channel ChannelParams

	// Buf is the test packet for TestTx and the receive buffer for TestRx.
	Buf []byte

	// Interval separates the start of two consecutive test packets.
	Interval Usecs

	// Packets bounds the number of packets sent in TestTx. Zero means until
	// the operation ends.
	Packets int

	// Counters, updated while the test runs.
	Sent      int
	Received  int
	CRCErrors int
}

const (
	testStateTx uint8 = iota
	testStateRx
)

type testEngine struct{}

func (testEngine) Execute(s *OpState) Action {
	t := s.op.Payload.(*TestOp)
	if len(t.Buf) == 0 {
		desync(OpTest, s.state, "test without a packet buffer")
	}
	s.ref = s.op.Due
	if t.Mode == TestTx {
		if t.Interval == 0 {
			t.Interval = 625
		}
		s.state = testStateTx
		return Continue(txAt(s.op.Due, &t.Channel, [][]byte{t.Buf}, false))
	}
	s.state = testStateRx
	return Continue(rxAt(s.op.Due, s.op.MaxDuration, &t.Channel, t.Buf, false))
}

func (testEngine) HandleEvent(s *OpState, ev Event) Action {
	t := s.op.Payload.(*TestOp)
	switch s.state {
	case testStateTx:
		if ev.Kind != EventTxDone {
			desync(OpTest, s.state, "unexpected %s", ev.Kind)
		}
		if ev.Status != Success {
			return Terminate(ReasonFailed)
		}
		t.Sent++
		if t.Packets > 0 && t.Sent >= t.Packets {
			return Complete()
		}
		s.ref = s.ref.Add(t.Interval)
		if s.op.MaxDuration > 0 && s.ref.Sub(s.op.Due) >= int64(s.op.MaxDuration) {
			return Complete()
		}
		return Continue(txAt(s.ref, nil, [][]byte{t.Buf}, false))

	case testStateRx:
		if ev.Kind != EventRxDone {
			desync(OpTest, s.state, "unexpected %s", ev.Kind)
		}
		switch ev.Status {
		case Success:
			t.Received++
		case CRCFailed:
			t.CRCErrors++
		case RxTimeout:
			return Complete()
		default:
			return Terminate(ReasonFailed)
		}
		var left Usecs
		if s.op.MaxDuration > 0 {
			elapsed := s.Now().Sub(s.op.Due) + int64(s.setupDelay())
			if elapsed >= int64(s.op.MaxDuration) {
				return Complete()
			}
			left = s.op.MaxDuration - Usecs(elapsed)
		}
		return Continue(rxAt(s.Now().Add(s.setupDelay()), left, nil, t.Buf, false))
	}
	desync(OpTest, s.state, "unknown state")
	return Action{}
}

func (testEngine) Finish(*OpState, Reason) {}
