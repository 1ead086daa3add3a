package baseband

// AdvOp is the payload of an OpAdv operation: one legacy advertising event
// over the primary channels in ChanMap. It also carries ADV_EXT_IND, which is
// neither scannable nor connectable on the primary channels.
type AdvOp struct {
	// Channel is retuned to each primary channel in turn; Index is
	// overwritten by the engine.
	Channel ChannelParams
	ChanMap ChannelMap
	Cursor  ChannelCursor
	Filter  FilterConfig

	TxAdvBufs [][]byte
	RxReqBuf  []byte   // optional, for scannable or connectable events
	TxRspBufs [][]byte // optional SCAN_RSP

	// InterChannelGap is the distance between the starts of two
	// consecutive advertising PDUs when no request was received.
	InterChannelGap Usecs

	// RxReq receives the requests the filter lets through. Returning true
	// accepts the request: a SCAN_REQ is answered with TxRspBufs, a
	// CONNECT_IND completes the operation.
	RxReq func(s *OpState, req []byte, info RxInfo, res FilterResult) (accept bool)
}

const (
	advStateTxAdv uint8 = iota
	advStateRxReq
	advStateTxRsp
)

type advEngine struct{}

func (advEngine) Execute(s *OpState) Action {
	adv := s.op.Payload.(*AdvOp)
	if len(adv.TxAdvBufs) == 0 {
		desync(OpAdv, s.state, "advertising without a PDU")
	}
	if adv.RxReqBuf != nil && adv.RxReq == nil {
		desync(OpAdv, s.state, "request buffer without request callback")
	}

	adv.Cursor.Reset()
	ch, ok := NextAdvertisingChannel(&adv.Cursor, adv.ChanMap)
	if !ok {
		return Complete()
	}
	adv.Channel.Index = ch
	s.state = advStateTxAdv
	s.ref = s.op.Due
	return Continue(txAt(s.op.Due, &adv.Channel, adv.TxAdvBufs, adv.RxReqBuf != nil))
}

func (advEngine) HandleEvent(s *OpState, ev Event) Action {
	adv := s.op.Payload.(*AdvOp)

	switch s.state {
	case advStateTxAdv:
		if ev.Kind != EventTxDone {
			desync(OpAdv, s.state, "unexpected %s", ev.Kind)
		}
		if ev.Status != Success {
			return Terminate(ReasonFailed)
		}
		if adv.RxReqBuf == nil {
			return nextAdvChannel(s, adv, false)
		}
		s.state = advStateRxReq
		return Continue(rxIFS(adv.RxReqBuf, adv.TxRspBufs != nil))

	case advStateRxReq:
		if ev.Kind != EventRxDone {
			desync(OpAdv, s.state, "unexpected %s", ev.Kind)
		}
		if ev.Status != Success {
			return nextAdvChannel(s, adv, false)
		}
		req := s.received(adv.RxReqBuf, ev.Info)
		h, ok := ParseAdvHeader(req)
		if !ok {
			return nextAdvChannel(s, adv, true)
		}
		allowed, res := s.filter().Check(req, &adv.Filter, true)
		if !allowed || !adv.RxReq(s, req, ev.Info, res) {
			return nextAdvChannel(s, adv, true)
		}
		if h.Type == ConnectInd {
			return Complete()
		}
		if adv.TxRspBufs == nil {
			return nextAdvChannel(s, adv, true)
		}
		s.state = advStateTxRsp
		return Continue(txIFS(adv.TxRspBufs, false))

	case advStateTxRsp:
		if ev.Kind != EventTxDone {
			desync(OpAdv, s.state, "unexpected %s", ev.Kind)
		}
		return nextAdvChannel(s, adv, true)
	}

	desync(OpAdv, s.state, "unknown state")
	return Action{}
}

func (advEngine) Finish(s *OpState, reason Reason) {}

// nextAdvChannel moves the event to the next enabled primary channel. After a
// request the exchange length is unpredictable, so the next PDU is scheduled
// relative to now; otherwise the fixed cadence from the previous PDU is kept.
func nextAdvChannel(s *OpState, adv *AdvOp, gotReq bool) Action {
	ch, ok := NextAdvertisingChannel(&adv.Cursor, adv.ChanMap)
	if !ok {
		return Complete()
	}

	var due Time
	if gotReq {
		due = s.Now().Add(s.setupDelay())
	} else {
		due = s.ref.Add(adv.InterChannelGap)
	}
	if s.op.MaxDuration != 0 && due.Sub(s.op.Due) > int64(s.op.MaxDuration) {
		return Complete()
	}

	adv.Channel.Index = ch
	s.state = advStateTxAdv
	s.ref = due
	return Continue(txAt(due, &adv.Channel, adv.TxAdvBufs, adv.RxReqBuf != nil))
}
