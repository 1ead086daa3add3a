package baseband

import "github.com/sirupsen/logrus"

// ChainSegment is the next AUX_CHAIN_IND of an extended or periodic
// advertising train.
type ChainSegment struct {
	// Offset is the distance from the start of the previous transmission.
	// It is rounded up to the AUX_PTR offset unit. Zero ends the chain.
	Offset  Usecs
	Channel uint8
	PDU     [][]byte
}

// AuxAdvOp is the payload of OpAuxAdv and OpPeriodicAdv operations. For
// periodic advertising the request and response fields are ignored.
type AuxAdvOp struct {
	// Channel is the secondary channel of the first PDU. Chain segments
	// retune Index.
	Channel ChannelParams
	Filter  FilterConfig

	TxAuxBufs     [][]byte // AUX_ADV_IND or AUX_SYNC_IND
	RxReqBuf      []byte   // optional AUX_SCAN_REQ / AUX_CONNECT_REQ
	TxRspBufs     [][]byte // optional AUX_SCAN_RSP
	TxConnRspBufs [][]byte // optional AUX_CONNECT_RSP

	// RxReq receives the requests the filter lets through and returns true
	// to answer them.
	RxReq func(s *OpState, req []byte, info RxInfo, res FilterResult) (accept bool)

	// PrepareChain is called after every transmission that may be followed
	// by an AUX_CHAIN_IND. A zero Offset ends the operation.
	PrepareChain func(s *OpState) ChainSegment
}

const (
	auxStateTxAux uint8 = iota
	auxStateRxReq
	auxStateTxRsp
	auxStateTxChain
)

type auxAdvEngine struct {
	periodic bool
}

func (e auxAdvEngine) expectReq(aux *AuxAdvOp) bool {
	return !e.periodic && aux.RxReqBuf != nil
}

func (e auxAdvEngine) Execute(s *OpState) Action {
	aux := s.op.Payload.(*AuxAdvOp)
	if len(aux.TxAuxBufs) == 0 {
		desync(s.op.Kind, s.state, "auxiliary advertising without a PDU")
	}
	if e.expectReq(aux) && aux.RxReq == nil {
		desync(s.op.Kind, s.state, "request buffer without request callback")
	}

	s.state = auxStateTxAux
	s.ref = s.op.Due
	return Continue(txAt(s.op.Due, &aux.Channel, aux.TxAuxBufs, e.expectReq(aux)))
}

func (e auxAdvEngine) HandleEvent(s *OpState, ev Event) Action {
	aux := s.op.Payload.(*AuxAdvOp)
	kind := s.op.Kind

	switch s.state {
	case auxStateTxAux:
		if ev.Kind != EventTxDone {
			desync(kind, s.state, "unexpected %s", ev.Kind)
		}
		if ev.Status != Success {
			return Terminate(ReasonFailed)
		}
		if !e.expectReq(aux) {
			return nextChainSegment(s, aux)
		}
		s.state = auxStateRxReq
		return Continue(rxIFS(aux.RxReqBuf, aux.TxRspBufs != nil || aux.TxConnRspBufs != nil))

	case auxStateRxReq:
		if ev.Kind != EventRxDone {
			desync(kind, s.state, "unexpected %s", ev.Kind)
		}
		if ev.Status != Success {
			// Nobody engaged; non-connectable chained data still goes out.
			return nextChainSegment(s, aux)
		}
		req := s.received(aux.RxReqBuf, ev.Info)
		h, ok := ParseAdvHeader(req)
		if !ok {
			return nextChainSegment(s, aux)
		}
		allowed, res := s.filter().Check(req, &aux.Filter, true)
		if !allowed || !aux.RxReq(s, req, ev.Info, res) {
			return nextChainSegment(s, aux)
		}
		rsp := aux.TxRspBufs
		if h.Type == ConnectInd {
			if aux.TxConnRspBufs == nil {
				return Complete()
			}
			rsp = aux.TxConnRspBufs
			s.connectRsp = true
		}
		if rsp == nil {
			return nextChainSegment(s, aux)
		}
		s.state = auxStateTxRsp
		s.ref = s.Now().Add(IFS(aux.Channel.PHY))
		return Continue(txIFS(rsp, false))

	case auxStateTxRsp:
		if ev.Kind != EventTxDone {
			desync(kind, s.state, "unexpected %s", ev.Kind)
		}
		if ev.Status != Success {
			return Terminate(ReasonFailed)
		}
		if s.connectRsp {
			return Complete()
		}
		return nextChainSegment(s, aux)

	case auxStateTxChain:
		if ev.Kind != EventTxDone {
			desync(kind, s.state, "unexpected %s", ev.Kind)
		}
		if ev.Status != Success {
			return Terminate(ReasonFailed)
		}
		return nextChainSegment(s, aux)
	}

	desync(kind, s.state, "unknown state")
	return Action{}
}

func (auxAdvEngine) Finish(s *OpState, reason Reason) {
	s.connectRsp = false
}

// nextChainSegment asks the host for the next AUX_CHAIN_IND and schedules it
// at an absolute offset from the previous transmission.
func nextChainSegment(s *OpState, aux *AuxAdvOp) Action {
	if aux.PrepareChain == nil {
		return Complete()
	}
	seg := aux.PrepareChain(s)
	if seg.Offset == 0 {
		return Complete()
	}
	if len(seg.PDU) == 0 {
		desync(s.op.Kind, s.state, "chain segment without a PDU")
	}

	due := s.ref.Add(AlignedOffset(seg.Offset, AuxOffsetUnit(seg.Offset)))
	if s.op.MaxDuration != 0 && due.Sub(s.op.Due) > int64(s.op.MaxDuration) {
		if logEnabled(logrus.WarnLevel) {
			logger.WithFields(logrus.Fields{
				"op":       s.op,
				"segments": s.segments,
			}).Warn("baseband: chain truncated at the end of the operation")
		}
		return Complete()
	}

	aux.Channel.Index = seg.Channel
	s.ref = due
	s.state = auxStateTxChain
	s.segments++
	return Continue(txAt(due, &aux.Channel, seg.PDU, false))
}
