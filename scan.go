package baseband

// ScanOp is the payload of an OpScan operation. It covers passive scanning,
// active scanning (TxReqBuf holds a SCAN_REQ) and initiating (TxReqBuf holds
// a CONNECT_IND and no response is expected).
type ScanOp struct {
	Channel ChannelParams
	Filter  FilterConfig

	RxAdvBuf []byte
	TxReqBuf []byte // optional
	RxRspBuf []byte // optional

	// Elapsed accumulates the time spent scanning. The scheduler clears it
	// when it reschedules the scan window.
	Elapsed Usecs

	// RxAdv receives every advertising PDU the filter lets through. It
	// returns true to send TxReqBuf at TIFS.
	RxAdv func(s *OpState, adv []byte, info RxInfo, res FilterResult) (sendReq bool)

	// TxReq is called once the request went out. It returns true when a
	// response is expected in RxRspBuf.
	TxReq func(s *OpState, adv []byte) (expectRsp bool)

	// RxRsp receives the response, or nil when none arrived.
	RxRsp func(s *OpState, rsp []byte, info RxInfo, res FilterResult)

	// RxAdvPost, if set, is called with the last delivered advertisement
	// once the exchange it started is over and before scanning resumes.
	RxAdvPost func(s *OpState, adv []byte)
}

const (
	scanStateRxAdv uint8 = iota
	scanStateTxReq
	scanStateRxRsp
)

type scanEngine struct{}

func (scanEngine) Execute(s *OpState) Action {
	scan := s.op.Payload.(*ScanOp)
	if scan.RxAdv == nil || scan.RxAdvBuf == nil {
		desync(OpScan, s.state, "scan without advertisement callback or buffer")
	}
	if scan.TxReqBuf != nil && scan.TxReq == nil {
		desync(OpScan, s.state, "request buffer without request callback")
	}
	if scan.RxRspBuf != nil && scan.RxRsp == nil {
		desync(OpScan, s.state, "response buffer without response callback")
	}

	s.state = scanStateRxAdv
	s.ref = s.op.Due
	dur := RemainingScanDuration(s.op, scan.Channel.PHY, &scan.Elapsed, s.op.Due,
		s.setupDelay(), s.ctrl.cfg.MaxScanPeriod)
	if dur == 0 {
		return Complete()
	}
	return Continue(rxAt(s.op.Due, dur, &scan.Channel, scan.RxAdvBuf, scan.TxReqBuf != nil))
}

func (scanEngine) HandleEvent(s *OpState, ev Event) Action {
	scan := s.op.Payload.(*ScanOp)

	switch s.state {
	case scanStateRxAdv:
		if ev.Kind != EventRxDone {
			desync(OpScan, s.state, "unexpected %s", ev.Kind)
		}
		switch ev.Status {
		case Success:
			adv := s.received(scan.RxAdvBuf, ev.Info)
			allowed, res := s.filter().Check(adv, &scan.Filter, false)
			if !allowed {
				return continueScan(s, scan)
			}
			s.pendingPost = true
			if scan.RxAdv(s, adv, ev.Info, res) && scan.TxReqBuf != nil {
				s.state = scanStateTxReq
				return Continue(txIFS([][]byte{scan.TxReqBuf}, scan.RxRspBuf != nil))
			}
			return continueScan(s, scan)
		case RxTimeout, CRCFailed:
			return continueScan(s, scan)
		default:
			return Terminate(ReasonFailed)
		}

	case scanStateTxReq:
		if ev.Kind != EventTxDone {
			desync(OpScan, s.state, "unexpected %s", ev.Kind)
		}
		if ev.Status != Success {
			return Terminate(ReasonFailed)
		}
		if scan.TxReq(s, scan.RxAdvBuf) && scan.RxRspBuf != nil {
			s.state = scanStateRxRsp
			return Continue(rxIFS(scan.RxRspBuf, false))
		}
		return continueScan(s, scan)

	case scanStateRxRsp:
		if ev.Kind != EventRxDone {
			desync(OpScan, s.state, "unexpected %s", ev.Kind)
		}
		var rsp []byte
		var res FilterResult
		if ev.Status == Success {
			pdu := s.received(scan.RxRspBuf, ev.Info)
			if allowed, r := s.filter().Check(pdu, &scan.Filter, false); allowed {
				rsp, res = pdu, r
			}
		}
		scan.RxRsp(s, rsp, ev.Info, res)
		return continueScan(s, scan)
	}

	desync(OpScan, s.state, "unknown state")
	return Action{}
}

func (scanEngine) Finish(s *OpState, reason Reason) {
	s.pendingPost = false
}

// continueScan accounts for the time spent so far and re-arms the receiver for
// the next advertisement, or completes the scan once its window is used up.
func continueScan(s *OpState, scan *ScanOp) Action {
	if s.pendingPost {
		s.pendingPost = false
		if scan.RxAdvPost != nil {
			scan.RxAdvPost(s, scan.RxAdvBuf)
		}
	}

	now := s.Now()
	if d := now.Sub(s.ref); d > 0 {
		scan.Elapsed += Usecs(d)
	}
	s.ref = now

	dur := RemainingScanDuration(s.op, scan.Channel.PHY, &scan.Elapsed, now,
		s.setupDelay(), s.ctrl.cfg.MaxScanPeriod)
	if dur == 0 {
		return Complete()
	}
	s.state = scanStateRxAdv
	return Continue(rxAt(now.Add(s.setupDelay()), dur, nil, scan.RxAdvBuf, scan.TxReqBuf != nil))
}
