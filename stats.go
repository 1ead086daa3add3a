package baseband

import "time"

// Counters are the statistics kept per operation kind. They only ever grow
// until reset and never influence the engines.
type Counters struct {
	TxOK      uint32
	TxFailed  uint32
	RxOK      uint32
	RxTimeout uint32
	RxCRC     uint32
	RxFailed  uint32

	// Stale counts completions that arrived after their operation ended.
	Stale uint32

	// Executed counts operations started; Ended counts them by Reason.
	Executed uint32
	Ended    [4]uint32

	// MaxHandler is the longest time a completion callback took.
	MaxHandler time.Duration
}

type stats [numOpKinds]Counters

func (st *stats) transfer(kind OpKind, dir Direction, status Status) {
	c := &st[kind]
	if dir == DirTx {
		if status == Success {
			c.TxOK++
		} else {
			c.TxFailed++
		}
		return
	}
	switch status {
	case Success:
		c.RxOK++
	case RxTimeout:
		c.RxTimeout++
	case CRCFailed:
		c.RxCRC++
	default:
		c.RxFailed++
	}
}

func (st *stats) handler(kind OpKind, d time.Duration) {
	if d > st[kind].MaxHandler {
		st[kind].MaxHandler = d
	}
}

func (st *stats) ended(kind OpKind, reason Reason) {
	if int(reason) < len(st[kind].Ended) {
		st[kind].Ended[reason]++
	}
}
