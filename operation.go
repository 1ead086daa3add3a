package baseband

import "fmt"

// OpKind selects the engine that executes an operation.
type OpKind uint8

const (
	OpScan OpKind = iota
	OpAdv
	OpAuxAdv
	OpPeriodicAdv
	OpConn
	OpTest

	numOpKinds
)

func (k OpKind) String() string {
	switch k {
	case OpScan:
		return "scan"
	case OpAdv:
		return "adv"
	case OpAuxAdv:
		return "aux-adv"
	case OpPeriodicAdv:
		return "periodic-adv"
	case OpConn:
		return "conn"
	case OpTest:
		return "test"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Operation is one scheduled unit of baseband work. It is created and ordered
// by the scheduler, which owns it; the controller only borrows it between
// Execute and the call to End or Abort.
type Operation struct {
	Kind        OpKind
	Due         Time
	MaxDuration Usecs

	// Next is the operation scheduled after this one, if any. The engines
	// read its due-time to avoid overrunning it.
	Next *Operation

	// Payload is one of *ScanOp, *AdvOp, *AuxAdvOp, *ConnOp or *TestOp,
	// matching Kind. Periodic advertising uses *AuxAdvOp.
	Payload interface{}

	// End is called once the operation stopped by itself or was terminated.
	End func(op *Operation, reason Reason)

	// Abort is called instead of End when the scheduler cancels the
	// operation.
	Abort func(op *Operation)
}

func (op *Operation) String() string {
	return fmt.Sprintf("%s@%d.%02d", op.Kind, op.Due.Ticks, op.Due.Usec)
}
