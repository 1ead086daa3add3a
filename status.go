package baseband

import (
	"errors"
	"fmt"
)

var (
	ErrBusy        = errors.New("baseband: an operation is already executing")
	ErrUnsupported = errors.New("baseband: operation kind not enabled")
	ErrNotCurrent  = errors.New("baseband: operation is not executing")
	ErrNoPayload   = errors.New("baseband: operation payload does not match its kind")
)

// Status is the outcome of a single radio transfer, as reported by the driver.
type Status uint8

const (
	Success Status = iota
	CRCFailed
	RxTimeout
	Failed

	// Canceled is never reported by the driver. It is used when a receive
	// buffer is handed back to the host because the operation ended before
	// the buffer was filled.
	Canceled
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case CRCFailed:
		return "CRC failed"
	case RxTimeout:
		return "RX timeout"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Reason tells why an operation ended.
type Reason uint8

const (
	// ReasonComplete means the operation ran until it had nothing left to
	// do: the channel map or scan window was exhausted, a chain ended, or a
	// connection request was accepted.
	ReasonComplete Reason = iota

	// ReasonTerminated means the host set the terminate flag.
	ReasonTerminated

	// ReasonFailed means the radio reported a transport failure.
	ReasonFailed

	// ReasonCanceled means the scheduler canceled the operation.
	ReasonCanceled
)

func (r Reason) String() string {
	switch r {
	case ReasonComplete:
		return "complete"
	case ReasonTerminated:
		return "terminated"
	case ReasonFailed:
		return "failed"
	case ReasonCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

// DesyncError is the panic value raised when the scheduler, the driver and an
// engine disagree about the state of an operation. It is a programming error
// and is not recovered from.
type DesyncError struct {
	Kind  OpKind
	State uint8
	What  string
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("baseband: %s engine desynchronized in state %d: %s", e.Kind, e.State, e.What)
}

func desync(kind OpKind, state uint8, format string, args ...interface{}) {
	panic(&DesyncError{Kind: kind, State: state, What: fmt.Sprintf(format, args...)})
}
