package baseband

// Direction of a radio transfer.
type Direction uint8

const (
	DirTx Direction = iota
	DirRx
)

func (d Direction) String() string {
	if d == DirTx {
		return "tx"
	}
	return "rx"
}

// Command is the next radio transfer an engine wants armed.
type Command struct {
	Dir Direction

	// AtIFS starts the transfer one inter-frame space after the previous
	// one. Otherwise the transfer starts at Due, and a reception waits at
	// most RxTimeout for a packet.
	AtIFS     bool
	Due       Time
	RxTimeout Usecs

	// Channel retunes the radio before the transfer when non-nil.
	Channel *ChannelParams

	TxBufs [][]byte
	RxBuf  []byte

	// FollowIFS keeps the IFS timer armed after this transfer so that the
	// next one can be armed at TIFS.
	FollowIFS bool
}

// ActionKind is the closed set of decisions an engine can take.
type ActionKind uint8

const (
	ActContinue ActionKind = iota
	ActComplete
	ActTerminate
)

// Action is returned by engines from Execute and HandleEvent.
type Action struct {
	Kind   ActionKind
	Cmd    Command
	Reason Reason // for ActTerminate
}

// Continue arms cmd.
func Continue(cmd Command) Action {
	return Action{Kind: ActContinue, Cmd: cmd}
}

// Complete ends the operation normally.
func Complete() Action {
	return Action{Kind: ActComplete, Reason: ReasonComplete}
}

// Terminate ends the operation abnormally.
func Terminate(reason Reason) Action {
	return Action{Kind: ActTerminate, Reason: reason}
}

func txAt(due Time, ch *ChannelParams, bufs [][]byte, follow bool) Command {
	return Command{Dir: DirTx, Due: due, Channel: ch, TxBufs: bufs, FollowIFS: follow}
}

func rxAt(due Time, timeout Usecs, ch *ChannelParams, buf []byte, follow bool) Command {
	return Command{Dir: DirRx, Due: due, RxTimeout: timeout, Channel: ch, RxBuf: buf, FollowIFS: follow}
}

func txIFS(bufs [][]byte, follow bool) Command {
	return Command{Dir: DirTx, AtIFS: true, TxBufs: bufs, FollowIFS: follow}
}

func rxIFS(buf []byte, follow bool) Command {
	return Command{Dir: DirRx, AtIFS: true, RxBuf: buf, FollowIFS: follow}
}

// EventKind tells which completion callback fired.
type EventKind uint8

const (
	EventTxDone EventKind = iota
	EventRxDone
)

func (k EventKind) String() string {
	if k == EventTxDone {
		return "tx-done"
	}
	return "rx-done"
}

// Event is a radio completion fed into an engine.
type Event struct {
	Kind   EventKind
	Status Status
	Info   RxInfo // for EventRxDone
}

// Engine is the state machine for one operation kind. Execute starts an
// operation, HandleEvent advances it for every radio completion, and Finish
// releases whatever the engine still holds once the operation ends for any
// reason. Engines never touch the radio directly.
type Engine interface {
	Execute(s *OpState) Action
	HandleEvent(s *OpState, ev Event) Action
	Finish(s *OpState, reason Reason)
}
