package baseband

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Roles selects which engines a controller registers.
type Roles uint8

const (
	RoleObserver    Roles = 1 << iota // scanning
	RoleBroadcaster                   // legacy, extended and periodic advertising
	RoleCentral                       // scanning, initiating and master connection events
	RolePeripheral                    // connectable advertising and slave connection events
	RoleTest                          // direct test mode
)

// Config holds the platform timing parameters of a controller.
type Config struct {
	Roles Roles

	// SetupDelay is the time the radio needs between arming and the start
	// of a transfer at a due-time.
	SetupDelay Usecs

	// MaxScanPeriod bounds a single scan reception window. Zero means no
	// bound other than the operation itself.
	MaxScanPeriod Usecs
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Roles:         RoleObserver | RoleBroadcaster | RoleCentral | RolePeripheral,
		SetupDelay:    100,
		MaxScanPeriod: 10000000,
	}
}

// Controller dispatches operations to the engines and drives the radio on
// their behalf. Execute, Cancel and the radio completions are serialized, and
// only one operation executes at a time.
type Controller struct {
	mu      sync.Mutex
	radio   Radio
	filter  Filter
	sink    Sink
	cfg     Config
	engines [numOpKinds]Engine
	cur     *OpState
	gen     uint32
	stats   stats
}

// NewController returns a controller driving radio, with the engines for
// cfg.Roles registered.
func NewController(radio Radio, cfg Config) *Controller {
	c := &Controller{
		radio:  radio,
		filter: AllowAll{},
		cfg:    cfg,
	}
	c.EnableRoles(cfg.Roles)
	return c
}

// EnableRoles registers the engines needed by roles. It is meant to be called
// once at initialization.
func (c *Controller) EnableRoles(roles Roles) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if roles&(RoleObserver|RoleCentral) != 0 {
		c.engines[OpScan] = scanEngine{}
	}
	if roles&(RoleBroadcaster|RolePeripheral) != 0 {
		c.engines[OpAdv] = advEngine{}
		c.engines[OpAuxAdv] = auxAdvEngine{}
	}
	if roles&RoleBroadcaster != 0 {
		c.engines[OpPeriodicAdv] = auxAdvEngine{periodic: true}
	}
	if roles&(RoleCentral|RolePeripheral) != 0 {
		c.engines[OpConn] = connEngine{}
	}
	if roles&RoleTest != 0 {
		c.engines[OpTest] = testEngine{}
	}
	c.cfg.Roles |= roles
}

// Register installs e as the engine for kind, replacing any built-in engine.
func (c *Controller) Register(kind OpKind, e Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engines[kind] = e
}

// SetFilter replaces the PDU filter. The default accepts everything.
func (c *Controller) SetFilter(f Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == nil {
		f = AllowAll{}
	}
	c.filter = f
}

// SetSink installs an observer for every completed transfer.
func (c *Controller) SetSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = s
}

// Current returns the executing operation, or nil.
func (c *Controller) Current() *Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil
	}
	return c.cur.op
}

// Stats returns a copy of the counters of kind.
func (c *Controller) Stats(kind OpKind) Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats[kind]
}

// ResetStats zeroes all counters.
func (c *Controller) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = stats{}
}

// Execute starts op. The previous operation must have ended.
func (c *Controller) Execute(op *Operation) error {
	c.mu.Lock()
	if c.cur != nil {
		c.mu.Unlock()
		return ErrBusy
	}
	if int(op.Kind) >= len(c.engines) || c.engines[op.Kind] == nil {
		c.mu.Unlock()
		return ErrUnsupported
	}
	if !payloadMatches(op) {
		c.mu.Unlock()
		return ErrNoPayload
	}
	c.gen++
	s := &OpState{op: op, ctrl: c, gen: c.gen}
	c.cur = s
	c.stats[op.Kind].Executed++
	if logEnabled(logrus.DebugLevel) {
		logger.WithFields(logrus.Fields{"op": op}).Debug("baseband: execute")
	}
	c.apply(s, c.engines[op.Kind].Execute(s))
	ended := s.claimNotify()
	c.mu.Unlock()

	if ended {
		s.notify()
	}
	return nil
}

// Cancel aborts op, which must be the executing operation. The radio transfer
// in progress is abandoned, any receive buffer still owned by the engine is
// handed back to the host, and op.Abort is called.
func (c *Controller) Cancel(op *Operation) error {
	c.mu.Lock()
	s := c.cur
	if s == nil || s.op != op {
		c.mu.Unlock()
		return ErrNotCurrent
	}
	c.radio.CancelActive()
	c.finish(s, ReasonCanceled)
	ended := s.claimNotify()
	c.mu.Unlock()

	if ended {
		s.notify()
	}
	return nil
}

func payloadMatches(op *Operation) bool {
	switch op.Kind {
	case OpScan:
		_, ok := op.Payload.(*ScanOp)
		return ok
	case OpAdv:
		_, ok := op.Payload.(*AdvOp)
		return ok
	case OpAuxAdv, OpPeriodicAdv:
		_, ok := op.Payload.(*AuxAdvOp)
		return ok
	case OpConn:
		_, ok := op.Payload.(*ConnOp)
		return ok
	case OpTest:
		_, ok := op.Payload.(*TestOp)
		return ok
	}
	return op.Payload != nil
}

func (c *Controller) txCallback(gen uint32) TxCallback {
	return func(status Status) {
		c.complete(gen, Event{Kind: EventTxDone, Status: status})
	}
}

func (c *Controller) rxCallback(gen uint32) RxCallback {
	return func(status Status, info RxInfo) {
		c.complete(gen, Event{Kind: EventRxDone, Status: status, Info: info})
	}
}

// complete feeds a radio completion into the engine of the operation armed
// under generation gen.
func (c *Controller) complete(gen uint32, ev Event) {
	start := time.Now()

	c.mu.Lock()
	s := c.cur
	if s == nil || s.gen != gen {
		if s != nil {
			c.stats[s.op.Kind].Stale++
		}
		c.mu.Unlock()
		if logEnabled(logrus.WarnLevel) {
			logger.WithFields(logrus.Fields{"gen": gen, "event": ev.Kind}).Warn("baseband: dropped stale completion")
		}
		return
	}

	kind := s.op.Kind
	dir := DirTx
	if ev.Kind == EventRxDone {
		dir = DirRx
	}
	c.stats.transfer(kind, dir, ev.Status)
	c.observe(s, dir, ev)

	if logEnabled(logrus.DebugLevel) {
		logger.WithFields(logrus.Fields{
			"kind":   kind,
			"state":  s.state,
			"event":  ev.Kind,
			"status": ev.Status,
		}).Debug("baseband: completion")
	}

	c.apply(s, c.engines[kind].HandleEvent(s, ev))
	c.stats.handler(kind, time.Since(start))
	ended := s.claimNotify()
	c.mu.Unlock()

	if ended {
		s.notify()
	}
}

func (c *Controller) observe(s *OpState, dir Direction, ev Event) {
	if c.sink == nil {
		return
	}
	capture := Capture{
		Kind:    s.op.Kind,
		Dir:     dir,
		Status:  ev.Status,
		State:   s.state,
		Channel: s.channel(),
	}
	if dir == DirRx {
		capture.RSSI = ev.Info.RSSI
		capture.Timestamp = ev.Info.Timestamp
		if ev.Status == Success && s.lastRx != nil && ev.Info.Len <= len(s.lastRx) {
			capture.PDU = s.lastRx[:ev.Info.Len]
		}
	} else if len(s.lastTx) > 0 {
		capture.PDU = s.lastTx[0]
	}
	c.sink.Observe(capture)
}

// apply carries out an engine decision. A pending terminate request wins over
// any further transfer.
func (c *Controller) apply(s *OpState, a Action) {
	switch a.Kind {
	case ActContinue:
		if s.terminate {
			c.finish(s, ReasonTerminated)
			return
		}
		if err := c.arm(s, a.Cmd); err != nil {
			logger.WithFields(logrus.Fields{"op": s.op, "error": err}).Error("baseband: failed to arm radio")
			c.finish(s, ReasonFailed)
		}
	case ActComplete:
		c.finish(s, ReasonComplete)
	case ActTerminate:
		c.finish(s, a.Reason)
	default:
		desync(s.op.Kind, s.state, "unknown action %d", a.Kind)
	}
}

func (c *Controller) arm(s *OpState, cmd Command) error {
	if cmd.Channel != nil {
		c.radio.SetChannelParams(*cmd.Channel)
		s.phy = cmd.Channel.PHY
		s.chanParams = *cmd.Channel
	}
	if cmd.AtIFS {
		if !s.ifsArmed {
			desync(s.op.Kind, s.state, "%s at TIFS without an armed IFS timer", cmd.Dir)
		}
	} else {
		if s.ifsArmed {
			c.radio.CancelIFS()
		}
		c.radio.SetDataExchange(c.txCallback(s.gen), c.rxCallback(s.gen), cmd.Due, cmd.RxTimeout)
	}
	c.radio.SetIFS(cmd.FollowIFS, IFS(s.phy))
	s.ifsArmed = cmd.FollowIFS

	var err error
	switch cmd.Dir {
	case DirTx:
		s.lastTx = cmd.TxBufs
		if cmd.AtIFS {
			err = c.radio.TransmitAtIFS(cmd.TxBufs)
		} else {
			err = c.radio.Transmit(cmd.TxBufs)
		}
	case DirRx:
		s.lastRx = cmd.RxBuf
		if cmd.AtIFS {
			err = c.radio.ReceiveAtIFS(cmd.RxBuf)
		} else {
			err = c.radio.Receive(cmd.RxBuf)
		}
	}
	return err
}

// finish ends the operation of s. The End or Abort callback runs later, from
// notify, once the controller lock is released, so that the scheduler may
// execute the next operation from it.
func (c *Controller) finish(s *OpState, reason Reason) {
	if s.ended {
		desync(s.op.Kind, s.state, "operation finished twice")
	}
	if s.ifsArmed {
		c.radio.CancelIFS()
		c.radio.SetIFS(false, 0)
		s.ifsArmed = false
	}
	c.engines[s.op.Kind].Finish(s, reason)
	if s.rx.busy() {
		desync(s.op.Kind, s.state, "receive buffer still in flight after the operation ended")
	}
	s.ended = true
	s.reason = reason
	c.cur = nil
	c.stats.ended(s.op.Kind, reason)
	if logEnabled(logrus.DebugLevel) {
		logger.WithFields(logrus.Fields{"op": s.op, "reason": reason}).Debug("baseband: operation ended")
	}
}

// claimNotify reports, once, that the operation has ended. It must be called
// with the controller lock held.
func (s *OpState) claimNotify() bool {
	if !s.ended || s.notified {
		return false
	}
	s.notified = true
	return true
}

func (s *OpState) notify() {
	if s.reason == ReasonCanceled {
		if s.op.Abort != nil {
			s.op.Abort(s.op)
		}
		return
	}
	if s.op.End != nil {
		s.op.End(s.op, s.reason)
	}
}
