package baseband

// Capture is offered to the Sink after every radio completion.
type Capture struct {
	Kind      OpKind
	Dir       Direction
	Status    Status
	State     uint8 // engine state before the completion was handled
	RSSI      int8  // RX only
	Timestamp Time  // RX only
	Channel   ChannelParams
	PDU       []byte // received bytes, or the first transmitted buffer
}

// Sink observes completed transfers, for example to feed a packet sniffer.
// Observe is called synchronously from the completion path and must neither
// block nor call back into the controller. The PDU slice is only valid during
// the call.
type Sink interface {
	Observe(c Capture)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(c Capture)

// Observe implements Sink.
func (f SinkFunc) Observe(c Capture) {
	f(c)
}
