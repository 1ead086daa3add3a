package baseband

// RxInfo describes a completed reception.
type RxInfo struct {
	Len        int // bytes written into the receive buffer
	RSSI       int8
	CRC        uint32
	Timestamp  Time // start of the received packet
	PHYOptions PHYOptions
}

// TxCallback is invoked by the driver when a transmission ends.
type TxCallback func(status Status)

// RxCallback is invoked by the driver when a reception ends, successfully or
// not.
type RxCallback func(status Status, info RxInfo)

// Radio is the driver the engines arm. It is implemented by the PHY layer of
// the platform; the radiosim package provides an implementation for hosted
// systems and tests.
//
// Completion callbacks run in interrupt context. A driver must not invoke them
// from inside one of the methods below: the controller is still arming the
// radio at that point.
type Radio interface {
	// Now returns the current time of the hardware clock.
	Now() Time

	// SetChannelParams tunes the radio for the following transfers.
	SetChannelParams(p ChannelParams)

	// SetDataExchange installs the completion callbacks and the due-time of
	// the next transfer that is not armed at TIFS. rxTimeout bounds how long
	// the receiver waits for a preamble.
	SetDataExchange(onTx TxCallback, onRx RxCallback, due Time, rxTimeout Usecs)

	// SetIFS arms or disarms the inter-frame spacing timer that starts the
	// next TIFS transfer d microseconds after the current one ends.
	SetIFS(enabled bool, d Usecs)

	Transmit(bufs [][]byte) error
	TransmitAtIFS(bufs [][]byte) error
	Receive(buf []byte) error
	ReceiveAtIFS(buf []byte) error

	// CancelIFS stops a pending TIFS follow-up.
	CancelIFS()

	// CancelActive aborts the transfer in progress, if any. No completion
	// callback is invoked for the aborted transfer.
	CancelActive()
}
