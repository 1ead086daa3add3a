// Package baseband provides the link-layer baseband engines of a Bluetooth Low
// Energy controller: the state machines that drive a radio through advertising,
// scanning, extended advertising and connection events.
//
// The engines never block. The scheduler hands an Operation to a Controller,
// the matching engine arms the radio and returns, and the radio driver later
// reports TX and RX completion from interrupt context. Every completion is fed
// into the engine, which decides whether to continue the exchange, complete the
// operation or terminate it.
//
// This package can be used on microcontrollers with a baseband radio as well as
// on hosted systems, where the radiosim package stands in for the driver.
package baseband // import "tinygo.org/x/baseband"
