package baseband

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

const (
	hciEventPkt       = 0x04
	evtVendorSpecific = 0xff

	// hciTapSubevent marks a vendor event as a captured baseband packet.
	hciTapSubevent = 0xb5

	hciEvtHeaderLen = 3
	hciTapFixedLen  = 17
	hciTapMaxPDU    = 255 - hciTapFixedLen
)

var (
	ErrHCITapInvalidPacket = errors.New("baseband: invalid HCI tap packet")
)

// HCITap is a Sink that writes every capture as an HCI vendor-specific event,
// so that HCI based sniffing tools can display the link layer traffic. PDUs
// that do not fit into a single event are truncated.
//
// The event parameters are laid out as:
//
//	0     subevent (0xb5)
//	1     operation kind
//	2     direction
//	3     status
//	4     engine state
//	5     channel index
//	6     PHY
//	7     RSSI
//	8:12  timestamp ticks, little endian
//	12    timestamp microseconds
//	13:17 access address, little endian
//	17:   PDU
type HCITap struct {
	w   io.Writer
	buf [hciEvtHeaderLen + 255]byte

	// Err holds the first write error. Captures are dropped after it.
	Err error
}

// NewHCITap returns a tap writing to w.
func NewHCITap(w io.Writer) *HCITap {
	return &HCITap{w: w}
}

// Observe implements Sink.
func (t *HCITap) Observe(c Capture) {
	if t.Err != nil {
		return
	}
	pkt := EncodeHCITap(t.buf[:0], c)
	if _, err := t.w.Write(pkt); err != nil {
		t.Err = err
		logger.WithFields(logrus.Fields{"error": err}).Warn("baseband: HCI tap write failed")
	}
}

// EncodeHCITap appends the HCI event for c to dst.
func EncodeHCITap(dst []byte, c Capture) []byte {
	pdu := c.PDU
	if len(pdu) > hciTapMaxPDU {
		pdu = pdu[:hciTapMaxPDU]
	}
	var b [hciEvtHeaderLen + hciTapFixedLen]byte
	b[0] = hciEventPkt
	b[1] = evtVendorSpecific
	b[2] = uint8(hciTapFixedLen + len(pdu))
	p := b[hciEvtHeaderLen:]
	p[0] = hciTapSubevent
	p[1] = uint8(c.Kind)
	p[2] = uint8(c.Dir)
	p[3] = uint8(c.Status)
	p[4] = c.State
	p[5] = c.Channel.Index
	p[6] = uint8(c.Channel.PHY)
	p[7] = uint8(c.RSSI)
	binary.LittleEndian.PutUint32(p[8:], c.Timestamp.Ticks)
	p[12] = c.Timestamp.Usec
	binary.LittleEndian.PutUint32(p[13:], c.Channel.AccessAddress)
	dst = append(dst, b[:]...)
	return append(dst, pdu...)
}

// DecodeHCITap parses one event produced by EncodeHCITap. The PDU of the
// returned capture aliases pkt.
func DecodeHCITap(pkt []byte) (Capture, error) {
	if len(pkt) < hciEvtHeaderLen+hciTapFixedLen || pkt[0] != hciEventPkt || pkt[1] != evtVendorSpecific {
		return Capture{}, ErrHCITapInvalidPacket
	}
	plen := int(pkt[2])
	if plen < hciTapFixedLen || len(pkt) < hciEvtHeaderLen+plen {
		return Capture{}, ErrHCITapInvalidPacket
	}
	p := pkt[hciEvtHeaderLen : hciEvtHeaderLen+plen]
	if p[0] != hciTapSubevent {
		return Capture{}, ErrHCITapInvalidPacket
	}
	c := Capture{
		Kind:   OpKind(p[1]),
		Dir:    Direction(p[2]),
		Status: Status(p[3]),
		State:  p[4],
		RSSI:   int8(p[7]),
		Timestamp: Time{
			Ticks: binary.LittleEndian.Uint32(p[8:]),
			Usec:  p[12],
		},
		PDU: p[hciTapFixedLen:],
	}
	c.Channel.Index = p[5]
	c.Channel.PHY = PHY(p[6])
	c.Channel.AccessAddress = binary.LittleEndian.Uint32(p[13:])
	return c, nil
}
