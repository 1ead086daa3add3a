package baseband

import (
	"encoding/binary"
	"fmt"
)

// AdvPDUType is the PDU type field of an advertising channel PDU header.
// Extended advertising reuses several values on the secondary channels.
type AdvPDUType uint8

const (
	AdvInd        AdvPDUType = 0x0
	AdvDirectInd  AdvPDUType = 0x1
	AdvNonconnInd AdvPDUType = 0x2
	ScanReq       AdvPDUType = 0x3 // also AUX_SCAN_REQ
	ScanRsp       AdvPDUType = 0x4
	ConnectInd    AdvPDUType = 0x5 // also AUX_CONNECT_REQ
	AdvScanInd    AdvPDUType = 0x6
	AdvExtInd     AdvPDUType = 0x7 // also AUX_ADV_IND, AUX_SCAN_RSP, AUX_SYNC_IND, AUX_CHAIN_IND
	AuxConnectRsp AdvPDUType = 0x8
)

func (t AdvPDUType) String() string {
	switch t {
	case AdvInd:
		return "ADV_IND"
	case AdvDirectInd:
		return "ADV_DIRECT_IND"
	case AdvNonconnInd:
		return "ADV_NONCONN_IND"
	case ScanReq:
		return "SCAN_REQ"
	case ScanRsp:
		return "SCAN_RSP"
	case ConnectInd:
		return "CONNECT_IND"
	case AdvScanInd:
		return "ADV_SCAN_IND"
	case AdvExtInd:
		return "ADV_EXT_IND"
	case AuxConnectRsp:
		return "AUX_CONNECT_RSP"
	default:
		return fmt.Sprintf("AdvPDUType(%#x)", uint8(t))
	}
}

// Sizes of the PDU headers and fields.
const (
	HeaderLen      = 2
	AddressLen     = 6
	MaxAdvPDULen   = HeaderLen + 255
	MaxLegacyAdvPL = 37
)

// AdvHeader is the header of an advertising channel PDU.
type AdvHeader struct {
	Type   AdvPDUType
	ChSel  bool
	TxAdd  bool
	RxAdd  bool
	Length uint8
}

// ParseAdvHeader decodes the first two bytes of pdu.
func ParseAdvHeader(pdu []byte) (h AdvHeader, ok bool) {
	if len(pdu) < HeaderLen {
		return h, false
	}
	h.Type = AdvPDUType(pdu[0] & 0x0f)
	h.ChSel = pdu[0]&0x20 != 0
	h.TxAdd = pdu[0]&0x40 != 0
	h.RxAdd = pdu[0]&0x80 != 0
	h.Length = pdu[1]
	return h, true
}

// Encode writes the header into the first two bytes of b.
func (h AdvHeader) Encode(b []byte) {
	b[0] = byte(h.Type) & 0x0f
	if h.ChSel {
		b[0] |= 0x20
	}
	if h.TxAdd {
		b[0] |= 0x40
	}
	if h.RxAdd {
		b[0] |= 0x80
	}
	b[1] = h.Length
}

// LLID is the logical link identifier of a data channel PDU.
type LLID uint8

const (
	LLIDContinuation LLID = 0x1 // also empty PDU
	LLIDStart        LLID = 0x2
	LLIDControl      LLID = 0x3
)

// DataHeader is the header of a data channel PDU.
type DataHeader struct {
	LLID   LLID
	NESN   bool
	SN     bool
	MD     bool
	Length uint8
}

// ParseDataHeader decodes the first two bytes of pdu.
func ParseDataHeader(pdu []byte) (h DataHeader, ok bool) {
	if len(pdu) < HeaderLen {
		return h, false
	}
	h.LLID = LLID(pdu[0] & 0x03)
	h.NESN = pdu[0]&0x04 != 0
	h.SN = pdu[0]&0x08 != 0
	h.MD = pdu[0]&0x10 != 0
	h.Length = pdu[1]
	return h, true
}

// Encode writes the header into the first two bytes of b.
func (h DataHeader) Encode(b []byte) {
	b[0] = byte(h.LLID) & 0x03
	if h.NESN {
		b[0] |= 0x04
	}
	if h.SN {
		b[0] |= 0x08
	}
	if h.MD {
		b[0] |= 0x10
	}
	b[1] = h.Length
}

// Extended header flags.
const (
	extFlagAdvA     = 0x01
	extFlagTargetA  = 0x02
	extFlagCTEInfo  = 0x04
	extFlagADI      = 0x08
	extFlagAuxPtr   = 0x10
	extFlagSyncInfo = 0x20
	extFlagTxPower  = 0x40
)

// ExtHeader holds the fields of a common extended advertising payload header
// that the baseband cares about.
type ExtHeader struct {
	AdvMode    uint8
	AdvA       *Address
	TargetA    *Address
	ADI        uint16
	HasADI     bool
	AuxPtr     *AuxPtr
	TxPower    int8
	HasTxPower bool
}

// ParseExtHeader decodes the extended header of an ADV_EXT_IND family PDU.
func ParseExtHeader(pdu []byte) (h ExtHeader, ok bool) {
	if len(pdu) < HeaderLen+1 {
		return h, false
	}
	extLen := int(pdu[2] & 0x3f)
	h.AdvMode = pdu[2] >> 6
	if extLen == 0 {
		return h, true
	}
	if len(pdu) < HeaderLen+1+extLen {
		return h, false
	}
	ext := pdu[HeaderLen+1 : HeaderLen+1+extLen]
	flags := ext[0]
	p := 1
	take := func(n int) []byte {
		if p+n > len(ext) {
			return nil
		}
		f := ext[p : p+n]
		p += n
		return f
	}
	if flags&extFlagAdvA != 0 {
		f := take(AddressLen)
		if f == nil {
			return h, false
		}
		var a Address
		copy(a[:], f)
		h.AdvA = &a
	}
	if flags&extFlagTargetA != 0 {
		f := take(AddressLen)
		if f == nil {
			return h, false
		}
		var a Address
		copy(a[:], f)
		h.TargetA = &a
	}
	if flags&extFlagCTEInfo != 0 && take(1) == nil {
		return h, false
	}
	if flags&extFlagADI != 0 {
		f := take(2)
		if f == nil {
			return h, false
		}
		h.ADI = binary.LittleEndian.Uint16(f)
		h.HasADI = true
	}
	if flags&extFlagAuxPtr != 0 {
		f := take(3)
		if f == nil {
			return h, false
		}
		ptr := DecodeAuxPtr(f)
		h.AuxPtr = &ptr
	}
	if flags&extFlagSyncInfo != 0 && take(18) == nil {
		return h, false
	}
	if flags&extFlagTxPower != 0 {
		f := take(1)
		if f == nil {
			return h, false
		}
		h.TxPower = int8(f[0])
		h.HasTxPower = true
	}
	return h, true
}

// PeerAddress returns the address of the device that sent pdu, with the
// random flag from TxAdd.
func PeerAddress(pdu []byte) (addr Address, random bool, ok bool) {
	h, ok := ParseAdvHeader(pdu)
	if !ok {
		return addr, false, false
	}
	switch h.Type {
	case AdvInd, AdvDirectInd, AdvNonconnInd, AdvScanInd, ScanRsp, ScanReq, ConnectInd:
		if len(pdu) < HeaderLen+AddressLen {
			return addr, false, false
		}
		copy(addr[:], pdu[HeaderLen:])
		return addr, h.TxAdd, true
	case AdvExtInd, AuxConnectRsp:
		ext, ok := ParseExtHeader(pdu)
		if !ok || ext.AdvA == nil {
			return addr, false, false
		}
		return *ext.AdvA, h.TxAdd, true
	}
	return addr, false, false
}

// TargetAddress returns the address pdu is directed at, with the random flag
// from RxAdd. Undirected PDUs have no target.
func TargetAddress(pdu []byte) (addr Address, random bool, ok bool) {
	h, ok := ParseAdvHeader(pdu)
	if !ok {
		return addr, false, false
	}
	switch h.Type {
	case AdvDirectInd, ScanReq, ConnectInd:
		if len(pdu) < HeaderLen+2*AddressLen {
			return addr, false, false
		}
		copy(addr[:], pdu[HeaderLen+AddressLen:])
		return addr, h.RxAdd, true
	case AdvExtInd, AuxConnectRsp:
		ext, ok := ParseExtHeader(pdu)
		if !ok || ext.TargetA == nil {
			return addr, false, false
		}
		return *ext.TargetA, h.RxAdd, true
	}
	return addr, false, false
}

// AuxPtr points from one extended advertising PDU to the next one in the
// sequence.
type AuxPtr struct {
	Channel uint8
	CA      bool // clock accuracy 0-50ppm
	Offset  Usecs
	PHY     PHY
}

// Encode returns the three byte AuxPtr field. The offset is rounded up to
// the unit selected by AuxOffsetUnit, which is where the engines schedule the
// auxiliary packet.
func (p AuxPtr) Encode() [3]byte {
	unit := AuxOffsetUnit(p.Offset)
	units := uint16(AlignedOffset(p.Offset, unit)/unit) & 0x1fff

	var b [3]byte
	b[0] = p.Channel & 0x3f
	if p.CA {
		b[0] |= 0x40
	}
	if unit == AuxOffsetUnit300 {
		b[0] |= 0x80
	}
	var phy uint16
	switch p.PHY {
	case PHY2M:
		phy = 1
	case PHYCoded:
		phy = 2
	}
	binary.LittleEndian.PutUint16(b[1:], units|phy<<13)
	return b
}

// DecodeAuxPtr decodes a three byte AuxPtr field.
func DecodeAuxPtr(b []byte) AuxPtr {
	v := binary.LittleEndian.Uint16(b[1:])
	unit := AuxOffsetUnit30
	if b[0]&0x80 != 0 {
		unit = AuxOffsetUnit300
	}
	p := AuxPtr{
		Channel: b[0] & 0x3f,
		CA:      b[0]&0x40 != 0,
		Offset:  Usecs(v&0x1fff) * unit,
		PHY:     PHY1M,
	}
	switch v >> 13 {
	case 1:
		p.PHY = PHY2M
	case 2:
		p.PHY = PHYCoded
	}
	return p
}

// NewAdvPDU returns an advertising channel PDU with header h and the
// concatenated fields as payload. The header length is filled in.
func NewAdvPDU(h AdvHeader, fields ...[]byte) []byte {
	pdu := make([]byte, HeaderLen, MaxAdvPDULen)
	for _, f := range fields {
		pdu = append(pdu, f...)
	}
	h.Length = uint8(len(pdu) - HeaderLen)
	h.Encode(pdu)
	return pdu
}

// NewDataPDU returns a data channel PDU with header h and payload.
func NewDataPDU(h DataHeader, payload []byte) []byte {
	pdu := make([]byte, HeaderLen+len(payload))
	h.Length = uint8(len(payload))
	h.Encode(pdu)
	copy(pdu[HeaderLen:], payload)
	return pdu
}

// Append appends the extended header, including its length and AdvMode byte,
// to dst. Only the fields ParseExtHeader knows are written.
func (h ExtHeader) Append(dst []byte) []byte {
	var flags byte
	var fields []byte
	if h.AdvA != nil {
		flags |= extFlagAdvA
		fields = append(fields, h.AdvA[:]...)
	}
	if h.TargetA != nil {
		flags |= extFlagTargetA
		fields = append(fields, h.TargetA[:]...)
	}
	if h.HasADI {
		flags |= extFlagADI
		fields = append(fields, byte(h.ADI), byte(h.ADI>>8))
	}
	if h.AuxPtr != nil {
		flags |= extFlagAuxPtr
		ptr := h.AuxPtr.Encode()
		fields = append(fields, ptr[:]...)
	}
	if h.HasTxPower {
		flags |= extFlagTxPower
		fields = append(fields, byte(h.TxPower))
	}
	if flags == 0 {
		return append(dst, h.AdvMode<<6)
	}
	dst = append(dst, byte(1+len(fields))|h.AdvMode<<6, flags)
	return append(dst, fields...)
}
