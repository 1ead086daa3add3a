package baseband

import "fmt"

// PHY is a BLE physical layer.
type PHY uint8

const (
	PHY1M PHY = iota + 1
	PHY2M
	PHYCoded
)

func (p PHY) String() string {
	switch p {
	case PHY1M:
		return "1M"
	case PHY2M:
		return "2M"
	case PHYCoded:
		return "Coded"
	default:
		return fmt.Sprintf("PHY(%d)", uint8(p))
	}
}

// PHYOptions selects the coding scheme on the coded PHY. It is ignored by the
// uncoded PHYs.
type PHYOptions uint8

const (
	PHYOptionsDefault PHYOptions = iota
	PHYOptionsS2
	PHYOptionsS8
)

// Inter-frame spacing.
const (
	// TIFS is the fixed gap between the end of one packet and the start of
	// the next inside an exchange.
	TIFS Usecs = 150

	// TMAFS is the minimum gap between auxiliary packets of one chain.
	TMAFS Usecs = 300
)

// IFS returns the inter-frame spacing used on phy. All PHYs currently share
// the same TIFS; the driver applies its own per-PHY RX/TX turnaround.
func IFS(phy PHY) Usecs {
	return TIFS
}

// PreambleAAUsecs returns the air time of the preamble and access address on
// phy, which is the minimum the receiver has to stay open to detect a packet.
func PreambleAAUsecs(phy PHY) Usecs {
	switch phy {
	case PHY2M:
		return 8 + 16
	case PHYCoded:
		return 80 + 256
	default:
		return 8 + 32
	}
}

// AirTime returns the on-air duration of a PDU of pduLen bytes (header
// included) on phy.
func AirTime(phy PHY, opts PHYOptions, pduLen int) Usecs {
	n := Usecs(pduLen)
	switch phy {
	case PHY2M:
		return (2 + 4 + n + 3) * 8 / 2
	case PHYCoded:
		s := Usecs(8)
		if opts == PHYOptionsS2 {
			s = 2
		}
		// Preamble, access address, coding indicator and TERM1 are always
		// S8 coded.
		return 80 + 256 + 16 + 24 + (n*8+24+3)*s
	default:
		return (1 + 4 + n + 3) * 8
	}
}

// EncryptionContext carries the session parameters the driver needs to run
// AES-CCM on a connection. The engines only pass it through.
type EncryptionContext struct {
	SessionKey    [16]byte
	IV            [8]byte
	TxCounter     uint64
	RxCounter     uint64
	DirectionBit  bool
	EncryptTx     bool
	DecryptRx     bool
	MICLen        uint8
	PacketTracked bool
}

// ChannelParams describes how the radio is tuned for a transfer.
type ChannelParams struct {
	PHY           PHY
	Options       PHYOptions // options for transmissions armed at a due-time
	TIFSOptions   PHYOptions // options for transmissions armed at TIFS
	Index         uint8      // channel index 0-39
	AccessAddress uint32
	CRCInit       uint32
	TxPower       int8
	Enc           *EncryptionContext
}

// Advertising channel access address and CRC seed.
const (
	AdvAccessAddress uint32 = 0x8E89BED6
	AdvCRCInit       uint32 = 0x555555
)
