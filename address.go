package baseband

import "errors"

// Address is a device address as it appears on air, in little endian order.
type Address [6]byte

var errInvalidAddress = errors.New("baseband: failed to parse device address")

// ParseAddress parses an address in 11:22:33:AA:BB:CC format. Hex digits may be
// upper or lower case.
func ParseAddress(s string) (addr Address, err error) {
	if len(s) != 17 {
		return addr, errInvalidAddress
	}
	for i := 0; i < 6; i++ {
		p := i * 3
		if i < 5 && s[p+2] != ':' {
			return Address{}, errInvalidAddress
		}
		hi, ok1 := fromHex(s[p])
		lo, ok2 := fromHex(s[p+1])
		if !ok1 || !ok2 {
			return Address{}, errInvalidAddress
		}
		addr[5-i] = hi<<4 | lo
	}
	return addr, nil
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 0xA, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 0xA, true
	}
	return 0, false
}

const hexDigits = "0123456789ABCDEF"

// String returns a human-readable version of this address, such as
// 11:22:33:AA:BB:CC.
func (a Address) String() string {
	var b [17]byte
	for i := 0; i < 6; i++ {
		c := a[5-i]
		b[i*3] = hexDigits[c>>4]
		b[i*3+1] = hexDigits[c&0x0f]
		if i < 5 {
			b[i*3+2] = ':'
		}
	}
	return string(b[:])
}

// IsResolvable reports whether a random address is a resolvable private
// address (the two most significant bits are 0b01).
func (a Address) IsResolvable() bool {
	return a[5]>>6 == 0x1
}
