package filter

import (
	"crypto/aes"

	"tinygo.org/x/baseband"
)

// IRK is an identity resolving key, most significant byte first.
type IRK [16]byte

// ah is the random address hash function: the low 24 bits of AES-128 of
// prand under irk.
func ah(irk IRK, prand [3]byte) [3]byte {
	block, err := aes.NewCipher(irk[:])
	if err != nil {
		// A 16 byte key is always valid.
		panic(err)
	}
	var in, out [16]byte
	copy(in[13:], prand[:])
	block.Encrypt(out[:], in[:])
	return [3]byte{out[13], out[14], out[15]}
}

// Resolve reports whether addr is a resolvable private address generated
// from irk.
func Resolve(irk IRK, addr baseband.Address) bool {
	if !addr.IsResolvable() {
		return false
	}
	// Addresses are stored least significant byte first.
	prand := [3]byte{addr[5], addr[4], addr[3]}
	hash := ah(irk, prand)
	return hash[0] == addr[2] && hash[1] == addr[1] && hash[2] == addr[0]
}

// NewResolvableAddress returns the resolvable private address for irk and
// prand. The two top bits of prand are overwritten.
func NewResolvableAddress(irk IRK, prand [3]byte) baseband.Address {
	prand[0] = prand[0]&0x3f | 0x40
	hash := ah(irk, prand)
	return baseband.Address{hash[2], hash[1], hash[0], prand[2], prand[1], prand[0]}
}
