package filter

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinygo.org/x/baseband"
)

func mustAddr(t *testing.T, s string) baseband.Address {
	t.Helper()
	a, err := baseband.ParseAddress(s)
	require.NoError(t, err)
	return a
}

func advInd(adv baseband.Address, random bool) []byte {
	pdu := make([]byte, baseband.HeaderLen+baseband.AddressLen+3)
	baseband.AdvHeader{Type: baseband.AdvInd, TxAdd: random, Length: baseband.AddressLen + 3}.Encode(pdu)
	copy(pdu[baseband.HeaderLen:], adv[:])
	copy(pdu[baseband.HeaderLen+baseband.AddressLen:], "\x02\x01\x06")
	return pdu
}

func directed(typ baseband.AdvPDUType, from, to baseband.Address) []byte {
	pdu := make([]byte, baseband.HeaderLen+2*baseband.AddressLen)
	baseband.AdvHeader{Type: typ, Length: 2 * baseband.AddressLen}.Encode(pdu)
	copy(pdu[baseband.HeaderLen:], from[:])
	copy(pdu[baseband.HeaderLen+baseband.AddressLen:], to[:])
	return pdu
}

func newFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := New(0, 0)
	require.NoError(t, err)
	return f
}

func TestResolveSampleData(t *testing.T) {
	// Sample data for the random address hash function ah.
	var irk IRK
	b, _ := hex.DecodeString("ec0234a357c8ad05341010a60a397d9b")
	copy(irk[:], b)

	hash := ah(irk, [3]byte{0x70, 0x81, 0x94})
	assert.Equal(t, [3]byte{0x0d, 0xfb, 0xaa}, hash)

	rpa := NewResolvableAddress(irk, [3]byte{0x70, 0x81, 0x94})
	assert.Equal(t, "70:81:94:0D:FB:AA", rpa.String())
	assert.True(t, Resolve(irk, rpa))

	irk[0] ^= 1
	assert.False(t, Resolve(irk, rpa))
}

func TestCheck(t *testing.T) {
	local := mustAddr(t, "C0:00:00:00:00:01")
	peer := mustAddr(t, "11:22:33:44:55:66")
	other := mustAddr(t, "11:22:33:44:55:77")

	tests := []struct {
		name    string
		pdu     []byte
		policy  baseband.FilterPolicy
		local   bool
		allowed bool
	}{
		{"undirected", advInd(peer, false), baseband.FilterAcceptAll, false, true},
		{"truncated", []byte{0x00}, baseband.FilterAcceptAll, false, false},
		{"accept list hit", advInd(peer, false), baseband.FilterAcceptList, false, true},
		{"accept list miss", advInd(other, false), baseband.FilterAcceptList, false, false},
		{"random differs from public", advInd(peer, true), baseband.FilterAcceptList, false, false},
		{"directed at us", directed(baseband.AdvDirectInd, peer, local), baseband.FilterAcceptAll, false, true},
		{"directed elsewhere", directed(baseband.AdvDirectInd, peer, other), baseband.FilterAcceptAll, false, false},
		{"scan request to us", directed(baseband.ScanReq, peer, local), baseband.FilterAcceptAll, true, true},
		{"scan request elsewhere", directed(baseband.ScanReq, peer, other), baseband.FilterAcceptAll, true, false},
		{"connect request from unlisted", directed(baseband.ConnectInd, other, local), baseband.FilterAcceptList, true, false},
		{"undirected while local", advInd(peer, false), baseband.FilterAcceptAll, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFilter(t)
			f.Accept(peer, false)
			cfg := &baseband.FilterConfig{Policy: tc.policy, LocalAddr: local}
			allowed, _ := f.Check(tc.pdu, cfg, tc.local)
			assert.Equal(t, tc.allowed, allowed)
		})
	}
}

func TestCheckResult(t *testing.T) {
	local := mustAddr(t, "C0:00:00:00:00:01")
	peer := mustAddr(t, "11:22:33:44:55:66")
	f := newFilter(t)

	allowed, res := f.Check(directed(baseband.ScanReq, peer, local), &baseband.FilterConfig{LocalAddr: local}, true)
	require.True(t, allowed)
	assert.Equal(t, baseband.ScanReq, res.Type)
	assert.Equal(t, peer, res.Peer)
	assert.False(t, res.PeerRandom)
	assert.True(t, res.PeerMatch)
	assert.True(t, res.LocalMatch)
	assert.False(t, res.Resolved)
}

func TestCheckResolvesPrivateAddress(t *testing.T) {
	identityAddr := mustAddr(t, "C1:22:33:44:55:66")
	var irk IRK
	copy(irk[:], "0123456789abcdef")
	rpa := NewResolvableAddress(irk, [3]byte{0x12, 0x34, 0x56})

	f := newFilter(t)
	cfg := &baseband.FilterConfig{Policy: baseband.FilterAcceptList}

	allowed, res := f.Check(advInd(rpa, true), cfg, false)
	assert.False(t, allowed)
	assert.True(t, res.ResolvePending)

	f.AddIdentity(identityAddr, true, irk)
	f.Accept(identityAddr, true)
	for i := 0; i < 2; i++ {
		// The second pass is served from the cache.
		allowed, res = f.Check(advInd(rpa, true), cfg, false)
		assert.True(t, allowed)
		assert.True(t, res.Resolved)
		assert.False(t, res.ResolvePending)
		assert.Equal(t, identityAddr, res.Identity)
		assert.True(t, res.IdentityRandom)
		assert.Equal(t, rpa, res.Peer)
	}
	assert.Equal(t, 1, f.resolved.Len())

	f.ClearIdentities()
	assert.Equal(t, 0, f.resolved.Len())
}

func TestCheckDuplicates(t *testing.T) {
	peer := mustAddr(t, "11:22:33:44:55:66")
	f := newFilter(t)
	cfg := &baseband.FilterConfig{FilterDuplicates: true}

	allowed, _ := f.Check(advInd(peer, false), cfg, false)
	assert.True(t, allowed)
	allowed, _ = f.Check(advInd(peer, false), cfg, false)
	assert.False(t, allowed)

	// Duplicates are not tracked when disabled.
	allowed, _ = f.Check(advInd(peer, false), &baseband.FilterConfig{}, false)
	assert.True(t, allowed)

	f.ResetDuplicates()
	allowed, _ = f.Check(advInd(peer, false), cfg, false)
	assert.True(t, allowed)
}
