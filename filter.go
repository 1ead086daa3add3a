package baseband

// FilterPolicy selects which peers a filter lets through.
type FilterPolicy uint8

const (
	// FilterAcceptAll lets every well-formed PDU through.
	FilterAcceptAll FilterPolicy = iota

	// FilterAcceptList only lets PDUs from peers on the accept list through.
	FilterAcceptList
)

// FilterConfig is the per-operation configuration handed to the filter. The
// engines never inspect it.
type FilterConfig struct {
	Policy      FilterPolicy
	LocalAddr   Address
	LocalRandom bool

	// FilterDuplicates suppresses advertising PDUs already reported during
	// this scan.
	FilterDuplicates bool
}

// FilterResult is the per-packet verdict metadata produced by a Filter.
type FilterResult struct {
	Type       AdvPDUType
	Peer       Address
	PeerRandom bool

	// PeerMatch is set when the peer (or its resolved identity) is on the
	// accept list.
	PeerMatch bool

	// Identity is the identity address a resolvable private address
	// resolved to, valid when Resolved is set.
	Identity       Address
	IdentityRandom bool
	Resolved       bool

	// ResolvePending is set when the peer uses a resolvable private address
	// that could not be resolved yet; the host may resolve it later.
	ResolvePending bool

	// LocalMatch is set when the PDU was directed at the local address.
	LocalMatch bool
}

// Filter decides whether a received PDU reaches the host. local is set when
// the PDU is expected to be addressed to this device, which is the case for
// requests received by an advertiser: such PDUs must carry the local address
// as their target. Directed PDUs are checked against the local address either
// way.
type Filter interface {
	Check(pdu []byte, cfg *FilterConfig, local bool) (allowed bool, res FilterResult)
}

// AllowAll is a Filter that accepts every PDU with a readable header. It is
// the controller's default.
type AllowAll struct{}

// Check implements Filter.
func (AllowAll) Check(pdu []byte, cfg *FilterConfig, local bool) (bool, FilterResult) {
	var res FilterResult
	h, ok := ParseAdvHeader(pdu)
	if !ok {
		return false, res
	}
	res.Type = h.Type
	res.Peer, res.PeerRandom, _ = PeerAddress(pdu)
	res.PeerMatch = true
	if cfg != nil {
		if target, random, ok := TargetAddress(pdu); ok {
			res.LocalMatch = target == cfg.LocalAddr && random == cfg.LocalRandom
		}
	}
	return true, res
}
