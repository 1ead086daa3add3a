// Package filter implements the PDU filter a controller consults before
// reporting received advertising channel PDUs to the host. It supports the
// accept list policy, directed address checks, duplicate suppression and
// resolution of resolvable private addresses against a list of identity
// resolving keys.
package filter

import (
	"sync"

	grouplru "github.com/golang/groupcache/lru"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"tinygo.org/x/baseband"
)

const (
	DefaultDuplicateCacheSize = 64
	DefaultResolveCacheSize   = 32
)

type peerKey struct {
	addr   baseband.Address
	random bool
}

type dupKey struct {
	peer peerKey
	typ  baseband.AdvPDUType
}

type identity struct {
	peer peerKey
	irk  IRK
}

// Filter is a baseband.Filter. The lists may be changed from any goroutine
// while the controller uses the filter.
type Filter struct {
	mu         sync.Mutex
	acceptList map[peerKey]struct{}
	identities []identity

	// duplicates is only touched from Check, under mu.
	duplicates *grouplru.Cache

	// resolved maps resolvable private addresses to identities.
	resolved *lru.Cache

	log logrus.FieldLogger
}

var _ baseband.Filter = (*Filter)(nil)

// New returns a filter with an empty accept list and no identities.
func New(duplicateCacheSize, resolveCacheSize int) (*Filter, error) {
	if duplicateCacheSize <= 0 {
		duplicateCacheSize = DefaultDuplicateCacheSize
	}
	if resolveCacheSize <= 0 {
		resolveCacheSize = DefaultResolveCacheSize
	}
	resolved, err := lru.New(resolveCacheSize)
	if err != nil {
		return nil, err
	}
	return &Filter{
		acceptList: make(map[peerKey]struct{}),
		duplicates: grouplru.New(duplicateCacheSize),
		resolved:   resolved,
		log:        logrus.StandardLogger(),
	}, nil
}

// SetLogger replaces the logger, which defaults to the logrus standard logger.
func (f *Filter) SetLogger(l logrus.FieldLogger) {
	f.mu.Lock()
	f.log = l
	f.mu.Unlock()
}

// Accept adds an identity address to the accept list.
func (f *Filter) Accept(addr baseband.Address, random bool) {
	f.mu.Lock()
	f.acceptList[peerKey{addr, random}] = struct{}{}
	f.mu.Unlock()
}

// Reject removes an address from the accept list.
func (f *Filter) Reject(addr baseband.Address, random bool) {
	f.mu.Lock()
	delete(f.acceptList, peerKey{addr, random})
	f.mu.Unlock()
}

// ClearAcceptList empties the accept list.
func (f *Filter) ClearAcceptList() {
	f.mu.Lock()
	f.acceptList = make(map[peerKey]struct{})
	f.mu.Unlock()
}

// AddIdentity registers the identity resolving key of a peer. Resolvable
// private addresses generated from irk are reported as the identity address.
func (f *Filter) AddIdentity(addr baseband.Address, random bool, irk IRK) {
	f.mu.Lock()
	f.identities = append(f.identities, identity{peer: peerKey{addr, random}, irk: irk})
	f.mu.Unlock()
	f.resolved.Purge()
}

// ClearIdentities drops all identity resolving keys.
func (f *Filter) ClearIdentities() {
	f.mu.Lock()
	f.identities = nil
	f.mu.Unlock()
	f.resolved.Purge()
}

// ResetDuplicates forgets the advertisers reported so far. Call it when a new
// scan starts.
func (f *Filter) ResetDuplicates() {
	f.mu.Lock()
	f.duplicates.Clear()
	f.mu.Unlock()
}

// Check implements baseband.Filter.
func (f *Filter) Check(pdu []byte, cfg *baseband.FilterConfig, local bool) (bool, baseband.FilterResult) {
	var res baseband.FilterResult
	h, ok := baseband.ParseAdvHeader(pdu)
	if !ok {
		return false, res
	}
	res.Type = h.Type
	if cfg == nil {
		cfg = &baseband.FilterConfig{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Directed PDUs must target this device.
	target, targetRandom, directed := baseband.TargetAddress(pdu)
	if directed {
		if target != cfg.LocalAddr || targetRandom != cfg.LocalRandom {
			return false, res
		}
		res.LocalMatch = true
	} else if local {
		return false, res
	}

	addr, random, ok := baseband.PeerAddress(pdu)
	if !ok {
		// AUX_SYNC_IND and AUX_CHAIN_IND may omit the advertiser address;
		// they belong to an advertiser that was already checked.
		res.PeerMatch = cfg.Policy == baseband.FilterAcceptAll
		return res.PeerMatch, res
	}
	res.Peer, res.PeerRandom = addr, random

	id := peerKey{addr, random}
	if random && addr.IsResolvable() {
		if resolved, ok := f.resolve(addr); ok {
			id = resolved
			res.Identity, res.IdentityRandom, res.Resolved = id.addr, id.random, true
		} else {
			res.ResolvePending = true
		}
	}

	_, listed := f.acceptList[id]
	res.PeerMatch = listed
	if cfg.Policy == baseband.FilterAcceptList && !listed {
		return false, res
	}
	if cfg.Policy == baseband.FilterAcceptAll {
		res.PeerMatch = true
	}

	if cfg.FilterDuplicates && !local {
		key := dupKey{peer: id, typ: h.Type}
		if _, seen := f.duplicates.Get(key); seen {
			return false, res
		}
		f.duplicates.Add(key, struct{}{})
	}
	return true, res
}

func (f *Filter) resolve(addr baseband.Address) (peerKey, bool) {
	if v, ok := f.resolved.Get(addr); ok {
		return v.(peerKey), true
	}
	for _, id := range f.identities {
		if Resolve(id.irk, addr) {
			f.resolved.Add(addr, id.peer)
			f.log.WithFields(logrus.Fields{
				"rpa":      addr,
				"identity": id.peer.addr,
			}).Debug("filter: resolved private address")
			return id.peer, true
		}
	}
	return peerKey{}, false
}
