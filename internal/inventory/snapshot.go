package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

// Holding is one coin type's metadata and coin objects, in ledger order.
type Holding struct {
	Meta  types.CoinMeta
	Coins []types.Coin
}

// Snapshot is an immutable view of an owner's coins at one point in time.
// Plans are always built against a snapshot, never against live data.
type Snapshot struct {
	Owner   types.Address
	TakenAt time.Time

	types    []types.CoinType
	holdings map[types.CoinType]*Holding
}

func newSnapshot(owner types.Address, holdings []*Holding) *Snapshot {
	s := &Snapshot{
		Owner:    owner,
		TakenAt:  time.Now(),
		holdings: make(map[types.CoinType]*Holding, len(holdings)),
	}
	for _, h := range holdings {
		if h == nil {
			continue
		}
		if _, dup := s.holdings[h.Meta.CoinType]; !dup {
			s.types = append(s.types, h.Meta.CoinType)
		}
		s.holdings[h.Meta.CoinType] = h
	}
	return s
}

// NewSnapshot builds a snapshot from already-fetched holdings. Mostly useful
// for tests and offline planning.
func NewSnapshot(owner types.Address, holdings ...Holding) *Snapshot {
	ptrs := make([]*Holding, len(holdings))
	for i := range holdings {
		h := holdings[i]
		h.Meta.TotalBalance = types.SumBalances(h.Coins)
		h.Meta.ObjectCount = len(h.Coins)
		ptrs[i] = &h
	}
	return newSnapshot(owner, ptrs)
}

// Types returns the coin types in the order the ledger reported them.
func (s *Snapshot) Types() []types.CoinType {
	return append([]types.CoinType(nil), s.types...)
}

// Holding returns the holding for coinType.
func (s *Snapshot) Holding(coinType types.CoinType) (*Holding, bool) {
	h, ok := s.holdings[coinType]
	return h, ok
}

// Coins returns a copy of the coin objects of coinType, in ledger order.
func (s *Snapshot) Coins(coinType types.CoinType) []types.Coin {
	h, ok := s.holdings[coinType]
	if !ok {
		return nil
	}
	return append([]types.Coin(nil), h.Coins...)
}

// Meta returns the aggregate for coinType.
func (s *Snapshot) Meta(coinType types.CoinType) (types.CoinMeta, bool) {
	h, ok := s.holdings[coinType]
	if !ok {
		return types.CoinMeta{}, false
	}
	return h.Meta, true
}

// Metas returns every aggregate in ledger order.
func (s *Snapshot) Metas() []types.CoinMeta {
	out := make([]types.CoinMeta, 0, len(s.types))
	for _, ct := range s.types {
		out = append(out, s.holdings[ct].Meta)
	}
	return out
}

// ObjectCount is the number of coin objects across all types.
func (s *Snapshot) ObjectCount() int {
	n := 0
	for _, h := range s.holdings {
		n += len(h.Coins)
	}
	return n
}

// Filter selects which holdings a listing shows.
type Filter int

// Listing filters.
const (
	FilterAll Filter = iota
	FilterVerified
	FilterUnverified
)

// ParseFilter parses "all", "verified" or "unverified".
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "verified":
		return FilterVerified, nil
	case "unverified":
		return FilterUnverified, nil
	default:
		return FilterAll, fmt.Errorf("unknown filter %q (want all, verified or unverified)", s)
	}
}

func (f Filter) String() string {
	switch f {
	case FilterVerified:
		return "verified"
	case FilterUnverified:
		return "unverified"
	default:
		return "all"
	}
}

// Filter returns the aggregates matching f whose symbol, name or coin type
// contains search (case-insensitive). An empty search matches everything.
func (s *Snapshot) Filter(f Filter, search string) []types.CoinMeta {
	q := strings.ToLower(strings.TrimSpace(search))
	var out []types.CoinMeta
	for _, m := range s.Metas() {
		switch {
		case f == FilterVerified && !m.Verified:
			continue
		case f == FilterUnverified && m.Verified:
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(m.Symbol), q) &&
			!strings.Contains(strings.ToLower(m.Name), q) &&
			!strings.Contains(strings.ToLower(string(m.CoinType)), q) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Fingerprint is a BLAKE3 digest over owner, coin types, object IDs and
// balances in snapshot order. Two snapshots with equal fingerprints plan
// identically.
func (s *Snapshot) Fingerprint() types.Hash {
	h := blake3.New()
	h.Write(s.Owner[:])
	for _, ct := range s.types {
		hold := s.holdings[ct]
		h.Write([]byte(ct))
		h.Write([]byte{0})
		for _, c := range hold.Coins {
			h.Write(c.ObjectID[:])
			h.Write([]byte(c.Balance.String()))
			h.Write([]byte{0})
		}
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
