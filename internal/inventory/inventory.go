// Package inventory aggregates a wallet's scattered coin objects into a
// consistent snapshot that planning runs against.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/coinforge/internal/ledger"
	klog "github.com/Klingon-tech/coinforge/internal/log"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

// ErrStale is returned when the inventory was reset while a fetch was in
// flight. The fetched data has been discarded.
var ErrStale = errors.New("inventory reset during fetch")

// DefaultConcurrency bounds how many coin types are fetched at once.
const DefaultConcurrency = 4

// Metadata defaults applied when the ledger omits a field.
const (
	DefaultSymbol   = "UNK"
	DefaultDecimals = 9
)

// Inventory reads one owner's coins from the ledger.
type Inventory struct {
	reader      ledger.Reader
	owner       types.Address
	concurrency int

	gen atomic.Uint64

	mu      sync.Mutex
	current *Snapshot
}

// New creates an inventory for owner backed by reader.
func New(reader ledger.Reader, owner types.Address) *Inventory {
	return &Inventory{
		reader:      reader,
		owner:       owner,
		concurrency: DefaultConcurrency,
	}
}

// SetConcurrency sets how many coin types may be fetched in parallel.
func (inv *Inventory) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	inv.concurrency = n
}

// Owner returns the address this inventory tracks.
func (inv *Inventory) Owner() types.Address {
	return inv.owner
}

// Reset invalidates the current snapshot and any fetch still in flight.
// Results of such fetches are discarded with ErrStale.
func (inv *Inventory) Reset() {
	inv.gen.Add(1)
	inv.mu.Lock()
	inv.current = nil
	inv.mu.Unlock()
}

// Snapshot returns the most recent snapshot, or nil if none was taken since
// the last reset.
func (inv *Inventory) Snapshot() *Snapshot {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.current
}

// ListCoinObjects returns every coin object of coinType, in ledger order.
func (inv *Inventory) ListCoinObjects(ctx context.Context, coinType types.CoinType) ([]types.Coin, error) {
	gen := inv.gen.Load()
	coins, err := DrainCoins(ctx, inv.reader, inv.owner, coinType)
	if err != nil {
		return nil, err
	}
	if inv.gen.Load() != gen {
		return nil, ErrStale
	}
	return coins, nil
}

// DrainCoins follows the ledger cursor until no pages remain and returns the
// concatenation of all pages in the order received. Pages are requested
// strictly one after another.
func DrainCoins(ctx context.Context, r ledger.Reader, owner types.Address, coinType types.CoinType) ([]types.Coin, error) {
	var (
		out    []types.Coin
		cursor string
	)
	for {
		page, err := r.ListCoinsByType(ctx, owner, coinType, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if !page.HasMore {
			return out, nil
		}
		if page.NextCursor == "" || page.NextCursor == cursor {
			return nil, fmt.Errorf("%w: %s: cursor did not advance", ledger.ErrMalformed, coinType)
		}
		cursor = page.NextCursor
	}
}

// OwnedObjects drains ListOwnedObjects for the inventory's owner.
func (inv *Inventory) OwnedObjects(ctx context.Context, filter *ledger.ObjectFilter) ([]ledger.OwnedObject, error) {
	gen := inv.gen.Load()
	var (
		out    []ledger.OwnedObject
		cursor string
	)
	for {
		page, err := inv.reader.ListOwnedObjects(ctx, inv.owner, filter, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if !page.HasMore {
			break
		}
		if page.NextCursor == "" || page.NextCursor == cursor {
			return nil, fmt.Errorf("%w: owned objects: cursor did not advance", ledger.ErrMalformed)
		}
		cursor = page.NextCursor
	}
	if inv.gen.Load() != gen {
		return nil, ErrStale
	}
	return out, nil
}

// AggregateBalances fetches every coin type the owner holds, together with
// all of its coin objects and display metadata, and stores the result as the
// current snapshot. Coin types are fetched concurrently; each type's pages are
// drained sequentially. Nothing is returned until every type has completed.
func (inv *Inventory) AggregateBalances(ctx context.Context) (*Snapshot, error) {
	gen := inv.gen.Load()
	start := time.Now()

	balances, err := inv.reader.GetAllBalances(ctx, inv.owner)
	if err != nil {
		return nil, err
	}

	holdings := make([]*Holding, len(balances))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inv.concurrency)
	for i, b := range balances {
		g.Go(func() error {
			coins, err := DrainCoins(gctx, inv.reader, inv.owner, b.CoinType)
			if err != nil {
				return err
			}
			meta, err := inv.reader.GetCoinMetadata(gctx, b.CoinType)
			if err != nil {
				return err
			}
			holdings[i] = &Holding{
				Meta:  BuildMeta(b.CoinType, meta, coins),
				Coins: coins,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if inv.gen.Load() != gen {
		klog.Inventory.Warn().Str("owner", inv.owner.Short()).Msg("Discarding stale inventory refresh")
		return nil, ErrStale
	}

	snap := newSnapshot(inv.owner, holdings)
	inv.mu.Lock()
	inv.current = snap
	inv.mu.Unlock()

	klog.Inventory.Debug().
		Str("owner", inv.owner.Short()).
		Int("types", len(snap.types)).
		Int("objects", snap.ObjectCount()).
		Dur("elapsed", time.Since(start)).
		Msg("Inventory refreshed")
	return snap, nil
}

// BuildMeta derives the display aggregate for one coin type. Missing metadata
// fields fall back to DefaultSymbol, the type's trailing path segment and
// DefaultDecimals. The total is always recomputed from coins.
func BuildMeta(coinType types.CoinType, m *ledger.Metadata, coins []types.Coin) types.CoinMeta {
	meta := types.CoinMeta{
		CoinType:     coinType,
		Symbol:       DefaultSymbol,
		Name:         coinType.Name(),
		Decimals:     DefaultDecimals,
		TotalBalance: types.SumBalances(coins),
		ObjectCount:  len(coins),
	}
	if m == nil {
		return meta
	}
	if m.Symbol != nil {
		meta.Symbol = *m.Symbol
	}
	if m.Name != nil {
		meta.Name = *m.Name
	}
	if m.Decimals != nil {
		meta.Decimals = *m.Decimals
	}
	if m.IconURL != nil {
		meta.IconURL = *m.IconURL
	}
	meta.Verified = nonEmpty(m.IconURL) || nonEmpty(m.Name) || nonEmpty(m.Symbol)
	return meta
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
