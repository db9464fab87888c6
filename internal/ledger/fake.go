package ledger

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

// Fake is an in-memory Reader with deterministic pagination. It keeps coins
// in insertion order and serves them PageSize at a time, which makes page
// boundaries easy to exercise in tests.
type Fake struct {
	mu       sync.Mutex
	PageSize int

	coins    map[types.Address][]types.Coin
	objects  map[types.Address][]OwnedObject
	meta     map[types.CoinType]*Metadata
	gasPrice uint64

	// Errs injects a failure for the named method ("ListCoinsByType", ...).
	Errs  map[string]error
	calls map[string]int
}

var _ Reader = (*Fake)(nil)

// NewFake creates an empty fake serving pageSize items per page.
func NewFake(pageSize int) *Fake {
	if pageSize <= 0 {
		pageSize = DefaultPageLimit
	}
	return &Fake{
		PageSize: pageSize,
		coins:    make(map[types.Address][]types.Coin),
		objects:  make(map[types.Address][]OwnedObject),
		meta:     make(map[types.CoinType]*Metadata),
		Errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

// AddCoins appends coins owned by owner. Every coin is also listed as an
// owned object of type 0x2::coin::Coin<T>.
func (f *Fake) AddCoins(owner types.Address, coins ...types.Coin) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range coins {
		f.coins[owner] = append(f.coins[owner], c)
		f.objects[owner] = append(f.objects[owner], OwnedObject{
			ObjectID: c.ObjectID,
			Type:     "0x2::coin::Coin<" + string(c.CoinType) + ">",
			Version:  1,
		})
	}
}

// AddObjects appends non-coin objects owned by owner.
func (f *Fake) AddObjects(owner types.Address, objs ...OwnedObject) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[owner] = append(f.objects[owner], objs...)
}

// RemoveCoins drops the given object IDs, as a finalized transaction would.
func (f *Fake) RemoveCoins(owner types.Address, ids ...types.ObjectID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := make(map[types.ObjectID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := f.coins[owner][:0]
	for _, c := range f.coins[owner] {
		if !drop[c.ObjectID] {
			kept = append(kept, c)
		}
	}
	f.coins[owner] = kept
	keptObj := f.objects[owner][:0]
	for _, o := range f.objects[owner] {
		if !drop[o.ObjectID] {
			keptObj = append(keptObj, o)
		}
	}
	f.objects[owner] = keptObj
}

// SetMetadata registers metadata for a coin type. Nil removes it.
func (f *Fake) SetMetadata(coinType types.CoinType, m *Metadata) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m == nil {
		delete(f.meta, coinType)
		return
	}
	f.meta[coinType] = m
}

// SetGasPrice sets the reference gas price.
func (f *Fake) SetGasPrice(p uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gasPrice = p
}

// Calls returns how many times method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) enter(method string) error {
	f.calls[method]++
	if err := f.Errs[method]; err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExternalCall, method, err)
	}
	return nil
}

func paginate[T any](all []T, cursor string, size int) (Page[T], error) {
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 || n > len(all) {
			return Page[T]{}, fmt.Errorf("%w: bad cursor %q", ErrExternalCall, cursor)
		}
		start = n
	}
	end := min(start+size, len(all))
	page := Page[T]{Items: append([]T(nil), all[start:end]...)}
	if end < len(all) {
		page.HasMore = true
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

// ListOwnedObjects implements Reader.
func (f *Fake) ListOwnedObjects(_ context.Context, owner types.Address, filter *ObjectFilter, cursor string) (Page[OwnedObject], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListOwnedObjects"); err != nil {
		return Page[OwnedObject]{}, err
	}
	objs := f.objects[owner]
	if filter != nil && filter.StructType != "" {
		var matched []OwnedObject
		for _, o := range objs {
			if o.Type == filter.StructType {
				matched = append(matched, o)
			}
		}
		objs = matched
	}
	return paginate(objs, cursor, f.PageSize)
}

// ListCoinsByType implements Reader.
func (f *Fake) ListCoinsByType(_ context.Context, owner types.Address, coinType types.CoinType, cursor string) (Page[types.Coin], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListCoinsByType"); err != nil {
		return Page[types.Coin]{}, err
	}
	var matched []types.Coin
	for _, c := range f.coins[owner] {
		if c.CoinType == coinType {
			matched = append(matched, c)
		}
	}
	return paginate(matched, cursor, f.PageSize)
}

// GetAllBalances implements Reader. Types are reported in first-seen order.
func (f *Fake) GetAllBalances(_ context.Context, owner types.Address) ([]Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetAllBalances"); err != nil {
		return nil, err
	}
	index := make(map[types.CoinType]int)
	var out []Balance
	for _, c := range f.coins[owner] {
		i, ok := index[c.CoinType]
		if !ok {
			i = len(out)
			index[c.CoinType] = i
			out = append(out, Balance{CoinType: c.CoinType, TotalBalance: types.ZeroAmount()})
		}
		out[i].TotalBalance = out[i].TotalBalance.Add(c.Balance)
		out[i].ObjectCount++
	}
	return out, nil
}

// GetCoinMetadata implements Reader.
func (f *Fake) GetCoinMetadata(_ context.Context, coinType types.CoinType) (*Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetCoinMetadata"); err != nil {
		return nil, err
	}
	m, ok := f.meta[coinType]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

// GetReferenceGasPrice implements Reader.
func (f *Fake) GetReferenceGasPrice(_ context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetReferenceGasPrice"); err != nil {
		return 0, err
	}
	return f.gasPrice, nil
}

// Ptr returns a pointer to v. Handy for building Metadata literals.
func Ptr[T any](v T) *T {
	return &v
}
