package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	klog "github.com/Klingon-tech/coinforge/internal/log"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

// DefaultZeroSymbol labels a zero-balance group whose type has no path segment.
const DefaultZeroSymbol = "COIN"

// FindZeroBalanceObjects scans the owner's coins for zero-balance objects and
// returns at most maxCount of them. The cap is global across coin types. When
// a type's reported total is zero every object qualifies without inspection;
// otherwise each object's balance is checked. A non-positive maxCount yields
// no objects.
func (inv *Inventory) FindZeroBalanceObjects(ctx context.Context, maxCount int) ([]types.Coin, error) {
	if maxCount <= 0 {
		return nil, nil
	}
	gen := inv.gen.Load()

	balances, err := inv.reader.GetAllBalances(ctx, inv.owner)
	if err != nil {
		return nil, err
	}

	var out []types.Coin
scan:
	for _, b := range balances {
		if len(out) >= maxCount {
			break
		}
		allZero := b.TotalBalance.IsZero()
		cursor := ""
		for {
			page, err := inv.reader.ListCoinsByType(ctx, inv.owner, b.CoinType, cursor)
			if err != nil {
				return nil, err
			}
			for _, c := range page.Items {
				if allZero || c.Balance.IsZero() {
					out = append(out, c)
					if len(out) >= maxCount {
						break scan
					}
				}
			}
			if !page.HasMore {
				break
			}
			if page.NextCursor == "" || page.NextCursor == cursor {
				return nil, fmt.Errorf("zero scan %s: cursor did not advance", b.CoinType)
			}
			cursor = page.NextCursor
		}
	}

	if inv.gen.Load() != gen {
		return nil, ErrStale
	}
	klog.Inventory.Debug().Int("found", len(out)).Int("cap", maxCount).Msg("Zero-balance scan complete")
	return out, nil
}

// ZeroGroup counts zero-balance objects of one coin type.
type ZeroGroup struct {
	CoinType types.CoinType
	Symbol   string
	Count    int
}

// GroupZeroByType groups coins by type, ordered by descending count. Ties keep
// first-seen order.
func GroupZeroByType(coins []types.Coin) []ZeroGroup {
	index := make(map[types.CoinType]int)
	var groups []ZeroGroup
	for _, c := range coins {
		if i, ok := index[c.CoinType]; ok {
			groups[i].Count++
			continue
		}
		index[c.CoinType] = len(groups)
		groups = append(groups, ZeroGroup{CoinType: c.CoinType, Symbol: shortSymbol(c.CoinType), Count: 1})
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Count > groups[j].Count })
	return groups
}

func shortSymbol(ct types.CoinType) string {
	s := string(ct)
	if i := strings.LastIndex(s, "::"); i >= 0 {
		s = s[i+2:]
	}
	if s == "" {
		return DefaultZeroSymbol
	}
	return s
}
