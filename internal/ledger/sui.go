package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	klog "github.com/Klingon-tech/coinforge/internal/log"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

// Caller is the JSON-RPC transport SuiClient talks through.
type Caller interface {
	Call(ctx context.Context, method string, params, result any) error
}

// SuiClient implements Reader over the suix_* JSON-RPC methods of a full node.
type SuiClient struct {
	rpc   Caller
	limit int
}

var _ Reader = (*SuiClient)(nil)

// NewSuiClient wraps an RPC transport. A non-positive limit uses DefaultPageLimit.
func NewSuiClient(rpc Caller, limit int) *SuiClient {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return &SuiClient{rpc: rpc, limit: limit}
}

func (c *SuiClient) call(ctx context.Context, method string, params []any, result any) error {
	if err := c.rpc.Call(ctx, method, params, result); err != nil {
		klog.Ledger.Debug().Str("method", method).Err(err).Msg("RPC call failed")
		return fmt.Errorf("%w: %s: %w", ErrExternalCall, method, err)
	}
	return nil
}

// cursorParam maps the empty cursor to JSON null.
func cursorParam(cursor string) any {
	if cursor == "" {
		return nil
	}
	return cursor
}

func derefCursor(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ListOwnedObjects lists one page of objects owned by owner.
func (c *SuiClient) ListOwnedObjects(ctx context.Context, owner types.Address, filter *ObjectFilter, cursor string) (Page[OwnedObject], error) {
	query := map[string]any{
		"options": map[string]bool{"showType": true},
	}
	if filter != nil && filter.StructType != "" {
		query["filter"] = map[string]string{"StructType": filter.StructType}
	}

	var w objectPageWire
	params := []any{owner.String(), query, cursorParam(cursor), c.limit}
	if err := c.call(ctx, "suix_getOwnedObjects", params, &w); err != nil {
		return Page[OwnedObject]{}, err
	}

	page := Page[OwnedObject]{
		Items:      make([]OwnedObject, 0, len(w.Data)),
		NextCursor: derefCursor(w.NextCursor),
		HasMore:    w.HasNextPage,
	}
	for _, r := range w.Data {
		if r.Data == nil {
			// Deleted or inaccessible objects come back with only an error.
			continue
		}
		id, err := types.ParseObjectID(r.Data.ObjectID)
		if err != nil {
			return Page[OwnedObject]{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		var version uint64
		if r.Data.Version != "" {
			version, err = strconv.ParseUint(r.Data.Version, 10, 64)
			if err != nil {
				return Page[OwnedObject]{}, fmt.Errorf("%w: version %q", ErrMalformed, r.Data.Version)
			}
		}
		page.Items = append(page.Items, OwnedObject{
			ObjectID: id,
			Type:     r.Data.Type,
			Version:  version,
			Digest:   r.Data.Digest,
		})
	}
	return page, nil
}

// ListCoinsByType lists one page of coin objects of coinType owned by owner.
func (c *SuiClient) ListCoinsByType(ctx context.Context, owner types.Address, coinType types.CoinType, cursor string) (Page[types.Coin], error) {
	var w coinPageWire
	params := []any{owner.String(), string(coinType), cursorParam(cursor), c.limit}
	if err := c.call(ctx, "suix_getCoins", params, &w); err != nil {
		return Page[types.Coin]{}, err
	}

	page := Page[types.Coin]{
		Items:      make([]types.Coin, 0, len(w.Data)),
		NextCursor: derefCursor(w.NextCursor),
		HasMore:    w.HasNextPage,
	}
	for _, cw := range w.Data {
		coin, err := cw.toCoin()
		if err != nil {
			return Page[types.Coin]{}, err
		}
		page.Items = append(page.Items, coin)
	}
	klog.Ledger.Debug().
		Str("coin_type", string(coinType)).
		Int("items", len(page.Items)).
		Bool("has_more", page.HasMore).
		Msg("Fetched coin page")
	return page, nil
}

// GetAllBalances returns the per-coin-type totals held by owner.
func (c *SuiClient) GetAllBalances(ctx context.Context, owner types.Address) ([]Balance, error) {
	var w []balanceWire
	if err := c.call(ctx, "suix_getAllBalances", []any{owner.String()}, &w); err != nil {
		return nil, err
	}
	out := make([]Balance, 0, len(w))
	for _, bw := range w {
		b, err := bw.toBalance()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// GetCoinMetadata returns display metadata, or nil when the ledger has none.
func (c *SuiClient) GetCoinMetadata(ctx context.Context, coinType types.CoinType) (*Metadata, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "suix_getCoinMetadata", []any{string(coinType)}, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var w metadataWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrMalformed, err)
	}
	return w.toMetadata()
}

// GetReferenceGasPrice returns the current reference gas price in base units
// of the gas coin per unit of gas.
func (c *SuiClient) GetReferenceGasPrice(ctx context.Context) (uint64, error) {
	var n json.Number
	if err := c.call(ctx, "suix_getReferenceGasPrice", []any{}, &n); err != nil {
		return 0, err
	}
	price, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: gas price %q", ErrMalformed, n.String())
	}
	return price, nil
}
