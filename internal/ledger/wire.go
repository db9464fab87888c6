package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

// Wire shapes of the suix_* JSON-RPC responses. Only the fields coinforge
// reads are declared.

type coinPageWire struct {
	Data        []coinWire `json:"data"`
	NextCursor  *string    `json:"nextCursor"`
	HasNextPage bool       `json:"hasNextPage"`
}

type coinWire struct {
	CoinType     string `json:"coinType"`
	CoinObjectID string `json:"coinObjectId"`
	Balance      string `json:"balance"`
}

type balanceWire struct {
	CoinType        string `json:"coinType"`
	CoinObjectCount int    `json:"coinObjectCount"`
	TotalBalance    string `json:"totalBalance"`
}

type metadataWire struct {
	Decimals *int    `json:"decimals"`
	Name     *string `json:"name"`
	Symbol   *string `json:"symbol"`
	IconURL  *string `json:"iconUrl"`
}

type objectPageWire struct {
	Data        []objectResponseWire `json:"data"`
	NextCursor  *string              `json:"nextCursor"`
	HasNextPage bool                 `json:"hasNextPage"`
}

type objectResponseWire struct {
	Data *struct {
		ObjectID string `json:"objectId"`
		Version  string `json:"version"`
		Digest   string `json:"digest"`
		Type     string `json:"type"`
	} `json:"data"`
	Error json.RawMessage `json:"error"`
}

type gasCostWire struct {
	ComputationCost *json.Number `json:"computationCost"`
	StorageCost     *json.Number `json:"storageCost"`
	StorageRebate   *json.Number `json:"storageRebate"`
}

// UnmarshalJSON accepts costs encoded either as JSON numbers or as decimal
// strings. Missing fields stay nil.
func (g *GasCostSummary) UnmarshalJSON(data []byte) error {
	var w gasCostWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var err error
	if g.ComputationCost, err = optionalU64("computationCost", w.ComputationCost); err != nil {
		return err
	}
	if g.StorageCost, err = optionalU64("storageCost", w.StorageCost); err != nil {
		return err
	}
	if g.StorageRebate, err = optionalU64("storageRebate", w.StorageRebate); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes costs as decimal strings, omitting missing fields.
func (g GasCostSummary) MarshalJSON() ([]byte, error) {
	out := map[string]string{}
	if g.ComputationCost != nil {
		out["computationCost"] = strconv.FormatUint(*g.ComputationCost, 10)
	}
	if g.StorageCost != nil {
		out["storageCost"] = strconv.FormatUint(*g.StorageCost, 10)
	}
	if g.StorageRebate != nil {
		out["storageRebate"] = strconv.FormatUint(*g.StorageRebate, 10)
	}
	return json.Marshal(out)
}

func optionalU64(field string, n *json.Number) (*uint64, error) {
	if n == nil {
		return nil, nil
	}
	v, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q", ErrMalformed, field, n.String())
	}
	return &v, nil
}

func (w coinWire) toCoin() (types.Coin, error) {
	id, err := types.ParseObjectID(w.CoinObjectID)
	if err != nil {
		return types.Coin{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.CoinType == "" {
		return types.Coin{}, fmt.Errorf("%w: coin %s has no type", ErrMalformed, id.Short())
	}
	bal, err := ParseBaseUnits(w.Balance)
	if err != nil {
		return types.Coin{}, err
	}
	return types.Coin{ObjectID: id, CoinType: types.CoinType(w.CoinType), Balance: bal}, nil
}

func (w balanceWire) toBalance() (Balance, error) {
	if w.CoinType == "" {
		return Balance{}, fmt.Errorf("%w: balance entry has no coin type", ErrMalformed)
	}
	total, err := ParseBaseUnits(w.TotalBalance)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		CoinType:     types.CoinType(w.CoinType),
		TotalBalance: total,
		ObjectCount:  w.CoinObjectCount,
	}, nil
}

func (w metadataWire) toMetadata() (*Metadata, error) {
	m := &Metadata{Symbol: w.Symbol, Name: w.Name, IconURL: w.IconURL}
	if w.Decimals != nil {
		if *w.Decimals < 0 || *w.Decimals > 255 {
			return nil, fmt.Errorf("%w: decimals %d out of range", ErrMalformed, *w.Decimals)
		}
		d := uint8(*w.Decimals)
		m.Decimals = &d
	}
	return m, nil
}
