// Package ledger is the read boundary to the external ledger query service.
//
// Every response is validated here and converted into typed records with
// explicit optional fields, so planning code never sees raw wire shapes.
package ledger

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

// Ledger errors.
var (
	// ErrExternalCall wraps any transport or RPC failure. The upstream
	// message is kept verbatim in the wrapped chain.
	ErrExternalCall = errors.New("external call failed")
	// ErrMalformed reports a response that failed boundary validation.
	ErrMalformed = errors.New("malformed ledger response")
)

// DefaultPageLimit is the page size requested from the ledger.
const DefaultPageLimit = 50

// Page is one page of a cursor-paginated listing.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

// Balance is the per-coin-type summary returned by GetAllBalances.
type Balance struct {
	CoinType     types.CoinType
	TotalBalance types.Amount
	ObjectCount  int
}

// Metadata is optional display metadata for a coin type. Nil fields were
// absent from the ledger's answer.
type Metadata struct {
	Symbol   *string
	Name     *string
	Decimals *uint8
	IconURL  *string
}

// OwnedObject is any object owned by an address.
type OwnedObject struct {
	ObjectID types.ObjectID
	Type     string
	Version  uint64
	Digest   string
}

// ObjectFilter narrows ListOwnedObjects by Move struct type.
type ObjectFilter struct {
	StructType string
}

// GasCostSummary is the cost breakdown reported by a simulation or by
// executed effects. Nil fields were missing from the report.
type GasCostSummary struct {
	ComputationCost *uint64
	StorageCost     *uint64
	StorageRebate   *uint64
}

// DryRun is the result of simulating a transaction.
type DryRun struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	GasUsed GasCostSummary `json:"gasUsed"`
}

// Effects is the finalized outcome of a submitted transaction.
type Effects struct {
	Digest  string           `json:"digest"`
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	GasUsed GasCostSummary   `json:"gasUsed"`
	Created []types.ObjectID `json:"created,omitempty"`
	Mutated []types.ObjectID `json:"mutated,omitempty"`
	Deleted []types.ObjectID `json:"deleted,omitempty"`
}

// Reader is the read API the inventory and estimators depend on.
type Reader interface {
	ListOwnedObjects(ctx context.Context, owner types.Address, filter *ObjectFilter, cursor string) (Page[OwnedObject], error)
	ListCoinsByType(ctx context.Context, owner types.Address, coinType types.CoinType, cursor string) (Page[types.Coin], error)
	GetAllBalances(ctx context.Context, owner types.Address) ([]Balance, error)
	// GetCoinMetadata returns nil, nil when the ledger has no metadata for coinType.
	GetCoinMetadata(ctx context.Context, coinType types.CoinType) (*Metadata, error)
	GetReferenceGasPrice(ctx context.Context) (uint64, error)
}

// ParseBaseUnits parses a non-negative base-unit integer as sent by the ledger.
func ParseBaseUnits(s string) (types.Amount, error) {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return types.Amount{}, fmt.Errorf("%w: balance %q is not an integer", ErrMalformed, s)
	}
	if v.IsNegative() {
		return types.Amount{}, fmt.Errorf("%w: negative balance %q", ErrMalformed, s)
	}
	return v, nil
}
