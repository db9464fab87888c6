// Package assembler turns a plan into calls against a transaction builder
// and hands the result to an external signer.
package assembler

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

// HandleKind says what a Handle points at.
type HandleKind uint8

// Handle kinds, mirroring programmable-transaction arguments.
const (
	HandleGas HandleKind = iota
	HandleInput
	HandleResult
	HandleNested
)

// Handle is an argument reference produced by a Builder.
type Handle struct {
	Kind  HandleKind
	Index int // input or command index
	Sub   int // HandleNested: output index within the command
}

// MarshalJSON encodes handles the way programmable transactions spell
// arguments: {"GasCoin":true}, {"Input":n}, {"Result":n}, {"NestedResult":[n,m]}.
func (h Handle) MarshalJSON() ([]byte, error) {
	switch h.Kind {
	case HandleGas:
		return []byte(`{"GasCoin":true}`), nil
	case HandleInput:
		return json.Marshal(map[string]int{"Input": h.Index})
	case HandleResult:
		return json.Marshal(map[string]int{"Result": h.Index})
	case HandleNested:
		return json.Marshal(map[string][2]int{"NestedResult": {h.Index, h.Sub}})
	default:
		return nil, fmt.Errorf("unknown handle kind %d", h.Kind)
	}
}

// UnmarshalJSON decodes the forms written by MarshalJSON.
func (h *Handle) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw["GasCoin"] != nil:
		*h = Handle{Kind: HandleGas}
	case raw["Input"] != nil:
		h.Kind = HandleInput
		return json.Unmarshal(raw["Input"], &h.Index)
	case raw["Result"] != nil:
		h.Kind = HandleResult
		return json.Unmarshal(raw["Result"], &h.Index)
	case raw["NestedResult"] != nil:
		var pair [2]int
		if err := json.Unmarshal(raw["NestedResult"], &pair); err != nil {
			return err
		}
		*h = Handle{Kind: HandleNested, Index: pair[0], Sub: pair[1]}
	default:
		return fmt.Errorf("unknown argument %s", data)
	}
	return nil
}

// Builder is the external transaction-builder contract.
type Builder interface {
	SetSender(types.Address)
	SetGasBudget(uint64)
	Gas() Handle
	Object(types.ObjectID) Handle
	MergeCoins(target Handle, sources []Handle)
	SplitCoins(source Handle, amounts []uint64) []Handle
	TransferObjects(objs []Handle, recipient types.Address)
	DestroyZero(coinType types.CoinType, coin Handle)
}
