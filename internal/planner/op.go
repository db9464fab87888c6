package planner

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

// ArgKind says how an Arg refers to a coin.
type ArgKind uint8

// Arg kinds.
const (
	ArgObject ArgKind = iota // an owned object by ID
	ArgGas                   // the transaction's gas coin
	ArgResult                // an output of an earlier op in the same plan
)

// Arg is a coin reference inside a plan.
type Arg struct {
	Kind   ArgKind
	Object types.ObjectID // ArgObject
	Op     int            // ArgResult: index of the producing op
	Index  int            // ArgResult: output index within that op
}

// ObjectArg refers to an owned object.
func ObjectArg(id types.ObjectID) Arg { return Arg{Kind: ArgObject, Object: id} }

// GasArg refers to the gas coin.
func GasArg() Arg { return Arg{Kind: ArgGas} }

// ResultArg refers to output index of op.
func ResultArg(op, index int) Arg { return Arg{Kind: ArgResult, Op: op, Index: index} }

func (a Arg) String() string {
	switch a.Kind {
	case ArgGas:
		return "gas"
	case ArgResult:
		return fmt.Sprintf("result[%d][%d]", a.Op, a.Index)
	default:
		return a.Object.Short()
	}
}

// Op is one primitive operation handed to the transaction builder.
type Op interface {
	isOp()
	String() string
}

// MergeOp merges Sources into Target.
type MergeOp struct {
	CoinType types.CoinType
	Target   Arg
	Sources  []Arg
}

// SplitOp splits one new coin per amount off Source. Output i is the coin
// of Amounts[i].
type SplitOp struct {
	CoinType types.CoinType
	Source   Arg
	Amounts  []types.Amount
}

// TransferOp sends Objects to Recipient.
type TransferOp struct {
	Objects   []Arg
	Recipient types.Address
}

// DestroyZeroOp destroys a zero-balance coin.
type DestroyZeroOp struct {
	CoinType types.CoinType
	Coin     Arg
}

func (MergeOp) isOp()       {}
func (SplitOp) isOp()       {}
func (TransferOp) isOp()    {}
func (DestroyZeroOp) isOp() {}

func (o MergeOp) String() string {
	return fmt.Sprintf("merge %d %s into %s", len(o.Sources), o.CoinType.Name(), o.Target)
}

func (o SplitOp) String() string {
	amts := make([]string, len(o.Amounts))
	for i, a := range o.Amounts {
		amts[i] = a.String()
	}
	return fmt.Sprintf("split %s from %s: [%s]", o.CoinType.Name(), o.Source, strings.Join(amts, ", "))
}

func (o TransferOp) String() string {
	objs := make([]string, len(o.Objects))
	for i, a := range o.Objects {
		objs[i] = a.String()
	}
	return fmt.Sprintf("transfer [%s] to %s", strings.Join(objs, ", "), o.Recipient.Short())
}

func (o DestroyZeroOp) String() string {
	return fmt.Sprintf("destroy zero %s %s", o.CoinType.Name(), o.Coin)
}
