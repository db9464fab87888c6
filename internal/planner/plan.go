// Package planner turns queued user intents into an ordered list of
// primitive coin operations against an inventory snapshot.
//
// Planning is pure: it reads a snapshot, checks sufficiency and object
// counts, and either emits every operation for a task or none of them.
package planner

import (
	"fmt"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

// RebatePerObject is the estimated storage rebate, in gas-coin base units,
// returned for each destroyed coin object.
const RebatePerObject = 110_000_000

// DefaultMaxDestroy caps how many objects one destroy transaction touches.
const DefaultMaxDestroy = 1024

// Budgets are the gas budgets used per task kind, in gas-coin base units.
type Budgets struct {
	Merge    uint64
	Split    uint64
	Transfer uint64
	Burn     uint64
	Object   uint64
}

// DefaultBudgets returns the stock per-kind gas budgets.
func DefaultBudgets() Budgets {
	return Budgets{
		Merge:    2_000_000_000,
		Split:    2_000_000_000,
		Transfer: 500_000_000,
		Burn:     1_000_000_000,
		Object:   500_000_000,
	}
}

// For returns the budget for a single task kind.
func (b Budgets) For(k Kind) uint64 {
	switch k {
	case KindMerge:
		return b.Merge
	case KindSplit:
		return b.Split
	case KindTransfer:
		return b.Transfer
	case KindDestroyZero:
		return b.Burn
	case KindObjectTransfer:
		return b.Object
	default:
		return 0
	}
}

// Plan is the result of planning one or more tasks into one transaction.
type Plan struct {
	Owner types.Address
	Ops   []Op
	// Kinds lists the task kinds in the plan, in first-seen order.
	Kinds []Kind
	// Spent is the base-unit amount leaving each coin type's objects.
	Spent map[types.CoinType]types.Amount
	// Destroyed are the zero-balance coins the plan destroys.
	Destroyed []types.Coin
}

// GasBudget is the largest budget among the plan's task kinds.
func (p *Plan) GasBudget(b Budgets) uint64 {
	var budget uint64
	for _, k := range p.Kinds {
		if v := b.For(k); v > budget {
			budget = v
		}
	}
	return budget
}

// Rebate is the estimated storage rebate of the plan's destroyed objects.
func (p *Plan) Rebate() types.Amount {
	return EstimateRebate(len(p.Destroyed))
}

// EstimateRebate is count × RebatePerObject.
func EstimateRebate(count int) types.Amount {
	return types.NewAmount(RebatePerObject).MulRaw(int64(count))
}

// EqualShares divides total among n recipients with integer division. The
// first share also receives the remainder, so the shares always sum to total.
func EqualShares(total types.Amount, n int) []types.Amount {
	if n < 1 {
		return nil
	}
	q := total.QuoRaw(int64(n))
	r := total.ModRaw(int64(n))
	out := make([]types.Amount, n)
	out[0] = q.Add(r)
	for i := 1; i < n; i++ {
		out[i] = q
	}
	return out
}

// SplitRemainder is total minus pieces × each. ok is false when the split
// would not fit.
func SplitRemainder(total types.Amount, pieces int, each types.Amount) (rest types.Amount, ok bool) {
	need := each.MulRaw(int64(pieces))
	if need.GT(total) {
		return types.ZeroAmount(), false
	}
	return total.Sub(need), true
}

// MergeSelection is the outcome of PlanMerge.
type MergeSelection struct {
	Target  types.ObjectID
	Sources []types.ObjectID
}

// PlanMerge picks the first object as target and the following sourceCount
// objects (or all of them with mergeAll) as sources. The input order is the
// ledger's and is never changed.
func PlanMerge(coinType types.CoinType, objects []types.Coin, sourceCount int, mergeAll bool) (MergeSelection, error) {
	task := MergeTask{CoinType: coinType, SourceCount: sourceCount, MergeAll: mergeAll}
	if err := task.Validate(); err != nil {
		return MergeSelection{}, err
	}
	n := sourceCount
	if mergeAll {
		n = len(objects) - 1
	}
	if n < 1 || len(objects) < n+1 {
		return MergeSelection{}, fmt.Errorf("%w: %s: have %d, need %d", ErrNotEnoughObjects, coinType, len(objects), max(n, 1)+1)
	}
	sel := MergeSelection{
		Target:  objects[0].ObjectID,
		Sources: make([]types.ObjectID, n),
	}
	for i := range n {
		sel.Sources[i] = objects[i+1].ObjectID
	}
	return sel, nil
}

// PlanSplit plans a single split task against objects of one coin type.
func PlanSplit(owner types.Address, coinType types.CoinType, objects []types.Coin, pieces int, amountEach types.Amount) (*Plan, error) {
	b := newBatch(owner, map[types.CoinType][]types.Coin{coinType: objects})
	if err := b.Add(SplitTask{CoinType: coinType, Pieces: pieces, AmountEach: amountEach}); err != nil {
		return nil, err
	}
	return b.Plan(), nil
}

// PlanTransfer plans a single transfer task against objects of one coin type.
func PlanTransfer(owner types.Address, coinType types.CoinType, objects []types.Coin, recipients []Recipient, equalSplit bool, total types.Amount) (*Plan, error) {
	b := newBatch(owner, map[types.CoinType][]types.Coin{coinType: objects})
	task := TransferTask{CoinType: coinType, Recipients: recipients, EqualSplit: equalSplit, Total: total}
	if err := b.Add(task); err != nil {
		return nil, err
	}
	return b.Plan(), nil
}

// DestroySelection is the outcome of PlanDestroyZeroBalance.
type DestroySelection struct {
	Objects []types.Coin
	Count   int
	Rebate  types.Amount
}

// PlanDestroyZeroBalance selects at most maxCount objects for destruction
// and estimates the rebate.
func PlanDestroyZeroBalance(objects []types.Coin, maxCount int) (DestroySelection, error) {
	task := DestroyZeroTask{Objects: objects, MaxCount: maxCount}
	if err := task.Validate(); err != nil {
		return DestroySelection{}, err
	}
	n := min(len(objects), maxCount)
	sel := DestroySelection{
		Objects: append([]types.Coin(nil), objects[:n]...),
		Count:   n,
		Rebate:  EstimateRebate(n),
	}
	return sel, nil
}
