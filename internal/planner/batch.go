package planner

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Klingon-tech/coinforge/internal/inventory"
	klog "github.com/Klingon-tech/coinforge/internal/log"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

// Batch plans several tasks into one transaction against one snapshot.
//
// It keeps a working view of each coin type's objects. Objects consumed by a
// merge leave the view, a coin type is consolidated at most once, and
// sufficiency is checked against what earlier tasks in the batch have
// already spent. A task that fails leaves the batch untouched.
type Batch struct {
	st *batchState
}

type batchState struct {
	owner        types.Address
	view         map[types.CoinType][]types.Coin
	consolidated map[types.CoinType]bool
	consumed     map[types.ObjectID]bool
	spent        map[types.CoinType]types.Amount
	ops          []Op
	kinds        []Kind
	destroyed    []types.Coin
}

// NewBatch starts a batch over snap.
func NewBatch(snap *inventory.Snapshot) *Batch {
	view := make(map[types.CoinType][]types.Coin)
	for _, ct := range snap.Types() {
		view[ct] = snap.Coins(ct)
	}
	return newBatch(snap.Owner, view)
}

func newBatch(owner types.Address, view map[types.CoinType][]types.Coin) *Batch {
	st := &batchState{
		owner:        owner,
		view:         make(map[types.CoinType][]types.Coin, len(view)),
		consolidated: make(map[types.CoinType]bool),
		consumed:     make(map[types.ObjectID]bool),
		spent:        make(map[types.CoinType]types.Amount),
	}
	for ct, coins := range view {
		st.view[ct] = slices.Clone(coins)
	}
	return &Batch{st: st}
}

func (s *batchState) clone() *batchState {
	c := &batchState{
		owner:        s.owner,
		view:         make(map[types.CoinType][]types.Coin, len(s.view)),
		consolidated: maps.Clone(s.consolidated),
		consumed:     maps.Clone(s.consumed),
		spent:        maps.Clone(s.spent),
		ops:          slices.Clone(s.ops),
		kinds:        slices.Clone(s.kinds),
		destroyed:    slices.Clone(s.destroyed),
	}
	for ct, coins := range s.view {
		c.view[ct] = slices.Clone(coins)
	}
	return c
}

// Add plans task into the batch. On error no operation from task is kept.
func (b *Batch) Add(task Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	next := b.st.clone()

	var err error
	switch t := task.(type) {
	case MergeTask:
		err = next.merge(t)
	case SplitTask:
		err = next.split(t)
	case TransferTask:
		err = next.transfer(t)
	case ObjectTransferTask:
		err = next.transferObjects(t)
	case DestroyZeroTask:
		err = next.destroyZero(t)
	default:
		err = fmt.Errorf("unsupported task %T", task)
	}
	if err != nil {
		klog.Planner.Debug().Str("task", task.String()).Err(err).Msg("Task rejected")
		return err
	}

	if !slices.Contains(next.kinds, task.Kind()) {
		next.kinds = append(next.kinds, task.Kind())
	}
	klog.Planner.Debug().
		Str("task", task.String()).
		Int("ops", len(next.ops)-len(b.st.ops)).
		Msg("Task planned")
	b.st = next
	return nil
}

// Available is what remains of coinType for later tasks in the batch.
func (b *Batch) Available(coinType types.CoinType) types.Amount {
	return b.st.available(coinType)
}

// Plan returns the operations planned so far.
func (b *Batch) Plan() *Plan {
	st := b.st
	return &Plan{
		Owner:     st.owner,
		Ops:       slices.Clone(st.ops),
		Kinds:     slices.Clone(st.kinds),
		Spent:     maps.Clone(st.spent),
		Destroyed: slices.Clone(st.destroyed),
	}
}

func (s *batchState) available(ct types.CoinType) types.Amount {
	total := types.SumBalances(s.view[ct])
	if spent, ok := s.spent[ct]; ok {
		total = total.Sub(spent)
	}
	return total
}

func (s *batchState) spend(ct types.CoinType, amt types.Amount) {
	if prev, ok := s.spent[ct]; ok {
		s.spent[ct] = prev.Add(amt)
		return
	}
	s.spent[ct] = amt
}

func (s *batchState) checkSufficient(ct types.CoinType, required types.Amount) error {
	avail := s.available(ct)
	if required.GT(avail) {
		if avail.IsNegative() {
			avail = types.ZeroAmount()
		}
		return &InsufficientError{CoinType: ct, Required: required, Available: avail}
	}
	return nil
}

func (s *batchState) emit(op Op) int {
	s.ops = append(s.ops, op)
	return len(s.ops) - 1
}

// mergeInto merges sources into the view's first object and updates the view.
func (s *batchState) mergeInto(ct types.CoinType, nSources int) {
	objs := s.view[ct]
	target := objs[0]
	sources := make([]Arg, nSources)
	for i := range nSources {
		src := objs[i+1]
		sources[i] = ObjectArg(src.ObjectID)
		target.Balance = target.Balance.Add(src.Balance)
		s.consumed[src.ObjectID] = true
	}
	s.emit(MergeOp{CoinType: ct, Target: ObjectArg(target.ObjectID), Sources: sources})

	rest := append([]types.Coin{target}, objs[nSources+1:]...)
	s.view[ct] = rest
}

// source returns the coin that splits for ct draw from. The gas coin is
// split straight off the gas object. Any other type is consolidated into
// its first object once, if it has several.
func (s *batchState) source(ct types.CoinType) Arg {
	if ct.IsGas() {
		return GasArg()
	}
	objs := s.view[ct]
	if len(objs) > 1 && !s.consolidated[ct] {
		s.mergeInto(ct, len(objs)-1)
	}
	s.consolidated[ct] = true
	return ObjectArg(s.view[ct][0].ObjectID)
}

func (s *batchState) merge(t MergeTask) error {
	objs := s.view[t.CoinType]
	n := t.SourceCount
	if t.MergeAll {
		n = len(objs) - 1
	}
	if n < 1 || len(objs) < n+1 {
		return fmt.Errorf("%w: %s: have %d, need %d", ErrNotEnoughObjects, t.CoinType, len(objs), max(n, 1)+1)
	}
	s.mergeInto(t.CoinType, n)
	return nil
}

func (s *batchState) split(t SplitTask) error {
	required := t.Required()
	if err := s.checkSufficient(t.CoinType, required); err != nil {
		return err
	}
	src := s.source(t.CoinType)

	pieces := make([]Arg, t.Pieces)
	for i := range t.Pieces {
		idx := s.emit(SplitOp{CoinType: t.CoinType, Source: src, Amounts: []types.Amount{t.AmountEach}})
		pieces[i] = ResultArg(idx, 0)
	}
	for _, p := range pieces {
		s.emit(TransferOp{Objects: []Arg{p}, Recipient: s.owner})
	}
	s.spend(t.CoinType, required)
	return nil
}

func (s *batchState) transfer(t TransferTask) error {
	shares := t.Shares()
	required := types.ZeroAmount()
	for _, sh := range shares {
		required = required.Add(sh)
	}
	if err := s.checkSufficient(t.CoinType, required); err != nil {
		return err
	}
	src := s.source(t.CoinType)

	for i, r := range t.Recipients {
		idx := s.emit(SplitOp{CoinType: t.CoinType, Source: src, Amounts: []types.Amount{shares[i]}})
		s.emit(TransferOp{Objects: []Arg{ResultArg(idx, 0)}, Recipient: r.Address})
	}
	s.spend(t.CoinType, required)
	return nil
}

// takeFromView removes id from whichever coin type holds it.
func (s *batchState) takeFromView(id types.ObjectID) (types.Coin, bool) {
	for ct, coins := range s.view {
		for i, c := range coins {
			if c.ObjectID == id {
				s.view[ct] = slices.Delete(coins, i, i+1)
				return c, true
			}
		}
	}
	return types.Coin{}, false
}

func (s *batchState) transferObjects(t ObjectTransferTask) error {
	args := make([]Arg, len(t.ObjectIDs))
	for i, id := range t.ObjectIDs {
		if s.consumed[id] {
			return fmt.Errorf("%w: %s", ErrObjectConsumed, id.Short())
		}
		s.takeFromView(id)
		s.consumed[id] = true
		args[i] = ObjectArg(id)
	}
	s.emit(TransferOp{Objects: args, Recipient: t.Recipient})
	return nil
}

func (s *batchState) destroyZero(t DestroyZeroTask) error {
	sel, err := PlanDestroyZeroBalance(t.Objects, t.MaxCount)
	if err != nil {
		return err
	}
	for _, c := range sel.Objects {
		if s.consumed[c.ObjectID] {
			return fmt.Errorf("%w: %s", ErrObjectConsumed, c.ObjectID.Short())
		}
		if held, ok := s.takeFromView(c.ObjectID); ok && !held.Balance.IsZero() {
			return fmt.Errorf("%w: %s has balance %s", ErrInvalidAmount, c.ObjectID.Short(), held.Balance)
		}
		s.consumed[c.ObjectID] = true
		s.emit(DestroyZeroOp{CoinType: c.CoinType, Coin: ObjectArg(c.ObjectID)})
		s.destroyed = append(s.destroyed, c)
	}
	return nil
}
