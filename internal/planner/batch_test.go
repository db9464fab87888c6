package planner

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/coinforge/internal/inventory"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

func snapshotOf(holdings ...[]types.Coin) *inventory.Snapshot {
	hs := make([]inventory.Holding, len(holdings))
	for i, coins := range holdings {
		hs[i] = inventory.Holding{
			Meta:  types.CoinMeta{CoinType: coins[0].CoinType, Decimals: 9},
			Coins: coins,
		}
	}
	return inventory.NewSnapshot(self, hs...)
}

func TestBatch_CumulativeSufficiency(t *testing.T) {
	b := NewBatch(snapshotOf(makeCoins(memeType, 60, 40)))

	if err := b.Add(TransferTask{CoinType: memeType, Recipients: []Recipient{{Address: alice, Amount: amt(70)}}}); err != nil {
		t.Fatalf("first transfer: %v", err)
	}
	if got := b.Available(memeType).String(); got != "30" {
		t.Errorf("available = %s, want 30", got)
	}

	before := len(b.Plan().Ops)
	err := b.Add(SplitTask{CoinType: memeType, Pieces: 2, AmountEach: amt(20)})
	var ie *InsufficientError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InsufficientError, got %v", err)
	}
	if ie.Required.String() != "40" || ie.Available.String() != "30" {
		t.Errorf("detail = need %s have %s", ie.Required, ie.Available)
	}
	if len(b.Plan().Ops) != before {
		t.Error("failed task must not leave ops behind")
	}

	if err := b.Add(SplitTask{CoinType: memeType, Pieces: 3, AmountEach: amt(10)}); err != nil {
		t.Fatalf("fitting split: %v", err)
	}
}

func TestBatch_ConsolidatesOnce(t *testing.T) {
	b := NewBatch(snapshotOf(makeCoins(memeType, 10, 10, 10)))
	for i := 0; i < 3; i++ {
		if err := b.Add(TransferTask{CoinType: memeType, Recipients: []Recipient{{Address: bob, Amount: amt(5)}}}); err != nil {
			t.Fatalf("transfer %d: %v", i, err)
		}
	}
	merges := 0
	for _, op := range b.Plan().Ops {
		if _, ok := op.(MergeOp); ok {
			merges++
		}
	}
	if merges != 1 {
		t.Errorf("merges = %d, want 1", merges)
	}
}

func TestBatch_MergeConsumesSources(t *testing.T) {
	coins := makeCoins(memeType, 1, 2, 3, 4)
	b := NewBatch(snapshotOf(coins))

	if err := b.Add(MergeTask{CoinType: memeType, SourceCount: 2}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	// Target now holds 6, one untouched object holds 4: exactly one more source.
	err := b.Add(MergeTask{CoinType: memeType, SourceCount: 2})
	if !errors.Is(err, ErrNotEnoughObjects) {
		t.Fatalf("second merge: expected ErrNotEnoughObjects, got %v", err)
	}
	if err := b.Add(MergeTask{CoinType: memeType, SourceCount: 1}); err != nil {
		t.Fatalf("merge remaining: %v", err)
	}
	ops := b.Plan().Ops
	second := ops[1].(MergeOp)
	if second.Target != ObjectArg(coins[0].ObjectID) || second.Sources[0] != ObjectArg(coins[3].ObjectID) {
		t.Errorf("second merge = %s", second)
	}

	err = b.Add(ObjectTransferTask{ObjectIDs: []types.ObjectID{coins[1].ObjectID}, Recipient: alice})
	if !errors.Is(err, ErrObjectConsumed) {
		t.Errorf("transfer of merged source: expected ErrObjectConsumed, got %v", err)
	}
}

func TestBatch_MergeNotEnoughObjects(t *testing.T) {
	b := NewBatch(snapshotOf(makeCoins(memeType, 5, 5)))
	if err := b.Add(MergeTask{CoinType: memeType, SourceCount: 2}); !errors.Is(err, ErrNotEnoughObjects) {
		t.Fatalf("expected ErrNotEnoughObjects, got %v", err)
	}
	if len(b.Plan().Ops) != 0 {
		t.Error("no ops expected")
	}
}

func TestBatch_MultipleTypes(t *testing.T) {
	gas := makeCoins(types.GasCoinType, 1_000, 2_000)
	meme := makeCoins(memeType, 7)
	// Give the meme coin a distinct id.
	meme[0].ObjectID[0] = 0xff

	b := NewBatch(snapshotOf(gas, meme))
	if err := b.Add(TransferTask{CoinType: types.GasCoinType, Recipients: []Recipient{{Address: alice, Amount: amt(2_500)}}}); err != nil {
		t.Fatalf("gas transfer: %v", err)
	}
	if err := b.Add(TransferTask{CoinType: memeType, Recipients: []Recipient{{Address: alice, Amount: amt(7)}}}); err != nil {
		t.Fatalf("meme transfer: %v", err)
	}
	plan := b.Plan()
	if len(plan.Ops) != 4 {
		t.Fatalf("ops = %d, want 4", len(plan.Ops))
	}
	if s := plan.Ops[0].(SplitOp); s.Source != GasArg() {
		t.Errorf("gas split source = %s", s.Source)
	}
	if s := plan.Ops[2].(SplitOp); s.Source != ObjectArg(meme[0].ObjectID) {
		t.Errorf("meme split source = %s", s.Source)
	}
	if len(plan.Kinds) != 1 || plan.Kinds[0] != KindTransfer {
		t.Errorf("kinds = %v", plan.Kinds)
	}
}

func TestBatch_ObjectTransferAndDestroy(t *testing.T) {
	meme := makeCoins(memeType, 0, 0, 9)
	b := NewBatch(snapshotOf(meme))

	if err := b.Add(DestroyZeroTask{Objects: meme[:2], MaxCount: 10}); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	nft, _ := types.ParseObjectID("0x77")
	if err := b.Add(ObjectTransferTask{ObjectIDs: []types.ObjectID{meme[2].ObjectID, nft}, Recipient: carol}); err != nil {
		t.Fatalf("object transfer: %v", err)
	}
	if got := b.Available(memeType); !got.IsZero() {
		t.Errorf("available after transferring the only funded coin = %s", got)
	}

	plan := b.Plan()
	if len(plan.Destroyed) != 2 || plan.Rebate().String() != "220000000" {
		t.Errorf("destroyed = %d, rebate = %s", len(plan.Destroyed), plan.Rebate())
	}
	if len(plan.Ops) != 3 {
		t.Fatalf("ops = %d, want 2 destroys + 1 transfer", len(plan.Ops))
	}
	tr := plan.Ops[2].(TransferOp)
	if len(tr.Objects) != 2 || tr.Recipient != carol {
		t.Errorf("transfer = %s", tr)
	}

	if err := b.Add(DestroyZeroTask{Objects: meme[:1], MaxCount: 1}); !errors.Is(err, ErrObjectConsumed) {
		t.Errorf("destroying twice: expected ErrObjectConsumed, got %v", err)
	}
}

func TestBatch_DestroyRejectsFundedViewObject(t *testing.T) {
	meme := makeCoins(memeType, 5)
	b := NewBatch(snapshotOf(meme))
	stale := meme[0]
	stale.Balance = types.ZeroAmount()
	if err := b.Add(DestroyZeroTask{Objects: []types.Coin{stale}, MaxCount: 1}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
