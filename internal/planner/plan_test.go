package planner

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/Klingon-tech/coinforge/internal/units"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

const memeType types.CoinType = "0xabc::meme::MEME"

var (
	self  = types.MustParseAddress("0x5e1f")
	alice = types.MustParseAddress("0xa11ce")
	bob   = types.MustParseAddress("0xb0b")
	carol = types.MustParseAddress("0xca401")
)

func makeCoins(ct types.CoinType, balances ...uint64) []types.Coin {
	coins := make([]types.Coin, len(balances))
	for i, b := range balances {
		id, _ := types.ParseObjectID(fmt.Sprintf("0x%x", i+1))
		coins[i] = types.Coin{ObjectID: id, CoinType: ct, Balance: types.NewAmount(b)}
	}
	return coins
}

func amt(v uint64) types.Amount { return types.NewAmount(v) }

func TestPlanMerge_FirstIsTarget(t *testing.T) {
	coins := makeCoins(memeType, 1, 900, 5, 3)
	sel, err := PlanMerge(memeType, coins, 2, false)
	if err != nil {
		t.Fatalf("PlanMerge: %v", err)
	}
	if sel.Target != coins[0].ObjectID {
		t.Errorf("target = %s, want first object", sel.Target.Short())
	}
	if len(sel.Sources) != 2 || sel.Sources[0] != coins[1].ObjectID || sel.Sources[1] != coins[2].ObjectID {
		t.Errorf("sources = %v, want objects 2 and 3", sel.Sources)
	}
}

func TestPlanMerge_OrderingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 100; trial++ {
		n := 2 + rng.Intn(20)
		bals := make([]uint64, n)
		for i := range bals {
			bals[i] = uint64(rng.Int63n(1_000_000))
		}
		coins := makeCoins(memeType, bals...)
		before := append([]types.Coin(nil), coins...)

		sel, err := PlanMerge(memeType, coins, 0, true)
		if err != nil {
			t.Fatalf("PlanMerge: %v", err)
		}
		if sel.Target != coins[0].ObjectID {
			t.Fatalf("trial %d: target is not the first object", trial)
		}
		for i := range coins {
			if coins[i].ObjectID != before[i].ObjectID {
				t.Fatalf("trial %d: input reordered at %d", trial, i)
			}
		}
		for i, id := range sel.Sources {
			if id != coins[i+1].ObjectID {
				t.Fatalf("trial %d: source %d out of order", trial, i)
			}
		}
	}
}

func TestPlanMerge_NotEnoughObjects(t *testing.T) {
	coins := makeCoins(memeType, 10, 20)
	_, err := PlanMerge(memeType, coins, 2, false)
	if !errors.Is(err, ErrNotEnoughObjects) {
		t.Fatalf("expected ErrNotEnoughObjects, got %v", err)
	}

	_, err = PlanMerge(memeType, makeCoins(memeType, 10), 0, true)
	if !errors.Is(err, ErrNotEnoughObjects) {
		t.Fatalf("merge all of one object: expected ErrNotEnoughObjects, got %v", err)
	}
}

func TestPlanMerge_Validation(t *testing.T) {
	if _, err := PlanMerge("", makeCoins(memeType, 1, 2), 1, false); !errors.Is(err, ErrNoCoinSelected) {
		t.Errorf("expected ErrNoCoinSelected, got %v", err)
	}
	if _, err := PlanMerge(memeType, makeCoins(memeType, 1, 2), 0, false); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestPlanSplit_Scenario(t *testing.T) {
	each, err := units.ToBaseUnits("1.5", 9)
	if err != nil {
		t.Fatalf("ToBaseUnits: %v", err)
	}
	coins := makeCoins(memeType, 10_000_000_000)

	plan, err := PlanSplit(self, memeType, coins, 3, each)
	if err != nil {
		t.Fatalf("PlanSplit: %v", err)
	}
	if len(plan.Ops) != 6 {
		t.Fatalf("ops = %d, want 3 splits + 3 transfers", len(plan.Ops))
	}
	for i := 0; i < 3; i++ {
		split, ok := plan.Ops[i].(SplitOp)
		if !ok {
			t.Fatalf("op %d = %T, want SplitOp", i, plan.Ops[i])
		}
		if len(split.Amounts) != 1 || split.Amounts[0].String() != "1500000000" {
			t.Errorf("split %d amounts = %v", i, split.Amounts)
		}
		if split.Source != ObjectArg(coins[0].ObjectID) {
			t.Errorf("split %d source = %s", i, split.Source)
		}
	}
	for i := 3; i < 6; i++ {
		tr, ok := plan.Ops[i].(TransferOp)
		if !ok {
			t.Fatalf("op %d = %T, want TransferOp", i, plan.Ops[i])
		}
		if tr.Recipient != self {
			t.Errorf("transfer %d goes to %s, want owner", i, tr.Recipient.Short())
		}
		if tr.Objects[0] != ResultArg(i-3, 0) {
			t.Errorf("transfer %d moves %s, want result of split %d", i, tr.Objects[0], i-3)
		}
	}
	if got := plan.Spent[memeType].String(); got != "4500000000" {
		t.Errorf("spent = %s, want 4500000000", got)
	}
}

func TestPlanSplit_MergesFirstForNonGas(t *testing.T) {
	coins := makeCoins(memeType, 10, 20, 30)
	plan, err := PlanSplit(self, memeType, coins, 2, amt(25))
	if err != nil {
		t.Fatalf("PlanSplit: %v", err)
	}
	merge, ok := plan.Ops[0].(MergeOp)
	if !ok {
		t.Fatalf("first op = %T, want MergeOp", plan.Ops[0])
	}
	if merge.Target != ObjectArg(coins[0].ObjectID) || len(merge.Sources) != 2 {
		t.Errorf("merge = %s", merge)
	}
	if len(plan.Ops) != 5 {
		t.Errorf("ops = %d, want merge + 2 splits + 2 transfers", len(plan.Ops))
	}
}

func TestPlanSplit_GasCoinSplitsFromGas(t *testing.T) {
	coins := makeCoins(types.GasCoinType, 10, 20, 30)
	plan, err := PlanSplit(self, types.GasCoinType, coins, 2, amt(25))
	if err != nil {
		t.Fatalf("PlanSplit: %v", err)
	}
	for _, op := range plan.Ops {
		if _, ok := op.(MergeOp); ok {
			t.Fatal("gas coin must not be merged")
		}
		if s, ok := op.(SplitOp); ok && s.Source != GasArg() {
			t.Errorf("gas split source = %s, want gas", s.Source)
		}
	}
}

func TestPlanSplit_Validation(t *testing.T) {
	coins := makeCoins(memeType, 100)
	if _, err := PlanSplit(self, memeType, coins, 0, amt(1)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero pieces: %v", err)
	}
	if _, err := PlanSplit(self, memeType, coins, 1, amt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: %v", err)
	}
	if _, err := PlanSplit(self, "", coins, 1, amt(1)); !errors.Is(err, ErrNoCoinSelected) {
		t.Errorf("no coin: %v", err)
	}
}

func TestPlanTransfer_EqualSplitScenario(t *testing.T) {
	total, _ := units.ToBaseUnits("100", 9)
	recipients := []Recipient{{Address: alice}, {Address: bob}, {Address: carol}}

	plan, err := PlanTransfer(self, memeType, makeCoins(memeType, 100_000_000_000), recipients, true, total)
	if err != nil {
		t.Fatalf("PlanTransfer: %v", err)
	}
	want := []string{"33333333334", "33333333333", "33333333333"}
	var got []string
	for _, op := range plan.Ops {
		if s, ok := op.(SplitOp); ok {
			got = append(got, s.Amounts[0].String())
		}
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("shares = %v, want %v", got, want)
	}
	tr := plan.Ops[1].(TransferOp)
	if tr.Recipient != alice {
		t.Errorf("first share goes to %s, want alice", tr.Recipient.Short())
	}
}

func TestEqualShares_Exact(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 500; trial++ {
		total := amt(uint64(rng.Int63()))
		if trial%7 == 0 {
			total = amt(uint64(rng.Intn(5)))
		}
		n := 1 + rng.Intn(40)
		shares := EqualShares(total, n)
		if len(shares) != n {
			t.Fatalf("len = %d, want %d", len(shares), n)
		}
		sum := types.ZeroAmount()
		for i, s := range shares {
			if s.IsNegative() {
				t.Fatalf("negative share %s", s)
			}
			if i > 1 && !s.Equal(shares[1]) {
				t.Fatalf("share %d = %s differs from share 1 = %s", i, s, shares[1])
			}
			sum = sum.Add(s)
		}
		if !sum.Equal(total) {
			t.Fatalf("sum %s != total %s (n=%d)", sum, total, n)
		}
	}
}

func TestPlanTransfer_Explicit(t *testing.T) {
	recipients := []Recipient{{Address: alice, Amount: amt(40)}, {Address: bob, Amount: amt(60)}}
	plan, err := PlanTransfer(self, memeType, makeCoins(memeType, 50, 50), recipients, false, types.Amount{})
	if err != nil {
		t.Fatalf("PlanTransfer: %v", err)
	}
	// merge, split, transfer, split, transfer
	if len(plan.Ops) != 5 {
		t.Fatalf("ops = %d, want 5", len(plan.Ops))
	}
	if _, ok := plan.Ops[0].(MergeOp); !ok {
		t.Errorf("first op = %T, want MergeOp", plan.Ops[0])
	}
}

func TestPlanTransfer_Validation(t *testing.T) {
	coins := makeCoins(memeType, 100)
	if _, err := PlanTransfer(self, memeType, coins, nil, false, types.Amount{}); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("no recipients: %v", err)
	}
	zero := []Recipient{{Address: alice, Amount: amt(0)}}
	if _, err := PlanTransfer(self, memeType, coins, zero, false, types.Amount{}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: %v", err)
	}
	noAddr := []Recipient{{Amount: amt(1)}}
	if _, err := PlanTransfer(self, memeType, coins, noAddr, false, types.Amount{}); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("missing address: %v", err)
	}
	if _, err := PlanTransfer(self, memeType, coins, []Recipient{{Address: alice}}, true, amt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero equal-split total: %v", err)
	}
}

func TestSufficiencyGate(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(5)
		bals := make([]uint64, n)
		var total uint64
		for i := range bals {
			bals[i] = uint64(rng.Intn(1000))
			total += bals[i]
		}
		coins := makeCoins(memeType, bals...)
		over := amt(total + 1 + uint64(rng.Intn(1000)))

		plan, err := PlanTransfer(self, memeType, coins, []Recipient{{Address: alice, Amount: over}}, false, types.Amount{})
		var ie *InsufficientError
		if !errors.As(err, &ie) || !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("transfer: expected InsufficientError, got %v", err)
		}
		if plan != nil {
			t.Fatalf("transfer: plan returned alongside error")
		}
		if ie.Available.Uint64() != total || !ie.Shortfall().Equal(over.Sub(amt(total))) {
			t.Fatalf("transfer: detail = %+v", ie)
		}

		plan, err = PlanSplit(self, memeType, coins, 1, over)
		if !errors.Is(err, ErrInsufficientBalance) || plan != nil {
			t.Fatalf("split: expected ErrInsufficientBalance and no plan, got %v", err)
		}
	}
}

func TestPlanDestroyZeroBalance(t *testing.T) {
	coins := makeCoins(memeType, 0, 0, 0, 0, 0)
	sel, err := PlanDestroyZeroBalance(coins, 3)
	if err != nil {
		t.Fatalf("PlanDestroyZeroBalance: %v", err)
	}
	if sel.Count != 3 || len(sel.Objects) != 3 {
		t.Errorf("count = %d, want 3", sel.Count)
	}
	if sel.Rebate.String() != "330000000" {
		t.Errorf("rebate = %s, want 330000000", sel.Rebate)
	}
	if got := units.ToHuman(sel.Rebate, 9, 6); got != "0.330000" {
		t.Errorf("rebate display = %q", got)
	}

	if _, err := PlanDestroyZeroBalance(nil, 3); !errors.Is(err, ErrNoCoinSelected) {
		t.Errorf("empty: %v", err)
	}
	if _, err := PlanDestroyZeroBalance(makeCoins(memeType, 0, 7), 5); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("non-zero object: %v", err)
	}
}

func TestSplitRemainder(t *testing.T) {
	rest, ok := SplitRemainder(amt(100), 3, amt(30))
	if !ok || rest.String() != "10" {
		t.Errorf("remainder = %s, %v", rest, ok)
	}
	if _, ok := SplitRemainder(amt(100), 4, amt(30)); ok {
		t.Error("expected insufficient")
	}
}

func TestGasBudget(t *testing.T) {
	p := &Plan{Kinds: []Kind{KindTransfer}}
	if got := p.GasBudget(DefaultBudgets()); got != 500_000_000 {
		t.Errorf("transfer budget = %d", got)
	}
	p.Kinds = append(p.Kinds, KindMerge)
	if got := p.GasBudget(DefaultBudgets()); got != 2_000_000_000 {
		t.Errorf("mixed budget = %d", got)
	}
}
