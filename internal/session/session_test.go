package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/coinforge/internal/assembler"
	"github.com/Klingon-tech/coinforge/internal/gas"
	"github.com/Klingon-tech/coinforge/internal/inventory"
	"github.com/Klingon-tech/coinforge/internal/ledger"
	"github.com/Klingon-tech/coinforge/internal/notify"
	"github.com/Klingon-tech/coinforge/internal/planner"
	"github.com/Klingon-tech/coinforge/internal/queue"
	"github.com/Klingon-tech/coinforge/internal/storage"
	"github.com/Klingon-tech/coinforge/internal/units"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

const memeType types.CoinType = "0xabc::meme::MEME"

var (
	owner     = types.MustParseAddress("0xbeef")
	recipient = types.MustParseAddress("0xcafe")
)

func coinID(i int) types.ObjectID {
	id, err := types.ParseObjectID(fmt.Sprintf("0x%x", i))
	if err != nil {
		panic(err)
	}
	return id
}

func coin(i int, ct types.CoinType, bal uint64) types.Coin {
	return types.Coin{ObjectID: coinID(i), CoinType: ct, Balance: types.NewAmount(bal)}
}

func meme(t *testing.T, human string) types.Amount {
	t.Helper()
	v, err := units.ToBaseUnits(human, 9)
	require.NoError(t, err)
	return v
}

type fixture struct {
	ledger *ledger.Fake
	signer *assembler.FakeSigner
	rec    *notify.Recorder
	queue  *queue.Queue
	s      *Session
}

// newFixture holds 10 SUI over two objects and 10 MEME over three, one of
// them empty.
func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := ledger.NewFake(2)
	f.AddCoins(owner,
		coin(1, types.GasCoinType, 5_000_000_000),
		coin(2, types.GasCoinType, 5_000_000_000),
		coin(3, memeType, 4_000_000_000),
		coin(4, memeType, 6_000_000_000),
		coin(5, memeType, 0),
	)
	f.SetMetadata(memeType, &ledger.Metadata{
		Symbol:   ledger.Ptr("MEME"),
		Name:     ledger.Ptr("Meme Coin"),
		Decimals: ledger.Ptr(uint8(9)),
	})
	f.SetGasPrice(1000)

	rec := &notify.Recorder{}
	cfg.Notifier = rec
	signer := &assembler.FakeSigner{}
	q := queue.New(storage.NewMemory())
	return &fixture{
		ledger: f,
		signer: signer,
		rec:    rec,
		queue:  q,
		s:      New(Env{Owner: owner, Ledger: f}, q, signer, cfg),
	}
}

func (fx *fixture) queued(t *testing.T) int {
	t.Helper()
	n, err := fx.queue.Len()
	require.NoError(t, err)
	return n
}

func (fx *fixture) last(t *testing.T) notify.Notification {
	t.Helper()
	n, ok := fx.rec.Last()
	require.True(t, ok, "no notification")
	return n
}

func TestHoldings(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	all, err := fx.s.Holdings(ctx, inventory.FilterAll, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	verified, err := fx.s.Holdings(ctx, inventory.FilterVerified, "")
	require.NoError(t, err)
	require.Len(t, verified, 1)
	require.Equal(t, "MEME", verified[0].Symbol)
	require.Equal(t, meme(t, "10"), verified[0].TotalBalance)

	found, err := fx.s.Holdings(ctx, inventory.FilterAll, "meme c")
	require.NoError(t, err)
	require.Len(t, found, 1)

	// Second listing is served from the snapshot.
	require.Equal(t, 1, fx.ledger.Calls("GetAllBalances"))
}

func TestAddTask_Split(t *testing.T) {
	fx := newFixture(t, Config{})

	entry, err := fx.s.AddTask(context.Background(), planner.SplitTask{
		CoinType: memeType, Pieces: 3, AmountEach: meme(t, "1.5"),
	})
	require.NoError(t, err)
	require.Equal(t, queue.StateQueued, entry.State)
	require.Equal(t, "Split 3 × 1.5 MEME", entry.Summary)
	require.Equal(t, 1, fx.queued(t))

	n := fx.last(t)
	require.Equal(t, notify.Info, n.Level)
	require.Equal(t, "Task added", n.Title)
}

func TestAddTask_InvalidNeverReachesLedger(t *testing.T) {
	fx := newFixture(t, Config{})

	_, err := fx.s.AddTask(context.Background(), planner.SplitTask{CoinType: memeType, Pieces: 0, AmountEach: meme(t, "1")})
	require.ErrorIs(t, err, planner.ErrInvalidAmount)
	require.Zero(t, fx.ledger.Calls("GetAllBalances"))
	require.Zero(t, fx.queued(t))
	require.Equal(t, "Invalid amount", fx.last(t).Title)
}

func TestAddTask_CumulativeSufficiency(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	_, err := fx.s.AddTask(ctx, planner.TransferTask{
		CoinType:   memeType,
		Recipients: []planner.Recipient{{Address: recipient, Amount: meme(t, "8")}},
	})
	require.NoError(t, err)

	_, err = fx.s.AddTask(ctx, planner.SplitTask{CoinType: memeType, Pieces: 2, AmountEach: meme(t, "1.5")})
	require.ErrorIs(t, err, planner.ErrInsufficientBalance)
	require.Equal(t, KindInsufficientBalance, Classify(err))
	require.Equal(t, 1, fx.queued(t))

	n := fx.last(t)
	require.Equal(t, notify.Failure, n.Level)
	require.Equal(t, "Insufficient balance", n.Title)
	require.Equal(t, "Current balance: 2.0000 MEME, required: 3.0000 MEME, shortfall: 1.0000 MEME", n.Detail)
}

func TestAddTask_NotEnoughObjects(t *testing.T) {
	fx := newFixture(t, Config{})

	_, err := fx.s.AddTask(context.Background(), planner.MergeTask{CoinType: types.GasCoinType, SourceCount: 2})
	require.ErrorIs(t, err, planner.ErrNotEnoughObjects)
	require.Zero(t, fx.queued(t))
	require.Equal(t, "Not enough coin objects", fx.last(t).Title)
}

func TestRemoveAndClearTasks(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	a, err := fx.s.AddTask(ctx, planner.MergeTask{CoinType: memeType, MergeAll: true})
	require.NoError(t, err)
	_, err = fx.s.AddTask(ctx, planner.SplitTask{CoinType: types.GasCoinType, Pieces: 2, AmountEach: meme(t, "1")})
	require.NoError(t, err)

	require.NoError(t, fx.s.RemoveTask(a.ID))
	require.Equal(t, 1, fx.queued(t))
	require.ErrorIs(t, fx.s.RemoveTask(a.ID), queue.ErrNotFound)

	n, err := fx.s.ClearTasks()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Zero(t, fx.queued(t))
	require.Nil(t, fx.s.Inventory().Snapshot(), "clear must drop the snapshot")
}

func TestPreview(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	_, err := fx.s.AddTask(ctx, planner.SplitTask{CoinType: memeType, Pieces: 3, AmountEach: meme(t, "1.5")})
	require.NoError(t, err)
	_, err = fx.s.AddTask(ctx, planner.SplitTask{CoinType: types.GasCoinType, Pieces: 20, AmountEach: meme(t, "1")})
	require.Error(t, err)

	p, err := fx.s.Preview(ctx)
	require.NoError(t, err)
	require.Len(t, p.Tasks, 1)
	require.Equal(t, "5.5000 MEME", p.Tasks[0].Remainder)
	require.Equal(t, uint64(2_000_000_000), p.GasBudget)
	require.Equal(t, uint64(1000), p.GasPrice)
	require.Equal(t, "2000.0000", p.Estimate)
	require.Equal(t, gas.Placeholder, p.Simulated)
	require.Empty(t, p.Rebate)
	require.Zero(t, fx.signer.Simulated)

	snap := fx.s.Inventory().Snapshot()
	require.Equal(t, snap.Fingerprint(), p.Fingerprint)
}

func TestPreview_Simulated(t *testing.T) {
	fx := newFixture(t, Config{Simulate: true})
	ctx := context.Background()
	fx.signer.DryRun = &ledger.DryRun{
		Success: true,
		GasUsed: ledger.GasCostSummary{
			ComputationCost: ledger.Ptr(uint64(1_000_000)),
			StorageCost:     ledger.Ptr(uint64(2_000_000)),
			StorageRebate:   ledger.Ptr(uint64(500_000)),
		},
	}

	_, err := fx.s.AddTask(ctx, planner.MergeTask{CoinType: memeType, MergeAll: true})
	require.NoError(t, err)

	p, err := fx.s.Preview(ctx)
	require.NoError(t, err)
	require.Equal(t, "0.0025", p.Simulated)
	require.Equal(t, 1, fx.signer.Simulated)

	fx.signer.SimulateErr = errors.New("dry run rejected")
	p, err = fx.s.Preview(ctx)
	require.NoError(t, err)
	require.Equal(t, gas.Placeholder, p.Simulated)
}

func TestPreview_UnknownGasPrice(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()
	fx.ledger.Errs["GetReferenceGasPrice"] = errors.New("timeout")

	_, err := fx.s.AddTask(ctx, planner.MergeTask{CoinType: memeType, MergeAll: true})
	require.NoError(t, err)

	p, err := fx.s.Preview(ctx)
	require.NoError(t, err)
	require.Equal(t, gas.Placeholder, p.Estimate)
}

func TestPreview_EmptyQueue(t *testing.T) {
	fx := newFixture(t, Config{})
	_, err := fx.s.Preview(context.Background())
	require.ErrorIs(t, err, ErrEmptyQueue)
}

func TestSend_Success(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	_, err := fx.s.AddTask(ctx, planner.TransferTask{
		CoinType:   memeType,
		Recipients: []planner.Recipient{{Address: recipient, Amount: meme(t, "1")}},
	})
	require.NoError(t, err)
	before := fx.ledger.Calls("GetAllBalances")

	res := fx.s.Send(ctx)
	require.True(t, res.Ok, res.Message)
	require.Equal(t, "digest-1", res.Digest)
	require.NotNil(t, res.Effects)
	require.Zero(t, fx.queued(t))

	require.Len(t, fx.signer.Submitted, 1)
	d := fx.signer.Submitted[0]
	require.Equal(t, owner, d.Sender)
	require.Equal(t, uint64(500_000_000), d.GasBudget)
	require.Equal(t, 1, fx.signer.Simulated)

	require.Greater(t, fx.ledger.Calls("GetAllBalances"), before, "success must refresh")
	n := fx.last(t)
	require.Equal(t, notify.Success, n.Level)
	require.Equal(t, "digest-1", n.Detail)
}

func TestSend_PlansAgainstHeldSnapshot(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	_, err := fx.s.AddTask(ctx, planner.MergeTask{CoinType: memeType, MergeAll: true})
	require.NoError(t, err)

	before := fx.ledger.Calls("GetAllBalances")
	var atSubmit int
	fx.signer.OnSubmit = func(*assembler.Descriptor) {
		atSubmit = fx.ledger.Calls("GetAllBalances")
	}

	res := fx.s.Send(ctx)
	require.True(t, res.Ok, res.Message)
	require.Equal(t, before, atSubmit, "no ledger reads between plan and submit")
}

func TestSend_FailureKeepsQueue(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()
	fx.signer.SubmitErr = errors.New("node unreachable")

	_, err := fx.s.AddTask(ctx, planner.MergeTask{CoinType: memeType, MergeAll: true})
	require.NoError(t, err)

	res := fx.s.Send(ctx)
	require.False(t, res.Ok)
	require.Equal(t, KindExternalCall, res.Kind)
	require.Contains(t, res.Message, "node unreachable")
	require.ErrorIs(t, res.Unwrap(), ledger.ErrExternalCall)
	require.Equal(t, 1, fx.queued(t))

	n := fx.last(t)
	require.Equal(t, notify.Failure, n.Level)
	require.Equal(t, "Request failed", n.Title)
}

func TestSend_ExecutionFailed(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()
	fx.signer.Effects = &ledger.Effects{Success: false, Error: "InsufficientGas"}

	_, err := fx.s.AddTask(ctx, planner.MergeTask{CoinType: memeType, MergeAll: true})
	require.NoError(t, err)

	res := fx.s.Send(ctx)
	require.False(t, res.Ok)
	require.Equal(t, KindExecutionFailed, res.Kind)
	require.Contains(t, res.Message, "InsufficientGas")
	require.Equal(t, "digest-1", res.Digest)
	require.Equal(t, 1, fx.queued(t))
}

func TestSend_SimulationFailureDoesNotBlock(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()
	fx.signer.SimulateErr = errors.New("simulator offline")

	_, err := fx.s.AddTask(ctx, planner.MergeTask{CoinType: memeType, MergeAll: true})
	require.NoError(t, err)

	res := fx.s.Send(ctx)
	require.True(t, res.Ok, res.Message)
	require.Len(t, fx.signer.Submitted, 1)
}

func TestSend_EmptyQueue(t *testing.T) {
	fx := newFixture(t, Config{})
	res := fx.s.Send(context.Background())
	require.False(t, res.Ok)
	require.Equal(t, KindEmptyQueue, res.Kind)
	require.Empty(t, fx.signer.Submitted)
}

func TestSend_NoSigner(t *testing.T) {
	fx := newFixture(t, Config{})
	s := New(Env{Owner: owner, Ledger: fx.ledger}, fx.queue, nil, Config{Notifier: fx.rec})
	ctx := context.Background()

	_, err := s.AddTask(ctx, planner.MergeTask{CoinType: memeType, MergeAll: true})
	require.NoError(t, err)
	res := s.Send(ctx)
	require.False(t, res.Ok)
	require.ErrorIs(t, res.Err, ErrNoSigner)
	require.Equal(t, 1, fx.queued(t))
}

func TestScanAndBurnDust(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	scan, err := fx.s.ScanDust(ctx)
	require.NoError(t, err)
	require.Len(t, scan.Coins, 1)
	require.Equal(t, coinID(5), scan.Coins[0].ObjectID)
	require.Equal(t, []inventory.ZeroGroup{{CoinType: memeType, Symbol: "MEME", Count: 1}}, scan.Groups)
	require.Equal(t, "0.110000", scan.Rebate)

	res := fx.s.BurnDust(ctx)
	require.True(t, res.Ok, res.Message)
	d := fx.signer.Submitted[0]
	require.Equal(t, uint64(1_000_000_000), d.GasBudget)
	require.Len(t, d.Commands, 1)
	require.Equal(t, assembler.CmdMoveCall, d.Commands[0].Kind)
	require.Equal(t, assembler.DestroyZeroFunction, d.Commands[0].Function)

	n := fx.last(t)
	require.Equal(t, "Destroyed 1 zero-balance coin(s)", n.Title)
	require.Equal(t, "Estimated rebate: 0.110000 SUI", n.Detail)
}

func TestBurnDust_Nothing(t *testing.T) {
	fx := newFixture(t, Config{})
	fx.ledger.RemoveCoins(owner, coinID(5))

	res := fx.s.BurnDust(context.Background())
	require.False(t, res.Ok)
	require.Equal(t, KindNoCoinSelected, res.Kind)
	require.Empty(t, fx.signer.Submitted)
}

func TestTransferObjects(t *testing.T) {
	fx := newFixture(t, Config{})
	ctx := context.Background()

	res := fx.s.TransferObjects(ctx, []types.ObjectID{coinID(3), coinID(4)}, recipient)
	require.True(t, res.Ok, res.Message)
	d := fx.signer.Submitted[0]
	require.Equal(t, uint64(500_000_000), d.GasBudget)
	require.ElementsMatch(t, []types.ObjectID{coinID(3), coinID(4)}, d.ObjectIDs())

	res = fx.s.TransferObjects(ctx, nil, recipient)
	require.Equal(t, KindNoCoinSelected, res.Kind)
}

func TestRefresh_Failure(t *testing.T) {
	fx := newFixture(t, Config{})
	fx.ledger.Errs["GetAllBalances"] = errors.New("rate limited")

	_, err := fx.s.Refresh(context.Background())
	require.ErrorIs(t, err, ledger.ErrExternalCall)
	n := fx.last(t)
	require.Equal(t, "Failed to load balances", n.Title)
	require.Contains(t, n.Detail, "rate limited")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{&planner.InsufficientError{CoinType: memeType, Required: types.NewAmount(2), Available: types.NewAmount(1)}, KindInsufficientBalance},
		{fmt.Errorf("merge: %w", planner.ErrNotEnoughObjects), KindNotEnoughObjects},
		{planner.ErrInvalidAmount, KindInvalidAmount},
		{planner.ErrNoRecipients, KindNoRecipients},
		{planner.ErrNoCoinSelected, KindNoCoinSelected},
		{planner.ErrObjectConsumed, KindObjectConsumed},
		{fmt.Errorf("%w: suix_getCoins: boom", ledger.ErrExternalCall), KindExternalCall},
		{ledger.ErrMalformed, KindExternalCall},
		{inventory.ErrStale, KindStale},
		{ErrExecutionFailed, KindExecutionFailed},
		{errors.New("other"), KindInternal},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
	require.True(t, KindInsufficientBalance.Validation())
	require.False(t, KindExternalCall.Validation())
}
