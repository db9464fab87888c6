package session

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/coinforge/internal/gas"
	"github.com/Klingon-tech/coinforge/internal/inventory"
	"github.com/Klingon-tech/coinforge/internal/notify"
	"github.com/Klingon-tech/coinforge/internal/planner"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

// DustScan lists the owner's zero-balance coins, up to the destroy cap.
type DustScan struct {
	Coins  []types.Coin
	Groups []inventory.ZeroGroup
	// Rebate is the estimated storage rebate in gas-coin display units.
	Rebate string
}

// ScanDust finds zero-balance coins that BurnDust would destroy.
func (s *Session) ScanDust(ctx context.Context) (*DustScan, error) {
	coins, err := s.inv.FindZeroBalanceObjects(ctx, s.maxDestroy)
	if err != nil {
		s.fail("Failed to scan coins", nil, err)
		return nil, err
	}
	return &DustScan{
		Coins:  coins,
		Groups: inventory.GroupZeroByType(coins),
		Rebate: gas.FormatAmount(planner.EstimateRebate(len(coins)), RebatePlaces),
	}, nil
}

// BurnDust destroys up to the configured cap of zero-balance coins in one
// transaction. It runs immediately and does not touch the task queue.
func (s *Session) BurnDust(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	coins, err := s.inv.FindZeroBalanceObjects(ctx, s.maxDestroy)
	if err != nil {
		s.fail("Failed to scan coins", nil, err)
		return errResult(err)
	}
	if len(coins) == 0 {
		err := fmt.Errorf("%w: no zero-balance coins", planner.ErrNoCoinSelected)
		s.fail("", nil, err)
		return errResult(err)
	}

	res := s.runImmediate(ctx, planner.DestroyZeroTask{Objects: coins, MaxCount: s.maxDestroy})
	if !res.Ok {
		return res
	}
	n := min(len(coins), s.maxDestroy)
	s.notifier.Notify(notify.Notification{
		Level: notify.Success,
		Title: fmt.Sprintf("Destroyed %d zero-balance coin(s)", n),
		Detail: fmt.Sprintf("Estimated rebate: %s %s",
			gas.FormatAmount(planner.EstimateRebate(n), RebatePlaces), types.GasCoinType.Name()),
	})
	s.refreshAfterSend(ctx)
	return res
}

// TransferObjects sends whole objects to recipient in one transaction. It
// runs immediately and does not touch the task queue.
func (s *Session) TransferObjects(ctx context.Context, ids []types.ObjectID, recipient types.Address) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.runImmediate(ctx, planner.ObjectTransferTask{ObjectIDs: ids, Recipient: recipient})
	if !res.Ok {
		return res
	}
	s.notifier.Notify(notify.Notification{
		Level:  notify.Success,
		Title:  fmt.Sprintf("Transferred %d object(s)", len(ids)),
		Detail: res.Digest,
	})
	s.refreshAfterSend(ctx)
	return res
}

// runImmediate plans a single task on its own and executes it. The task
// names its objects explicitly, so it is planned against an empty view.
func (s *Session) runImmediate(ctx context.Context, task planner.Task) Result {
	snap := inventory.NewSnapshot(s.env.Owner)
	plan, err := s.plan(snap, []planner.Task{task})
	if err != nil {
		s.fail("", snap, err)
		return errResult(err)
	}
	res := s.execute(ctx, plan, plan.GasBudget(s.budgets))
	if !res.Ok {
		s.fail("", snap, res.Err)
	}
	return res
}
