package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Klingon-tech/coinforge/internal/assembler"
	"github.com/Klingon-tech/coinforge/internal/gas"
	"github.com/Klingon-tech/coinforge/internal/inventory"
	"github.com/Klingon-tech/coinforge/internal/metrics"
	"github.com/Klingon-tech/coinforge/internal/notify"
	"github.com/Klingon-tech/coinforge/internal/planner"
	"github.com/Klingon-tech/coinforge/internal/queue"
	"github.com/Klingon-tech/coinforge/internal/units"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

// RemainderInsufficient marks a split task that cannot be covered.
const RemainderInsufficient = "Insufficient"

// RebatePlaces is the precision of displayed storage rebates.
const RebatePlaces = 6

// TaskPreview is one queued task as it would be sent.
type TaskPreview struct {
	Entry queue.Entry
	// Remainder is what a split task leaves of the type's balance, in
	// display units, or RemainderInsufficient. Empty for other kinds.
	Remainder string
}

// Preview describes the transaction Send would build right now.
type Preview struct {
	Tasks     []TaskPreview
	Plan      *planner.Plan
	GasBudget uint64
	GasPrice  uint64
	// Estimate is budget × price, or gas.Placeholder while the price is unknown.
	Estimate string
	// Simulated is the dry-run net cost, or gas.Placeholder.
	Simulated string
	// Rebate is the estimated storage rebate of destroyed coins, if any.
	Rebate      string
	Fingerprint types.Hash
}

// Preview plans the queue against the current snapshot and estimates its
// cost. A failed simulation only degrades the estimate.
func (s *Session) Preview(ctx context.Context) (*Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.queue.List()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		s.fail("", snap, ErrEmptyQueue)
		return nil, ErrEmptyQueue
	}
	plan, err := s.plan(snap, entryTasks(entries))
	if err != nil {
		s.fail("", snap, err)
		return nil, err
	}

	budget := plan.GasBudget(s.budgets)
	price := s.gasPrice(ctx)
	p := &Preview{
		Plan:        plan,
		GasBudget:   budget,
		GasPrice:    price,
		Estimate:    gas.EstimateFromBudget(price, budget),
		Simulated:   gas.Placeholder,
		Fingerprint: snap.Fingerprint(),
	}
	for _, e := range entries {
		p.Tasks = append(p.Tasks, TaskPreview{Entry: e, Remainder: remainder(snap, e.Task)})
	}
	if len(plan.Destroyed) > 0 {
		p.Rebate = gas.FormatAmount(plan.Rebate(), RebatePlaces)
	}
	if s.simulate && s.signer != nil {
		if d, err := assembler.Build(plan, budget); err == nil {
			p.Simulated = s.dryRun(ctx, d)
		}
	}
	return p, nil
}

func remainder(snap *inventory.Snapshot, task planner.Task) string {
	t, ok := task.(planner.SplitTask)
	if !ok {
		return ""
	}
	meta := metaFor(snap, t.CoinType)
	rest, ok := planner.SplitRemainder(meta.TotalBalance, t.Pieces, t.AmountEach)
	if !ok {
		return RemainderInsufficient
	}
	return units.ToHuman(rest, meta.Decimals, NotifyDetailPlaces) + " " + meta.Symbol
}

// gasPrice returns the watcher's price, or asks the ledger once. An unknown
// price is 0.
func (s *Session) gasPrice(ctx context.Context) uint64 {
	if s.gas != nil {
		if p := s.gas.Price(); p > 0 {
			return p
		}
	}
	p, err := s.env.Ledger.GetReferenceGasPrice(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Gas price unavailable")
		return 0
	}
	return p
}

// dryRun simulates d and returns the net cost, or gas.Placeholder.
func (s *Session) dryRun(ctx context.Context, d *assembler.Descriptor) string {
	dr, err := s.signer.Simulate(ctx, d)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Simulation unavailable")
		return gas.Placeholder
	}
	est, err := gas.EstimateFromSimulation(dr)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Simulation unavailable")
		return gas.Placeholder
	}
	return est
}

// Send plans every queued task into one transaction against the snapshot
// held when Send starts, then simulates, submits and waits for effects.
// On success the tasks are consumed and the inventory refreshed. On failure
// the queue is left as it was.
func (s *Session) Send(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return errResult(err)
	}
	entries, err := s.queue.List()
	if err != nil {
		return errResult(err)
	}
	if len(entries) == 0 {
		s.fail("", snap, ErrEmptyQueue)
		return errResult(ErrEmptyQueue)
	}
	plan, err := s.plan(snap, entryTasks(entries))
	if err != nil {
		s.fail("", snap, err)
		return errResult(err)
	}

	res := s.execute(ctx, plan, plan.GasBudget(s.budgets))
	if !res.Ok {
		s.fail("", snap, res.Err)
		return res
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := s.queue.MarkSent(ids); err != nil {
		s.logger.Error().Err(err).Str("digest", res.Digest).Msg("Sent tasks could not be removed from the queue")
	}
	s.notifier.Notify(notify.Notification{Level: notify.Success, Title: "Transaction sent", Detail: res.Digest})
	s.refreshAfterSend(ctx)
	return res
}

// execute assembles plan and runs it through the signer.
func (s *Session) execute(ctx context.Context, plan *planner.Plan, budget uint64) Result {
	if s.signer == nil {
		return errResult(ErrNoSigner)
	}
	d, err := assembler.Build(plan, budget)
	if err != nil {
		return errResult(err)
	}

	if est := s.dryRun(ctx, d); est != gas.Placeholder {
		s.logger.Debug().Str("estimate", est).Msg("Simulation succeeded")
	}

	digest, err := s.signer.Submit(ctx, d)
	if err != nil {
		metrics.ObserveSubmission("error")
		return errResult(err)
	}
	s.logger.Info().Str("digest", digest).Int("ops", len(plan.Ops)).Msg("Transaction submitted")

	fx, err := s.signer.WaitForEffects(ctx, digest)
	if err != nil {
		metrics.ObserveSubmission("error")
		return errResult(err)
	}
	if !fx.Success {
		metrics.ObserveSubmission("failure")
		res := errResult(fmt.Errorf("%w: %s", ErrExecutionFailed, fx.Error))
		res.Digest = fx.Digest
		res.Effects = fx
		return res
	}
	metrics.ObserveSubmission("success")
	return okResult(fx)
}

// refreshAfterSend reloads the inventory once a transaction is final.
func (s *Session) refreshAfterSend(ctx context.Context) {
	s.inv.Reset()
	if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, inventory.ErrStale) {
		s.logger.Warn().Err(err).Msg("Refresh after send failed")
	}
}

func entryTasks(entries []queue.Entry) []planner.Task {
	tasks := make([]planner.Task, len(entries))
	for i, e := range entries {
		tasks[i] = e.Task
	}
	return tasks
}
