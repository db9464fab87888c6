// Package session is the user-facing orchestrator. It owns the task queue,
// keeps the inventory snapshot that plans are checked against, and turns
// every outcome into a single notification.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/coinforge/internal/assembler"
	"github.com/Klingon-tech/coinforge/internal/gas"
	"github.com/Klingon-tech/coinforge/internal/inventory"
	"github.com/Klingon-tech/coinforge/internal/ledger"
	klog "github.com/Klingon-tech/coinforge/internal/log"
	"github.com/Klingon-tech/coinforge/internal/metrics"
	"github.com/Klingon-tech/coinforge/internal/notify"
	"github.com/Klingon-tech/coinforge/internal/planner"
	"github.com/Klingon-tech/coinforge/internal/queue"
	"github.com/Klingon-tech/coinforge/internal/units"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

// Env is the wallet context every operation runs against.
type Env struct {
	Owner  types.Address
	Ledger ledger.Reader
}

// Config tunes a Session. Zero fields take defaults.
type Config struct {
	Budgets    planner.Budgets
	MaxDestroy int
	Notifier   notify.Notifier
	// Gas supplies the reference price. Without it the price is fetched
	// from the ledger when needed.
	Gas *gas.Watcher
	// Simulate enables a dry run in Preview.
	Simulate bool
}

// Session ties one owner's inventory to its task queue.
type Session struct {
	env        Env
	inv        *inventory.Inventory
	queue      *queue.Queue
	signer     assembler.Signer
	notifier   notify.Notifier
	budgets    planner.Budgets
	maxDestroy int
	gas        *gas.Watcher
	simulate   bool
	logger     zerolog.Logger

	// mu serializes queue mutations and submissions.
	mu sync.Mutex
}

// New creates a session. signer may be nil for read-only use; operations
// that submit then fail with ErrNoSigner.
func New(env Env, q *queue.Queue, signer assembler.Signer, cfg Config) *Session {
	if cfg.Budgets == (planner.Budgets{}) {
		cfg.Budgets = planner.DefaultBudgets()
	}
	if cfg.MaxDestroy <= 0 {
		cfg.MaxDestroy = planner.DefaultMaxDestroy
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Multi{}
	}
	return &Session{
		env:        env,
		inv:        inventory.New(env.Ledger, env.Owner),
		queue:      q,
		signer:     signer,
		notifier:   cfg.Notifier,
		budgets:    cfg.Budgets,
		maxDestroy: cfg.MaxDestroy,
		gas:        cfg.Gas,
		simulate:   cfg.Simulate,
		logger:     klog.Session.With().Str("owner", env.Owner.Short()).Logger(),
	}
}

// Owner returns the session's wallet address.
func (s *Session) Owner() types.Address {
	return s.env.Owner
}

// Inventory exposes the underlying inventory.
func (s *Session) Inventory() *inventory.Inventory {
	return s.inv
}

// ── Inventory ───────────────────────────────────────────────────────

// Refresh reloads every holding from the ledger and makes it the current
// snapshot. A refresh overtaken by Reset returns inventory.ErrStale and
// changes nothing.
func (s *Session) Refresh(ctx context.Context) (*inventory.Snapshot, error) {
	start := time.Now()
	snap, err := s.inv.AggregateBalances(ctx)
	if errors.Is(err, inventory.ErrStale) {
		return nil, err
	}
	if err != nil {
		s.fail("Failed to load balances", nil, err)
		return nil, err
	}
	metrics.ObserveRefresh(snap.ObjectCount(), time.Since(start))
	return snap, nil
}

// Reset drops the current snapshot. Fetches still in flight are discarded.
func (s *Session) Reset() {
	s.inv.Reset()
}

// snapshot returns the current snapshot, loading one if needed.
func (s *Session) snapshot(ctx context.Context) (*inventory.Snapshot, error) {
	if snap := s.inv.Snapshot(); snap != nil {
		return snap, nil
	}
	return s.Refresh(ctx)
}

// Holdings lists the owner's coin types matching filter and search.
func (s *Session) Holdings(ctx context.Context, filter inventory.Filter, search string) ([]types.CoinMeta, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Filter(filter, search), nil
}

// Coins lists every coin object of coinType, fresh from the ledger.
func (s *Session) Coins(ctx context.Context, coinType types.CoinType) ([]types.Coin, error) {
	return s.inv.ListCoinObjects(ctx, coinType)
}

// OwnedObjects lists the owner's objects, optionally narrowed to one struct type.
func (s *Session) OwnedObjects(ctx context.Context, structType string) ([]ledger.OwnedObject, error) {
	var filter *ledger.ObjectFilter
	if structType != "" {
		filter = &ledger.ObjectFilter{StructType: structType}
	}
	return s.inv.OwnedObjects(ctx, filter)
}

// Meta returns display metadata for coinType from the current snapshot.
func (s *Session) Meta(ctx context.Context, coinType types.CoinType) (types.CoinMeta, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return types.CoinMeta{}, err
	}
	return metaFor(snap, coinType), nil
}

// ── Task queue ──────────────────────────────────────────────────────

// Tasks returns the queued entries in creation order.
func (s *Session) Tasks() ([]queue.Entry, error) {
	return s.queue.List()
}

// AddTask checks task against the current snapshot, together with every
// task already queued, and queues it. Nothing is queued on error.
func (s *Session) AddTask(ctx context.Context, task planner.Task) (queue.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := task.Validate(); err != nil {
		s.fail("", nil, err)
		return queue.Entry{}, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return queue.Entry{}, err
	}
	queued, err := s.queue.Tasks()
	if err != nil {
		return queue.Entry{}, err
	}
	if _, err := s.plan(snap, append(queued, task)); err != nil {
		s.fail("", snap, err)
		return queue.Entry{}, err
	}

	entry, err := s.queue.Add(task, describe(snap, task))
	if err != nil {
		return queue.Entry{}, err
	}
	s.notifier.Notify(notify.Notification{Level: notify.Info, Title: "Task added", Detail: entry.Summary})
	return entry, nil
}

// RemoveTask clears one queued task.
func (s *Session) RemoveTask(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.queue.Remove(id); err != nil {
		return err
	}
	s.notifier.Notify(notify.Notification{Level: notify.Info, Title: "Task removed"})
	return nil
}

// ClearTasks clears the whole queue and resets the inventory, so results of
// fetches still in flight are ignored.
func (s *Session) ClearTasks() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.queue.Clear()
	if err != nil {
		return 0, err
	}
	s.inv.Reset()
	s.notifier.Notify(notify.Notification{
		Level:  notify.Info,
		Title:  "Queue cleared",
		Detail: fmt.Sprintf("%d task(s) removed", n),
	})
	return n, nil
}

// plan composes tasks into one batch over snap.
func (s *Session) plan(snap *inventory.Snapshot, tasks []planner.Task) (*planner.Plan, error) {
	batch := planner.NewBatch(snap)
	for _, t := range tasks {
		if err := batch.Add(t); err != nil {
			metrics.ObservePlan(string(Classify(err)), 0)
			return nil, fmt.Errorf("%s: %w", t, err)
		}
	}
	p := batch.Plan()
	metrics.ObservePlan("ok", len(p.Ops))
	s.logger.Debug().Int("tasks", len(tasks)).Int("ops", len(p.Ops)).Msg("Plan built")
	return p, nil
}

// ── Notifications ───────────────────────────────────────────────────

// fail emits one failure notification. An empty title is derived from the
// error's kind. snap, when given, supplies display units for amounts.
func (s *Session) fail(title string, snap *inventory.Snapshot, err error) {
	kind := Classify(err)
	if title == "" {
		title = kind.title()
	}
	detail := err.Error()
	var ie *planner.InsufficientError
	if errors.As(err, &ie) && snap != nil {
		detail = insufficientDetail(snap, ie)
	}
	if kind.Validation() {
		s.logger.Debug().Err(err).Msg(title)
	} else {
		s.logger.Warn().Err(err).Msg(title)
	}
	s.notifier.Notify(notify.Notification{Level: notify.Failure, Title: title, Detail: detail})
}

// NotifyDetailPlaces is the precision of amounts in notification details.
const NotifyDetailPlaces = 4

func insufficientDetail(snap *inventory.Snapshot, ie *planner.InsufficientError) string {
	meta := metaFor(snap, ie.CoinType)
	f := func(v types.Amount) string {
		return units.ToHuman(v, meta.Decimals, NotifyDetailPlaces) + " " + meta.Symbol
	}
	return fmt.Sprintf("Current balance: %s, required: %s, shortfall: %s",
		f(ie.Available), f(ie.Required), f(ie.Shortfall()))
}

// ── Display ─────────────────────────────────────────────────────────

func metaFor(snap *inventory.Snapshot, ct types.CoinType) types.CoinMeta {
	if snap != nil {
		if m, ok := snap.Meta(ct); ok {
			return m
		}
	}
	return inventory.BuildMeta(ct, nil, nil)
}

// humanAmount renders base units at full precision without trailing zeros.
func humanAmount(v types.Amount, decimals uint8) string {
	s := units.ToHuman(v, decimals, int(decimals))
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// describe is the queue summary of task, with amounts in display units.
func describe(snap *inventory.Snapshot, task planner.Task) string {
	switch t := task.(type) {
	case planner.MergeTask:
		meta := metaFor(snap, t.CoinType)
		if t.MergeAll {
			return fmt.Sprintf("Merge all %s objects into one", meta.Symbol)
		}
		return fmt.Sprintf("Merge %d %s objects into one", t.SourceCount+1, meta.Symbol)
	case planner.SplitTask:
		meta := metaFor(snap, t.CoinType)
		return fmt.Sprintf("Split %d × %s %s", t.Pieces, humanAmount(t.AmountEach, meta.Decimals), meta.Symbol)
	case planner.TransferTask:
		meta := metaFor(snap, t.CoinType)
		total := humanAmount(t.Required(), meta.Decimals)
		if len(t.Recipients) == 1 {
			return fmt.Sprintf("Send %s %s to %s", total, meta.Symbol, t.Recipients[0].Address.Short())
		}
		mode := ""
		if t.EqualSplit {
			mode = ", split equally"
		}
		return fmt.Sprintf("Send %s %s to %d recipients%s", total, meta.Symbol, len(t.Recipients), mode)
	case planner.ObjectTransferTask:
		return fmt.Sprintf("Send %d object(s) to %s", len(t.ObjectIDs), t.Recipient.Short())
	case planner.DestroyZeroTask:
		return fmt.Sprintf("Destroy %d zero-balance coin(s)", min(len(t.Objects), t.MaxCount))
	default:
		return task.String()
	}
}
