package gas

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Klingon-tech/coinforge/internal/ledger"
	klog "github.com/Klingon-tech/coinforge/internal/log"
)

// DefaultPollInterval is how often the reference gas price is refreshed.
const DefaultPollInterval = 60 * time.Second

// PriceSource is the part of ledger.Reader the watcher needs.
type PriceSource interface {
	GetReferenceGasPrice(ctx context.Context) (uint64, error)
}

var _ PriceSource = (ledger.Reader)(nil)

// Watcher keeps the latest reference gas price. It runs on its own timer and
// never touches inventory or plan state.
type Watcher struct {
	src      PriceSource
	interval time.Duration
	price    atomic.Uint64
	updated  atomic.Int64 // unix nanos of last successful poll

	// OnUpdate, if set before Run, is called after every poll.
	OnUpdate func(price uint64, err error)
}

// NewWatcher creates a watcher polling src every interval.
func NewWatcher(src PriceSource, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{src: src, interval: interval}
}

// Price returns the last known price, or 0 if none is known yet.
func (w *Watcher) Price() uint64 {
	return w.price.Load()
}

// UpdatedAt returns when the price was last refreshed successfully.
func (w *Watcher) UpdatedAt() time.Time {
	ns := w.updated.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Estimate is EstimateFromBudget at the last known price.
func (w *Watcher) Estimate(budget uint64) string {
	return EstimateFromBudget(w.Price(), budget)
}

// Poll fetches the price once. A failed poll keeps the previous price.
func (w *Watcher) Poll(ctx context.Context) (uint64, error) {
	p, err := w.src.GetReferenceGasPrice(ctx)
	if err == nil {
		w.price.Store(p)
		w.updated.Store(time.Now().UnixNano())
	} else {
		klog.Gas.Warn().Err(err).Msg("Gas price poll failed")
	}
	if w.OnUpdate != nil {
		w.OnUpdate(p, err)
	}
	return p, err
}

// Run polls immediately and then every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	klog.Gas.Debug().Dur("interval", w.interval).Msg("Gas price watcher started")
	_, _ = w.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			klog.Gas.Debug().Msg("Gas price watcher stopped")
			return
		case <-ticker.C:
			_, _ = w.Poll(ctx)
		}
	}
}
