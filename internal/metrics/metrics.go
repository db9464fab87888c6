// Package metrics exposes Prometheus collectors for ledger calls, plans,
// submissions and the gas price.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	klog "github.com/Klingon-tech/coinforge/internal/log"
)

const namespace = "coinforge"

var (
	// Ledger JSON-RPC calls
	ledgerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "calls_total",
			Help:      "Total number of ledger RPC calls",
		},
		[]string{"method", "status"}, // status: ok/error
	)

	ledgerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "call_duration_seconds",
			Help:      "Ledger RPC latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Inventory refreshes
	inventoryObjects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "coin_objects",
			Help:      "Number of coin objects in the last snapshot",
		},
	)

	inventoryRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of full inventory refreshes",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// Planning
	plansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "plans_total",
			Help:      "Total number of plans built, by outcome",
		},
		[]string{"outcome"}, // ok or the planning error kind
	)

	planOps = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "ops_per_plan",
			Help:      "Number of primitive operations per successful plan",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11), // 1 .. 1024
		},
	)

	// Submissions
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signer",
			Name:      "submissions_total",
			Help:      "Total number of submitted transactions, by outcome",
		},
		[]string{"outcome"}, // success/failure/error
	)

	// Gas
	gasPrice = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gas",
			Name:      "reference_price",
			Help:      "Last observed reference gas price",
		},
	)

	gasPollErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gas",
			Name:      "poll_errors_total",
			Help:      "Total number of failed gas price polls",
		},
	)
)

// Register registers every collector with reg, plus Go and process
// collectors. Already-registered collectors are skipped.
func Register(reg prometheus.Registerer) {
	registerIfNotExists(reg, collectors.NewGoCollector(), "go_collector")
	registerIfNotExists(reg, collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), "process_collector")

	registerIfNotExists(reg, ledgerCallsTotal, "ledger_calls_total")
	registerIfNotExists(reg, ledgerCallDuration, "ledger_call_duration")
	registerIfNotExists(reg, inventoryObjects, "inventory_coin_objects")
	registerIfNotExists(reg, inventoryRefreshDuration, "inventory_refresh_duration")
	registerIfNotExists(reg, plansTotal, "planner_plans_total")
	registerIfNotExists(reg, planOps, "planner_ops_per_plan")
	registerIfNotExists(reg, submissionsTotal, "signer_submissions_total")
	registerIfNotExists(reg, gasPrice, "gas_reference_price")
	registerIfNotExists(reg, gasPollErrorsTotal, "gas_poll_errors_total")
}

func registerIfNotExists(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			klog.Logger.Debug().Str("collector", name).Msg("Collector already registered")
			return
		}
		klog.Logger.Error().Err(err).Str("collector", name).Msg("Failed to register collector")
	}
}

// ObserveRPC records one ledger call. Its signature matches rpcclient.Observer.
func ObserveRPC(method string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ledgerCallsTotal.WithLabelValues(method, status).Inc()
	ledgerCallDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRefresh records a completed inventory refresh.
func ObserveRefresh(objects int, elapsed time.Duration) {
	inventoryObjects.Set(float64(objects))
	inventoryRefreshDuration.Observe(elapsed.Seconds())
}

// ObservePlan records a planning outcome. outcome is "ok" for a built plan.
func ObservePlan(outcome string, ops int) {
	plansTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		planOps.Observe(float64(ops))
	}
}

// ObserveSubmission records a submission outcome.
func ObserveSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveGasPoll records a gas price poll. Its signature matches gas.Watcher.OnUpdate.
func ObserveGasPoll(price uint64, err error) {
	if err != nil {
		gasPollErrorsTotal.Inc()
		return
	}
	gasPrice.Set(float64(price))
}
