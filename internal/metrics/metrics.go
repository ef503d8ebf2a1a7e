package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the maker engine.
type Metrics struct {
	CyclesTotal     prometheus.Counter
	CycleErrors     prometheus.Counter
	CycleDur        prometheus.Histogram
	OrdersSubmitted prometheus.Counter
	OrdersCanceled  prometheus.Counter
	OrdersSkipped   prometheus.Counter
	FillsObserved   prometheus.Counter
	ForceResyncs    prometheus.Counter

	Collateral    prometheus.Gauge
	TrackedOrders prometheus.Gauge
	Position      *prometheus.GaugeVec // labels: symbol
	TargetPos     *prometheus.GaugeVec // labels: symbol
}

// New registers all engine metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all engine metrics on the given registry. Tests use
// a private registry so metric names never collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botmaker_cycles_total",
			Help: "Total reconciliation cycles completed",
		}),
		CycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botmaker_cycle_errors_total",
			Help: "Cycles aborted by an error",
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "botmaker_cycle_duration_seconds",
			Help:    "Wall time per reconciliation cycle",
			Buckets: prometheus.DefBuckets,
		}),
		OrdersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botmaker_orders_submitted_total",
			Help: "Orders successfully submitted to the exchange",
		}),
		OrdersCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botmaker_orders_canceled_total",
			Help: "Cancel requests issued",
		}),
		OrdersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botmaker_orders_skipped_total",
			Help: "Planned orders dropped as below tradable granularity",
		}),
		FillsObserved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botmaker_fills_observed_total",
			Help: "Nonzero fill deltas observed during order sync",
		}),
		ForceResyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botmaker_force_resyncs_total",
			Help: "Cycles where positions were rebuilt from the exchange",
		}),
		Collateral: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "botmaker_collateral",
			Help: "Account collateral in quote currency",
		}),
		TrackedOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "botmaker_tracked_orders",
			Help: "Orders currently tracked by the engine",
		}),
		Position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "botmaker_position_contracts",
			Help: "Current exchange position per instrument",
		}, []string{"symbol"}),
		TargetPos: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "botmaker_target_contracts",
			Help: "Computed target position per instrument",
		}, []string{"symbol"}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleErrors,
		m.CycleDur,
		m.OrdersSubmitted,
		m.OrdersCanceled,
		m.OrdersSkipped,
		m.FillsObserved,
		m.ForceResyncs,
		m.Collateral,
		m.TrackedOrders,
		m.Position,
		m.TargetPos,
	)
	return m
}
