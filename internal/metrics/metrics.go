package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sma_trader_cycles_total",
			Help: "Trading cycles by result (ok, error, panic).",
		},
		[]string{"result"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sma_trader_orders_total",
			Help: "Market orders by side and mode (live, dry_run).",
		},
		[]string{"side", "mode"},
	)

	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sma_trader_signals_total",
			Help: "Strategy signals by side.",
		},
		[]string{"side"},
	)

	FastAverage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sma_trader_fast_average",
			Help: "Fast moving average of the last evaluated cycle.",
		},
	)

	SlowAverage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sma_trader_slow_average",
			Help: "Slow moving average of the last evaluated cycle.",
		},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sma_trader_cycle_duration_seconds",
			Help:    "Wall time of one evaluate/execute cycle.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(Cycles, Orders, Signals, FastAverage, SlowAverage, CycleDuration)
}

// OrderMode is the mode label for the orders counter.
func OrderMode(simulated bool) string {
	if simulated {
		return "dry_run"
	}
	return "live"
}
