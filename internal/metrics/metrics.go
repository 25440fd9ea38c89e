package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hxuan190/stableswap-engine/pkg/stableswap"
)

const (
	SolverInvariant = "invariant"
	SolverOutput    = "output"
)

var (
	// Solver metrics
	SolverIterations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stableswap_solver_iterations",
			Help:    "Iterations used per solver run",
			Buckets: []float64{1, 2, 3, 5, 8, 15, 32, 64, 128, 255},
		},
		[]string{"solver"},
	)

	SolverNonConverged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stableswap_solver_non_converged_total",
			Help: "Total number of solver runs that hit the iteration cap",
		},
		[]string{"solver"},
	)

	// Pool operation metrics
	PoolOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stableswap_pool_operations_total",
			Help: "Total number of pool operations",
		},
		[]string{"op", "status"},
	)

	PoolOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stableswap_pool_operation_duration_seconds",
			Help:    "Pool operation duration in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
		[]string{"op"},
	)

	// Quote cache metrics
	QuoteCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stableswap_quote_cache_hits_total",
		Help: "Total number of quote cache hits",
	})

	QuoteCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stableswap_quote_cache_misses_total",
		Help: "Total number of quote cache misses",
	})

	PriceImpact = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stableswap_price_impact_bps",
			Help:    "Price impact in basis points",
			Buckets: []float64{0, 10, 50, 100, 300, 500, 1000, 5000, 10000},
		},
		[]string{"severity"},
	)

	VirtualPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stableswap_virtual_price",
			Help: "Pool invariant per liquidity share, in reference token units",
		},
		[]string{"pool"},
	)
)

// ObserveSolver records one solver run.
func ObserveSolver(solver string, est stableswap.Estimate) {
	SolverIterations.WithLabelValues(solver).Observe(float64(est.Iterations))
	if !est.Converged {
		SolverNonConverged.WithLabelValues(solver).Inc()
	}
}

// ObserveOperation records the outcome and latency of a pool operation started at start.
func ObserveOperation(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	PoolOperations.WithLabelValues(op, status).Inc()
	PoolOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
