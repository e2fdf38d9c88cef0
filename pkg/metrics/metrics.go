package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RiskRecomputes counts recompute attempts by outcome (success, upstream_error, persistence_error)
var RiskRecomputes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tokenrisk_recomputes_total",
		Help: "Total number of risk recomputations by outcome",
	},
	[]string{"outcome"},
)

// RecomputeLatency records latency distribution for a full recompute (probes + scoring)
var RecomputeLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "tokenrisk_recompute_latency_seconds",
		Help:    "Latency in seconds to recompute one token risk record",
		Buckets: prometheus.DefBuckets,
	},
)

// CacheReads counts cache-aside read outcomes (hit, miss, stale)
var CacheReads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tokenrisk_cache_reads_total",
		Help: "Total number of cache-aside reads by result",
	},
	[]string{"result"},
)

// Sweep metrics
var (
	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenrisk_sweep_runs_total",
			Help: "Total number of bulk refresh sweeps by outcome",
		},
		[]string{"outcome"},
	)

	SweepItemFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tokenrisk_sweep_item_failures_total",
			Help: "Total number of per-token failures during bulk refresh sweeps",
		},
	)

	SweepLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenrisk_sweep_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last sweep that committed successfully",
		},
	)
)

// Database connection pool metrics
var (
	DBOpenConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenrisk_db_open_connections",
			Help: "Number of open connections in the DB pool",
		},
		[]string{"db"},
	)

	DBIdleConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenrisk_db_idle_connections",
			Help: "Number of idle connections in the DB pool",
		},
		[]string{"db"},
	)

	DBInUseConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenrisk_db_in_use_connections",
			Help: "Number of in-use connections in the DB pool",
		},
		[]string{"db"},
	)
)

func init() {
	prometheus.MustRegister(RiskRecomputes, RecomputeLatency, CacheReads)
	prometheus.MustRegister(SweepRuns, SweepItemFailures, SweepLastSuccess)
	prometheus.MustRegister(DBOpenConns, DBIdleConns, DBInUseConns)
}
