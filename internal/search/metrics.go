package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Record stages counted by Metrics.
const (
	StageFetched  = "fetched"
	StageRelevant = "relevant"
	StageKept     = "kept"
)

// Metrics bundles Prometheus collectors for the orchestrator. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Registry     *prometheus.Registry
	PairsTotal   *prometheus.CounterVec
	RecordsTotal *prometheus.CounterVec
	TiersTotal   *prometheus.CounterVec
	PairDuration prometheus.Histogram
	SearchesRun  prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pairs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adscout_pairs_total",
			Help: "Keyword/country pairs scraped, by outcome.",
		},
		[]string{"outcome"},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adscout_records_total",
			Help: "Ad records seen by pipeline stage.",
		},
		[]string{"stage"},
	)
	tiers := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adscout_tiers_total",
			Help: "Kept ad records by classification tier.",
		},
		[]string{"tier"},
	)
	pairDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adscout_pair_duration_seconds",
			Help:    "Time spent fetching one keyword/country pair.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 240},
		},
	)
	searches := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adscout_searches_total",
			Help: "Searches orchestrated.",
		},
	)

	registry.MustRegister(pairs, records, tiers, pairDuration, searches)

	return &Metrics{
		Registry:     registry,
		PairsTotal:   pairs,
		RecordsTotal: records,
		TiersTotal:   tiers,
		PairDuration: pairDuration,
		SearchesRun:  searches,
	}
}

// IncPair counts a pair by outcome ("ok", "transient", "terminal").
func (m *Metrics) IncPair(outcome string) {
	if m == nil {
		return
	}
	m.PairsTotal.WithLabelValues(outcome).Inc()
}

// AddRecords adds n to a stage counter.
func (m *Metrics) AddRecords(stage string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsTotal.WithLabelValues(stage).Add(float64(n))
}

// IncTier counts a kept record's tier.
func (m *Metrics) IncTier(tier string) {
	if m == nil {
		return
	}
	m.TiersTotal.WithLabelValues(tier).Inc()
}

// ObservePair records a pair fetch duration.
func (m *Metrics) ObservePair(d time.Duration) {
	if m == nil {
		return
	}
	m.PairDuration.Observe(d.Seconds())
}

// IncSearch counts a completed orchestration.
func (m *Metrics) IncSearch() {
	if m == nil {
		return
	}
	m.SearchesRun.Inc()
}
