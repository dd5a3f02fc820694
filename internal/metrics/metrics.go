// Package metrics exposes collector counters to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tft"

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	runs            *prometheus.CounterVec
	matchesInserted prometheus.Counter
	matchesSkipped  prometheus.Counter
	ledgerRecords   prometheus.Counter
	playersUpserted *prometheus.CounterVec
	apiCalls        *prometheus.CounterVec
	apiLatency      *prometheus.HistogramVec
}

// NewRegistry returns a registry without the default process collectors.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func New(registry *prometheus.Registry) *Metrics {
	auto := promauto.With(registry)

	return &Metrics{
		runs: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "runs_total",
			Help:      "Collection runs by type and final status",
		}, []string{"type", "status"}),
		matchesInserted: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "matches_inserted_total",
			Help:      "Matches newly written to the archive",
		}),
		matchesSkipped: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "matches_duplicate_total",
			Help:      "Match inserts that found the id already archived",
		}),
		ledgerRecords: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "records_total",
			Help:      "New (player, match) pairs recorded in the collection ledger",
		}),
		playersUpserted: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ladder",
			Name:      "players_upserted_total",
			Help:      "Ladder snapshot writes by outcome",
		}, []string{"outcome"}),
		apiCalls: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "riot",
			Name:      "requests_total",
			Help:      "Upstream API requests by endpoint and status code",
		}, []string{"endpoint", "status"}),
		apiLatency: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "riot",
			Name:      "request_duration_seconds",
			Help:      "Upstream API latency by endpoint",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) RunFinished(runType, status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(runType, status).Inc()
}

func (m *Metrics) MatchStored(inserted bool) {
	if m == nil {
		return
	}
	if inserted {
		m.matchesInserted.Inc()
		return
	}
	m.matchesSkipped.Inc()
}

func (m *Metrics) LedgerRecorded() {
	if m == nil {
		return
	}
	m.ledgerRecords.Inc()
}

func (m *Metrics) PlayersUpserted(inserted, updated int) {
	if m == nil {
		return
	}
	m.playersUpserted.WithLabelValues("inserted").Add(float64(inserted))
	m.playersUpserted.WithLabelValues("updated").Add(float64(updated))
}

// APICall records one upstream request; status 0 means no response arrived.
func (m *Metrics) APICall(endpoint string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.apiLatency.WithLabelValues(endpoint).Observe(seconds)
}
