// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decktrack_events_ingested_total",
			Help: "Viewer events received, by kind and result",
		},
		[]string{"kind", "result"}, // result: ok, invalid, error
	)

	StayMerges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decktrack_stay_merges_total",
			Help: "STAY heartbeats by merge outcome",
		},
		[]string{"outcome"}, // updated, appended, conflict
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decktrack_crm_notifications_total",
			Help: "CRM completion notifications by result",
		},
		[]string{"result"}, // sent, failed, skipped
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "decktrack_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	ArchiveFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decktrack_archive_flushes_total",
			Help: "Raw event archive batch flushes by result",
		},
		[]string{"result"},
	)

	ArchiveDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "decktrack_archive_dropped_events_total",
			Help: "Raw events dropped because the archive buffer was full",
		},
	)
)

// RecordIngest counts one ingested event.
func RecordIngest(kind, result string) {
	EventsIngested.WithLabelValues(kind, result).Inc()
}
