// Package metrics exposes Prometheus instrumentation for the indexer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsProcessed counts contract events handled by the projection engine,
	// labeled by event name and outcome (applied, skipped, error).
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrow_indexer",
		Name:      "events_processed_total",
		Help:      "Contract events handled by the projection engine",
	}, []string{"event", "result"})

	// LogsDropped counts logs discarded because a delivery batch carried
	// more than one entry.
	LogsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrow_indexer",
		Name:      "logs_dropped_total",
		Help:      "Logs discarded from multi-entry delivery batches",
	}, []string{"event"})

	// LastSeenBlock tracks the most recent block number observed per event.
	LastSeenBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "escrow_indexer",
		Name:      "last_seen_block",
		Help:      "Most recent block number observed per event",
	}, []string{"event"})

	// QueryRequests counts query API requests by route and status code.
	QueryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrow_indexer",
		Name:      "query_requests_total",
		Help:      "Query API requests by route and status",
	}, []string{"route", "status"})
)
