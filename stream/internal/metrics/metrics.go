package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inbound message metrics
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openframe_stream_messages_total",
			Help: "Total number of CDC messages handled, by consumer and result",
		},
		[]string{"consumer", "result"},
	)

	MessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openframe_stream_message_duration_seconds",
			Help:    "Duration of end-to-end processing of one CDC message in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"consumer"},
	)

	UnresolvedSources = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openframe_stream_unresolved_sources_total",
			Help: "Total number of messages skipped because their source database is not integrated",
		},
		[]string{"database"},
	)

	// Delivery metrics
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openframe_stream_deliveries_total",
			Help: "Total number of route deliveries, by route and status",
		},
		[]string{"route", "destination", "status"},
	)

	SinkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openframe_stream_sink_duration_seconds",
			Help:    "Duration of sink push operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"destination"},
	)

	// Enrichment metrics
	EnrichmentLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openframe_stream_enrichment_lookups_total",
			Help: "Total number of agent to machine lookups, by result",
		},
		[]string{"result"},
	)

	// Dead-letter metrics
	DLQWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openframe_stream_dlq_writes_total",
			Help: "Total number of messages written to the dead-letter queue",
		},
		[]string{"reason"},
	)

	DLQErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "openframe_stream_dlq_errors_total",
			Help: "Total number of failed dead-letter writes",
		},
	)
)
