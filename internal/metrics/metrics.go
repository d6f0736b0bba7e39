// Package metrics defines the Prometheus collectors for portal conversions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stalker2m3u"

var (
	// PortalRequestsTotal counts portal calls by action and outcome
	// (ok, http_error, transport_error, malformed).
	PortalRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "portal_requests_total",
		Help:      "Portal HTTP calls, by action and outcome.",
	}, []string{"action", "outcome"})

	// ConversionsTotal counts finished conversions by outcome.
	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversions_total",
		Help:      "Finished conversions, by outcome (success, invalid, failed).",
	}, []string{"outcome"})

	// ConversionDuration observes end-to-end conversion latency.
	ConversionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "conversion_duration_seconds",
		Help:      "Wall time of successful conversions.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	// ItemsEmittedTotal counts playlist entries produced, by media type.
	ItemsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_emitted_total",
		Help:      "Playlist entries emitted, by media type.",
	}, []string{"media_type"})

	// ResolutionMissesTotal counts VOD items dropped because create_link
	// returned no URL.
	ResolutionMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_resolution_misses_total",
		Help:      "VOD items dropped because their stream link could not be resolved.",
	}, []string{"media_type"})

	// JobsQueued counts async conversion jobs pushed onto the queue.
	JobsQueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_queued_total",
		Help:      "Async conversion jobs enqueued.",
	})
)
