/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "airtime"

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_active_connections",
		Help:      "In-flight HTTP requests.",
	})

	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_websocket_connections",
		Help:      "Open event stream websockets.",
	})

	// Show timer
	ShowTimerTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "show_timer_ticks_total",
		Help:      "Show timer ticks evaluated while a show is live.",
	})

	SlotTriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "slot_triggers_total",
		Help:      "Ad slots entered, by slot type and outcome (played, empty).",
	}, []string{"slot_type", "outcome"})

	ShowLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "show_live",
		Help:      "1 while a show timer is running.",
	})

	// Playback
	AdPlaybacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ad_playbacks_total",
		Help:      "Ad playback attempts by content kind and result.",
	}, []string{"kind", "result"})

	// Music requests
	MusicGenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "music_generations_total",
		Help:      "Music generation attempts by result (completed, retry, failed).",
	}, []string{"result"})

	MusicGenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "music_generation_duration_seconds",
		Help:      "Time spent generating one music request.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	MusicQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "music_queue_pending",
		Help:      "Pending music requests seen at the start of the last cycle.",
	})

	// Persistence
	PersistenceSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persistence_saves_total",
		Help:      "Booking store saves by collection key and result.",
	}, []string{"key", "result"})

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "database_query_duration_seconds",
		Help:      "GORM operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "database_errors_total",
		Help:      "GORM operation errors.",
	}, []string{"operation", "reason"})

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "database_connections_active",
		Help:      "Open database connections.",
	})

	// Leadership
	LeaderElectionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "leader_election_status",
		Help:      "1 when this instance holds the lease.",
	}, []string{"instance_id"})

	LeaderElectionChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leader_election_changes_total",
		Help:      "Leadership transitions seen by this instance.",
	}, []string{"instance_id", "transition"})

	// Webhooks
	WebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_deliveries_total",
		Help:      "Outbound webhook deliveries by event type and outcome.",
	}, []string{"event_type", "outcome"})
)

// Handler exposes metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
