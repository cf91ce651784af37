// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

// Package metrics declares the relay's Prometheus collectors. They are
// registered on the default registry and served by promhttp at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed relay
	RelayState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_relay_state",
			Help: "1 for the relay's current subscription state, 0 for the others",
		},
		[]string{"state"}, // idle, connecting, subscribed, stopped
	)

	RelayMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_messages_received_total",
			Help: "Total number of broker messages received",
		},
		[]string{"channel"},
	)

	RelayDecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_decode_failures_total",
			Help: "Total number of broker messages dropped because they could not be decoded",
		},
		[]string{"channel"},
	)

	RelayReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_reconnects_total",
			Help: "Total number of broker reconnect attempts after a transport error",
		},
	)

	RelayProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_message_processing_duration_seconds",
			Help:    "Time from receipt to fan-out enqueue for one broker message",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// Recent-event cache
	CacheEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_cache_entries",
			Help: "Current number of entries in the recent-event cache (expired included)",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_cache_evictions_total",
			Help: "Total number of entries pushed out of the recent-event cache at capacity",
		},
	)

	// Broadcast hub
	HubClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Current number of live viewers per room",
		},
		[]string{"room"},
	)

	HubMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of events queued to viewers",
		},
		[]string{"room"},
	)

	HubMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of events not delivered live",
		},
		[]string{"reason"}, // broadcast_full, client_full
	)

	HubConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_rejected_total",
			Help: "Total number of upgrade requests that were not given a room",
		},
		[]string{"reason"}, // bot
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Identity collaborator
	IdentityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_checks_total",
			Help: "Total number of session classifications",
		},
		[]string{"result"}, // active, inactive, no_credential, error, cached
	)

	IdentityCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "identity_check_duration_seconds",
			Help:    "Duration of calls to the identity service",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// System
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// relayStates lists every label RelayState may carry.
var relayStates = []string{"idle", "connecting", "subscribed", "stopped"}

// SetRelayState marks state as current and zeroes the rest.
func SetRelayState(state string) {
	for _, s := range relayStates {
		v := 0.0
		if s == state {
			v = 1
		}
		RelayState.WithLabelValues(s).Set(v)
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordIdentityCheck counts one classification outcome.
func RecordIdentityCheck(result string, duration time.Duration) {
	IdentityChecks.WithLabelValues(result).Inc()
	if duration > 0 {
		IdentityCheckDuration.Observe(duration.Seconds())
	}
}
