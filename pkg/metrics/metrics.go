package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_published_total",
			Help: "Total number of envelopes published to the broker channel (count)",
		},
		[]string{"channel", "status"},
	)

	MessagesRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_rejected_total",
			Help: "Total number of submissions rejected before envelope creation (count)",
		},
		[]string{"reason"},
	)

	MessagesBroadcastTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "socket_messages_broadcast_total",
			Help: "Total number of envelopes fanned out to connected clients (count)",
		},
	)

	ConnectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "socket_connected_clients",
			Help: "Number of currently registered socket clients",
		},
	)

	RecipientDeliveryFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "socket_recipient_delivery_failures_total",
			Help: "Total number of per-recipient delivery failures during fan-out (count)",
		},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limit_requests_total",
			Help: "Total number of requests evaluated by the rate limiter (count)",
		},
		[]string{"result"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

var (
	relayOnce   sync.Once
	socketOnce  sync.Once
	breakerOnce sync.Once
)

func RegisterRelayMetrics() {
	relayOnce.Do(func() {
		prometheus.MustRegister(
			MessagesPublishedTotal,
			MessagesRejectedTotal,
			RateLimitRequestsTotal,
		)
	})
}

func RegisterSocketMetrics() {
	socketOnce.Do(func() {
		prometheus.MustRegister(
			MessagesBroadcastTotal,
			ConnectedClients,
			RecipientDeliveryFailuresTotal,
		)
	})
}

func RegisterCircuitBreakerMetrics() {
	breakerOnce.Do(func() {
		prometheus.MustRegister(CircuitBreakerState)
	})
}
