package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// ActiveWebSockets is the gauge of active WebSocket connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// TopicSubscriptions is the gauge of live topic memberships across all connections.
	TopicSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_topic_subscriptions_total",
		Help: "Number of live topic subscriptions across all connections",
	})

	// EventsEmitted counts realtime events published by event type.
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_realtime_events_total",
		Help: "Total realtime events emitted by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// NotificationsCreated counts persisted notifications by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_notifications_created_total",
		Help: "Total notifications persisted by type",
	}, []string{"type"})

	// NotificationsSuppressed counts self-notifications suppressed at creation.
	NotificationsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_notifications_suppressed_total",
		Help: "Total self-notifications suppressed before persistence",
	})

	// SecondaryEffectFailures counts dropped notification/broadcast failures
	// that were isolated from the primary mutation.
	SecondaryEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_secondary_effect_failures_total",
		Help: "Total secondary-effect failures (notification create, realtime emit) that were logged and dropped",
	}, []string{"effect"})
)
