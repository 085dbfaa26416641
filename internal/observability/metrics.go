package observability

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthEvents counts authentication flows by event and outcome.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threads_auth_events_total",
		Help: "Authentication events by type and outcome",
	}, []string{"event", "outcome"})

	// FollowGraphMutations counts follow graph changes by action.
	FollowGraphMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threads_follow_graph_mutations_total",
		Help: "Follow graph mutations by action",
	}, []string{"action"})

	// ContentEvents counts post, like and comment writes.
	ContentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threads_content_events_total",
		Help: "Content store writes by event",
	}, []string{"event"})

	// RateLimitRejections counts requests refused by a named rate limit.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threads_rate_limit_rejections_total",
		Help: "Requests rejected by rate limiting, by limit name",
	}, []string{"limit"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threads_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by statement kind.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threads_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// WebSocketConnectionsActive is the gauge of open notification sockets.
	WebSocketConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threads_websocket_connections_active",
		Help: "Number of active notification WebSocket connections",
	})
)

// ObserveQuery records the latency of one SQL statement.
func ObserveQuery(sql string, elapsed time.Duration) {
	DatabaseQueryLatency.WithLabelValues(statementKind(sql)).Observe(elapsed.Seconds())
}

func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	switch kind := strings.ToLower(fields[0]); kind {
	case "select", "insert", "update", "delete", "begin", "commit", "rollback", "savepoint":
		return kind
	default:
		return "other"
	}
}
