package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// 慢查询计数
	DBSlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"operation"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 认证事件计数
	AuthEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_event_count",
			Help: "Total number of authentication events",
		},
		[]string{"event", "result"}, // event: register, login, logout, resolve
	)

	// 资源变更计数
	ResourceMutationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_mutation_count",
			Help: "Total number of project/task mutations",
		},
		[]string{"resource", "action"}, // action: create, update, delete
	)

	// Outbox 事件发布计数
	OutboxPublishedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_published_count",
			Help: "Total number of outbox events handed to the broker",
		},
		[]string{"routing_key", "status"}, // status: success, failed
	)
)

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(operation string) {
	DBSlowQueryCount.WithLabelValues(operation).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementAuthEvent 增加认证事件计数
func IncrementAuthEvent(event, result string) {
	AuthEventCount.WithLabelValues(event, result).Inc()
}

// IncrementResourceMutation 增加资源变更计数
func IncrementResourceMutation(resource, action string) {
	ResourceMutationCount.WithLabelValues(resource, action).Inc()
}

// IncrementOutboxPublished 增加 Outbox 发布计数
func IncrementOutboxPublished(routingKey, status string) {
	OutboxPublishedCount.WithLabelValues(routingKey, status).Inc()
}
