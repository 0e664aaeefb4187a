package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"taskhub/pkg/metrics"
	"taskhub/pkg/trace"
	"taskhub/pkg/util"
)

// Publisher 发布已编码的事件（由 mq.Publisher 实现）
type Publisher interface {
	PublishRaw(ctx context.Context, routingKey string, body []byte) error
}

// EventStore Dispatcher 需要的 outbox 存储操作
type EventStore interface {
	GetPendingEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkAsSent(ctx context.Context, eventID int64) error
	MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error
}

// Dispatcher 负责从 outbox 中读取事件并发布到 MQ
type Dispatcher struct {
	repo       EventStore
	publisher  Publisher
	logger     *zap.Logger
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	interval   time.Duration
	batchSize  int
}

// NewDispatcher 创建新的 Dispatcher
func NewDispatcher(repo EventStore, publisher Publisher, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		repo:       repo,
		publisher:  publisher,
		logger:     logger,
		maxRetries: 5,               // 默认最大重试5次
		interval:   1 * time.Second, // 默认每秒扫描一次
		batchSize:  100,             // 默认每次处理100个事件
	}
	// 连续失败5次后熔断30秒，期间本批次剩余事件直接跳过，不消耗重试次数
	d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "outbox-publisher",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Outbox publisher breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return d
}

// WithMaxRetries 设置最大重试次数
func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	if maxRetries > 0 {
		d.maxRetries = maxRetries
	}
	return d
}

// WithInterval 设置扫描间隔
func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// WithBatchSize 设置批次大小
func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	if batchSize > 0 {
		d.batchSize = batchSize
	}
	return d
}

// Start 启动 Dispatcher，阻塞直到 ctx 取消
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting Outbox Dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox Dispatcher stopped")
			return
		case <-ticker.C:
			d.processPendingEvents(ctx)
		}
	}
}

// processPendingEvents 处理待发送的事件，返回成功发布的数量
func (d *Dispatcher) processPendingEvents(ctx context.Context) int {
	events, err := d.repo.GetPendingEvents(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to get pending events", zap.Error(err))
		return 0
	}

	if len(events) == 0 {
		return 0
	}

	d.logger.Debug("Processing pending events", zap.Int("count", len(events)))

	sent := 0
	for _, event := range events {
		_, err := d.breaker.Execute(func() (interface{}, error) {
			return nil, d.publishEvent(ctx, event)
		})
		if breakerRejected(err) {
			d.logger.Warn("Outbox publisher breaker open, deferring batch",
				zap.Int("remaining", len(events)-sent),
			)
			return sent
		}
		if err != nil {
			retryable, errorType := util.ClassifyError(err)
			if errorType == "context_canceled" {
				// 关闭过程中被取消，不消耗重试次数
				return sent
			}
			d.logger.Error("Failed to publish event",
				zap.Int64("event_id", event.ID),
				zap.String("routing_key", event.RoutingKey),
				zap.String("error_type", errorType),
				zap.Bool("retryable", retryable),
				zap.Error(err),
			)
			metrics.IncrementOutboxPublished(event.RoutingKey, "failed")

			if err := d.repo.MarkAsFailed(ctx, event.ID, d.maxRetries); err != nil {
				d.logger.Error("Failed to mark event as failed",
					zap.Int64("event_id", event.ID),
					zap.Error(err),
				)
			}
			continue
		}

		metrics.IncrementOutboxPublished(event.RoutingKey, "success")
		sent++

		if err := d.repo.MarkAsSent(ctx, event.ID); err != nil {
			d.logger.Error("Failed to mark event as sent",
				zap.Int64("event_id", event.ID),
				zap.Error(err),
			)
		}
	}
	return sent
}

// breakerRejected 判断错误是否来自熔断器拒绝（而不是发布失败）
func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// publishEvent 发布单个事件到 MQ
func (d *Dispatcher) publishEvent(ctx context.Context, event *Event) error {
	ctx = extractTraceIDFromPayload(ctx, event.Payload)
	if err := d.publisher.PublishRaw(ctx, event.RoutingKey, event.Payload); err != nil {
		return fmt.Errorf("failed to publish to MQ: %w", err)
	}
	return nil
}

// extractTraceIDFromPayload 从 payload 中提取 trace_id（如果存在）
func extractTraceIDFromPayload(ctx context.Context, payload json.RawMessage) context.Context {
	var envelope struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return ctx
	}
	if envelope.TraceID != "" {
		ctx = trace.WithContext(ctx, envelope.TraceID)
	}
	return ctx
}
