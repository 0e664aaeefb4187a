package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// 事件状态
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// ErrEventNotFound 事件不存在
var ErrEventNotFound = errors.New("outbox event not found")

// Event 表示一个待发布的事件
type Event struct {
	ID            int64           `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   *int64          `json:"aggregate_id,omitempty"`
	RoutingKey    string          `json:"routing_key"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	RetryCount    int             `json:"retry_count"`
	NextRetryAt   *time.Time      `json:"next_retry_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewEvent 构造一个 pending 状态的事件，payload 编码为 JSON
func NewEvent(aggregateType string, aggregateID int64, routingKey string, payload any) (*Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbox payload: %w", err)
	}
	return &Event{
		AggregateType: aggregateType,
		AggregateID:   &aggregateID,
		RoutingKey:    routingKey,
		Payload:       body,
		Status:        StatusPending,
	}, nil
}

// Repository 提供 Outbox 操作的接口
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository 创建新的 Outbox Repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertEvent 在事务中插入事件到 outbox
// 必须在事务中调用，确保与业务数据的一致性
func (r *Repository) InsertEvent(ctx context.Context, tx pgx.Tx, event *Event) error {
	query := `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, routing_key, payload, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		event.AggregateType,
		event.AggregateID,
		event.RoutingKey,
		[]byte(event.Payload),
		event.Status,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}

const eventColumns = `id, aggregate_type, aggregate_id, routing_key, payload, status,
		       retry_count, next_retry_at, created_at, updated_at`

func scanEvents(rows pgx.Rows) ([]*Event, error) {
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var payload []byte
		err := rows.Scan(
			&e.ID,
			&e.AggregateType,
			&e.AggregateID,
			&e.RoutingKey,
			&payload,
			&e.Status,
			&e.RetryCount,
			&e.NextRetryAt,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Payload = payload
		events = append(events, &e)
	}

	return events, rows.Err()
}

// GetPendingEvents 获取待发送的事件（用于 Dispatcher）
func (r *Repository) GetPendingEvents(ctx context.Context, limit int) ([]*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM outbox_events
		WHERE status = 'pending'
		AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	return scanEvents(rows)
}

// GetFailedEvents 获取所有失败的事件（用于管理界面）
func (r *Repository) GetFailedEvents(ctx context.Context, limit int) ([]*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM outbox_events
		WHERE status = 'failed'
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed events: %w", err)
	}
	return scanEvents(rows)
}

// MarkAsSent 标记事件为已发送
func (r *Repository) MarkAsSent(ctx context.Context, eventID int64) error {
	query := `
		UPDATE outbox_events
		SET status = 'sent', updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}

	return nil
}

// MarkAsFailed 增加重试次数；达到 maxRetries 后标记为 failed，否则按线性退避重新排队
func (r *Repository) MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error {
	var retryCount int
	err := r.db.QueryRow(ctx, `
		SELECT retry_count FROM outbox_events WHERE id = $1
	`, eventID).Scan(&retryCount)
	if err != nil {
		return fmt.Errorf("failed to get retry count: %w", err)
	}

	status, nextRetryAt := nextAttempt(retryCount+1, maxRetries, time.Now())

	query := `
		UPDATE outbox_events
		SET status = $1, retry_count = $2, next_retry_at = $3, updated_at = NOW()
		WHERE id = $4
	`

	_, err = r.db.Exec(ctx, query, status, retryCount+1, nextRetryAt, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}

	return nil
}

// nextAttempt 计算失败后的状态：5s, 10s, 15s... 直到 maxRetries
func nextAttempt(retryCount, maxRetries int, now time.Time) (string, *time.Time) {
	if retryCount >= maxRetries {
		return StatusFailed, nil
	}
	next := now.Add(time.Duration(retryCount) * 5 * time.Second)
	return StatusPending, &next
}

// GetEventByID 根据 ID 获取事件（用于 Replay）
func (r *Repository) GetEventByID(ctx context.Context, eventID int64) (*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM outbox_events
		WHERE id = $1
	`

	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrEventNotFound
	}
	return events[0], nil
}

// ReplayEvent 重放事件（将状态重置为 pending，由 Dispatcher 重新发布）
func (r *Repository) ReplayEvent(ctx context.Context, eventID int64) error {
	query := `
		UPDATE outbox_events
		SET status = 'pending', retry_count = 0, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, eventID)
	if err != nil {
		return fmt.Errorf("failed to replay event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}

	return nil
}
