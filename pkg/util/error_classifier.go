package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

// ClassifyError labels err for logs and reports whether retrying the same
// operation later can succeed.
// Returns: (isRetryable, errorType)
func ClassifyError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	// Context - 取消不可重试，超时可重试
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}

	// JSON 编解码错误 - 不可重试（数据格式错误）
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false, "json_error"
	}

	// Database errors
	if errors.Is(err, pgx.ErrNoRows) {
		return false, "not_found"
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true, "db_connection_error"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			// connection exception / operator intervention
			return true, "db_connection_error"
		case strings.HasPrefix(pgErr.Code, "23"):
			// 约束冲突 - 重试结果不变
			return false, "constraint_violation"
		case strings.HasPrefix(pgErr.Code, "40"):
			// serialization failure / deadlock
			return true, "db_transaction_rollback"
		}
		return false, "db_error"
	}

	// Broker errors
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true, "breaker_open"
	}
	var amqpErr *amqp091.Error
	if errors.As(err, &amqpErr) {
		return amqpErr.Recover, "broker_error"
	}

	// Network errors - 可重试
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	// 默认：未知错误，保守处理 - 不重试
	return false, "unknown_error"
}
