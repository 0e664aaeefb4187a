package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"taskhub/pkg/metrics"
	"taskhub/pkg/otel"
)

type queryStartKey struct{}

type queryStart struct {
	at   time.Time
	sql  string
	span oteltrace.Span
}

// SlowQueryTracer 记录每条查询的耗时指标，超过阈值时输出慢查询日志
type SlowQueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration // 慢查询阈值，默认 100ms
}

// NewSlowQueryTracer 创建慢查询 Tracer
func NewSlowQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *SlowQueryTracer {
	if slowThreshold == 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &SlowQueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

// TraceQueryStart 查询开始时的钩子
func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	operation, table := describeQuery(data.SQL)
	ctx, span := otel.DBSpan(ctx, operation, table)
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), sql: data.SQL, span: span})
}

// TraceQueryEnd 查询结束时的钩子
func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}

	otel.EndDBSpan(start.span, data.Err)

	duration := time.Since(start.at)
	operation, table := describeQuery(start.sql)
	metrics.RecordDBQueryDuration(operation, table, duration)

	if duration <= t.slowThreshold {
		return
	}

	// 截断 SQL 语句（避免日志过长）
	sqlTruncated := strings.Join(strings.Fields(start.sql), " ")
	if len(sqlTruncated) > 200 {
		sqlTruncated = sqlTruncated[:200] + "..."
	}

	t.logger.Warn("slow-query",
		zap.String("sql", sqlTruncated),
		zap.Duration("took", duration),
		zap.String("command_tag", data.CommandTag.String()),
	)
	metrics.IncrementSlowQuery(operation)
}

// describeQuery 从 SQL 中提取操作类型和表名，作为指标标签
func describeQuery(sql string) (operation, table string) {
	fields := strings.Fields(strings.ToLower(sql))
	if len(fields) == 0 {
		return "unknown", "unknown"
	}
	operation = fields[0]
	table = "unknown"

	var marker string
	switch operation {
	case "select", "delete":
		marker = "from"
	case "insert":
		marker = "into"
	case "update":
		if len(fields) > 1 {
			table = fields[1]
		}
		return operation, table
	default:
		return operation, table
	}

	for i := 0; i < len(fields)-1; i++ {
		if fields[i] == marker {
			table = strings.Trim(fields[i+1], "(;")
			break
		}
	}
	return operation, table
}
