package otel

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// DBSpan 为数据库操作创建 client span
func DBSpan(ctx context.Context, operation, table string) (context.Context, oteltrace.Span) {
	return Tracer().Start(ctx, "db."+operation,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBOperationName(operation),
			attribute.String("db.collection.name", table),
		),
	)
}

// EndDBSpan 记录结果并结束 span；pgx.ErrNoRows 不算错误
func EndDBSpan(span oteltrace.Span, err error) {
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
