package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"taskhub/pkg/config"
)

const instrumentationName = "taskhub"

// Init 初始化 OpenTelemetry；未启用或没有 endpoint 时返回空的 shutdown 函数
func Init(ctx context.Context, cfg config.OTelConfig, logger *zap.Logger) (func(context.Context) error, error) {
	noopShutdown := func(context.Context) error { return nil }

	if !cfg.Enabled || cfg.Endpoint == "" {
		logger.Info("OpenTelemetry is disabled")
		return noopShutdown, nil
	}

	logger.Info("Initializing OpenTelemetry",
		zap.String("service", cfg.ServiceName),
		zap.String("endpoint", cfg.Endpoint),
	)

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return noopShutdown, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return noopShutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logger.Info("OpenTelemetry initialized successfully")
	return tp.Shutdown, nil
}

// Tracer 返回全局 tracer；未初始化时全局 provider 是 noop 实现
func Tracer() oteltrace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}

// StartSpan 创建新的 span
func StartSpan(ctx context.Context, name string, opts ...oteltrace.SpanStartOption) (context.Context, oteltrace.Span) {
	return Tracer().Start(ctx, name, opts...)
}
