package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"taskhub/pkg/config"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), config.OTelConfig{Enabled: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestMQHeaderCarrierRoundTrip(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	headers := map[string]interface{}{"X-Trace-ID": "abc"}
	propagator := propagation.TraceContext{}
	propagator.Inject(ctx, NewMQHeaderCarrier(headers))

	if headers["traceparent"] == nil {
		t.Fatalf("expected traceparent header, got %v", headers)
	}
	extracted := propagator.Extract(context.Background(), NewMQHeaderCarrier(headers))
	if got := span.SpanContext().TraceID(); !got.IsValid() {
		t.Fatal("expected a valid span context")
	}
	if sc := spanContextOf(extracted); sc.TraceID() != span.SpanContext().TraceID() {
		t.Fatalf("trace id not propagated: %s vs %s", sc.TraceID(), span.SpanContext().TraceID())
	}
}

func spanContextOf(ctx context.Context) oteltrace.SpanContext {
	return oteltrace.SpanContextFromContext(ctx)
}
