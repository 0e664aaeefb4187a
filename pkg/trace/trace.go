package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type ctxKey struct{}

const TraceIDKey = "trace_id"

// GenerateTraceID 生成一个新的 trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext 从 context 中获取 trace_id
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext 将 trace_id 添加到 context 中
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// FromHeader 按优先级返回请求头中的 trace id（X-Trace-ID，其次 X-Request-ID）
func FromHeader(traceHeader, requestIDHeader string) string {
	if traceHeader != "" {
		return traceHeader
	}
	return requestIDHeader
}

// HeaderName 返回 trace ID 的 HTTP header 名称
func HeaderName() string {
	return "X-Trace-ID"
}
