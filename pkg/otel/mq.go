package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// MQPublishSpan 在 MQ 发布时创建 producer span
func MQPublishSpan(ctx context.Context, exchange, routingKey string) (context.Context, oteltrace.Span) {
	return Tracer().Start(ctx, "mq.publish "+routingKey,
		oteltrace.WithSpanKind(oteltrace.SpanKindProducer),
		oteltrace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", exchange),
			attribute.String("messaging.rabbitmq.destination.routing_key", routingKey),
		),
	)
}

// InjectMQHeaders 把 ctx 中的 trace context 写入消息头（traceparent/tracestate）
func InjectMQHeaders(ctx context.Context, headers map[string]interface{}) {
	otel.GetTextMapPropagator().Inject(ctx, NewMQHeaderCarrier(headers))
}

// MQHeaderCarrier 实现 TextMapCarrier 接口，用于在 RabbitMQ 消息头中注入/提取 trace context
type MQHeaderCarrier struct {
	headers map[string]interface{}
}

func NewMQHeaderCarrier(headers map[string]interface{}) *MQHeaderCarrier {
	if headers == nil {
		headers = make(map[string]interface{})
	}
	return &MQHeaderCarrier{headers: headers}
}

func (c *MQHeaderCarrier) Get(key string) string {
	if str, ok := c.headers[key].(string); ok {
		return str
	}
	return ""
}

func (c *MQHeaderCarrier) Set(key, value string) {
	c.headers[key] = value
}

func (c *MQHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for k := range c.headers {
		keys = append(keys, k)
	}
	return keys
}
