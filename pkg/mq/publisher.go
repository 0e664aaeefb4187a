package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/codes"

	"taskhub/pkg/otel"
	"taskhub/pkg/trace"
)

type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:    conn,
		channel: ch,
	}, nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// IsConnected checks if the publisher connection is still alive
func (p *Publisher) IsConnected() bool {
	if p.conn == nil || p.channel == nil {
		return false
	}
	return !p.conn.IsClosed()
}

// PublishRaw publishes an already encoded JSON body to the exchange.
// The trace id in ctx, if any, travels as the X-Trace-ID header next to
// the W3C traceparent of the publish span.
func (p *Publisher) PublishRaw(ctx context.Context, routingKey string, body []byte) error {
	ctx, span := otel.MQPublishSpan(ctx, ExchangeName, routingKey)
	defer span.End()

	headers := map[string]interface{}{}
	if traceID := trace.FromContext(ctx); traceID != "" {
		headers[trace.HeaderName()] = traceID
	}
	otel.InjectMQHeaders(ctx, headers)

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}
	if len(headers) > 0 {
		msg.Headers = amqp091.Table(headers)
	}

	err := p.channel.PublishWithContext(ctx,
		ExchangeName,
		routingKey,
		false,
		false,
		msg,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
