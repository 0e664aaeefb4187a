package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// ExchangeName topic exchange，领域事件按 routing key（如 task.created）路由
const ExchangeName = "taskhub.events"

const heartbeat = 10 * time.Second

// NewConnection 连接 RabbitMQ，并以 connection_name 标识本服务
func NewConnection(url string) (*amqp091.Connection, error) {
	props := amqp091.NewConnectionProperties()
	props.SetClientConnectionName("taskhub-api")

	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat:  heartbeat,
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareExchange 声明持久化的事件 exchange（幂等）
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		amqp091.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}
