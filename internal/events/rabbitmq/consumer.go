// Package rabbitmq implements the event bus on a RabbitMQ broker.
package rabbitmq

import (
	"context"
	"fmt"

	"github.com/HDZ65/crm-final-sub010/internal/config"
	"github.com/HDZ65/crm-final-sub010/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer subscribes handlers to durable queues, one queue per topic.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *zap.Logger
}

// NewConsumer dials the broker and opens a channel with the configured
// prefetch.
func NewConsumer(cfg config.Config, log *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := channel.Qos(cfg.RabbitMQ.PrefetchCount, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &Consumer{
		conn:    conn,
		channel: channel,
		log:     log.Named("events.rabbitmq"),
	}, nil
}

// Close tears down the channel and connection.
func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// Subscribe declares the topic's durable queue and consumes it on a dedicated
// goroutine. Handler errors nack with requeue; delivery stays at-least-once.
func (c *Consumer) Subscribe(topic string, handler events.Handler) error {
	if _, err := c.channel.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}

	deliveries, err := c.channel.Consume(
		topic,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", topic, err)
	}

	go func() {
		c.log.Info("consuming", zap.String("topic", topic))
		for delivery := range deliveries {
			if err := handler(context.Background(), delivery.Body); err != nil {
				c.log.Warn("message handling failed",
					zap.String("topic", topic),
					zap.Error(err),
				)
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}()
	return nil
}
