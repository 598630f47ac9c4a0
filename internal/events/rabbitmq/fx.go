package rabbitmq

import (
	"context"

	batchdomain "github.com/HDZ65/crm-final-sub010/internal/batch/domain"
	"github.com/HDZ65/crm-final-sub010/internal/config"
	"github.com/HDZ65/crm-final-sub010/internal/events"
	"go.uber.org/fx"
)

// Module dials the broker on start and routes subscription charge
// notifications into the orchestrator.
var Module = fx.Module("events.rabbitmq",
	fx.Provide(NewConsumer),
	fx.Provide(func(c *Consumer) events.Bus { return c }),
	fx.Invoke(subscribe),
)

func subscribe(lc fx.Lifecycle, cfg config.Config, bus events.Bus, consumer *Consumer, svc batchdomain.Service) {
	queue := cfg.RabbitMQ.SubscriptionChargeQueue
	if queue == "" {
		queue = events.TopicSubscriptionCharged
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return bus.Subscribe(queue, func(ctx context.Context, body []byte) error {
				payload, err := events.DecodeSubscriptionCharged(body)
				if err != nil {
					return err
				}
				return svc.HandleSubscriptionCharged(ctx, payload.ToEvent())
			})
		},
		OnStop: func(ctx context.Context) error {
			consumer.Close()
			return nil
		},
	})
}
