package worker

import (
	"context"

	"github.com/HDZ65/crm-final-sub010/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("cutoff.worker",
	fx.Provide(func(cfg config.Config) Config {
		return Config{
			PollInterval: cfg.Cutoff.PollInterval,
			BatchLimit:   cfg.Cutoff.BatchLimit,
		}
	}),
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, worker *Worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go worker.RunForever(ctx)
			return nil
		},
	})
}
