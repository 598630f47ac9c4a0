package batch

import (
	"github.com/HDZ65/crm-final-sub010/internal/batch/pending"
	"github.com/HDZ65/crm-final-sub010/internal/batch/repository"
	"github.com/HDZ65/crm-final-sub010/internal/batch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("batch.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideLines),
	fx.Provide(pending.NewStore),
	fx.Provide(service.NewService),
)
