package snapshot

import (
	"github.com/HDZ65/crm-final-sub010/internal/snapshot/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("snapshot",
	fx.Provide(repository.ProvideAddress),
	fx.Provide(repository.ProvidePreference),
)
