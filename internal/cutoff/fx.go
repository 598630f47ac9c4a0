package cutoff

import (
	"github.com/HDZ65/crm-final-sub010/internal/cutoff/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("cutoff",
	fx.Provide(repository.Provide),
)
