package sources

import (
	batchdomain "github.com/HDZ65/crm-final-sub010/internal/batch/domain"
	expeditiondomain "github.com/HDZ65/crm-final-sub010/internal/expedition/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("sources",
	fx.Provide(NewClient),
	fx.Provide(func(c *Client) batchdomain.ChargedSubscriptionSource { return c }),
	fx.Provide(func(c *Client) batchdomain.AddressSource { return c }),
	fx.Provide(func(c *Client) batchdomain.PreferenceSource { return c }),
	fx.Provide(func(c *Client) expeditiondomain.Bridge { return c }),
)
