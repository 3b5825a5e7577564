package telegram

import (
	"github.com/smallbiznis/giftbot/internal/config"
	obsmetrics "github.com/smallbiznis/giftbot/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.telegram",
	fx.Provide(provideClientConfig),
	fx.Provide(newFromConfig),
	fx.Provide(
		func(c *Client) Provider { return c },
		func(c *Client) UpdateSource { return c },
	),
)

// provideClientConfig refuses to start without a token and a channel.
func provideClientConfig(cfg config.Config) (ClientConfig, error) {
	if err := cfg.ValidateBot(); err != nil {
		return ClientConfig{}, err
	}
	return ClientConfigFrom(cfg), nil
}

type clientParams struct {
	fx.In

	Config     ClientConfig
	Log        *zap.Logger
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func newFromConfig(p clientParams) (*Client, error) {
	return NewClient(p.Config, p.Log, p.ObsMetrics)
}
