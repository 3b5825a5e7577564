package giveaway

import (
	"github.com/smallbiznis/giftbot/internal/giveaway/service"
	"go.uber.org/fx"
)

var Module = fx.Module("giveaway.service",
	fx.Provide(service.New),
)
