package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftbot/internal/authorization"
	"github.com/smallbiznis/giftbot/internal/bot"
	"github.com/smallbiznis/giftbot/internal/clock"
	"github.com/smallbiznis/giftbot/internal/config"
	"github.com/smallbiznis/giftbot/internal/giveaway"
	"github.com/smallbiznis/giftbot/internal/ledger"
	"github.com/smallbiznis/giftbot/internal/migration"
	"github.com/smallbiznis/giftbot/internal/observability"
	"github.com/smallbiznis/giftbot/internal/providers"
	"github.com/smallbiznis/giftbot/internal/ratelimit"
	"github.com/smallbiznis/giftbot/internal/server"
	"github.com/smallbiznis/giftbot/internal/setting"
	"github.com/smallbiznis/giftbot/internal/subscription"
	"github.com/smallbiznis/giftbot/internal/user"
	"github.com/smallbiznis/giftbot/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Giveaway domains
		user.Module,
		subscription.Module,
		ledger.Module,
		setting.Module,
		authorization.Module,
		providers.Module,
		giveaway.Module,

		// Surfaces
		ratelimit.Module,
		bot.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
