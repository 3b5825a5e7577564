package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftbot/internal/clock"
	"github.com/smallbiznis/giftbot/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, clk clock.Clock, log *zap.Logger) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB, cfg.DBType); err != nil {
			return err
		}

		if err := EnsureDefaults(context.Background(), conn, genID, clk.Now()); err != nil {
			return err
		}
		log.Info("database schema ready", zap.String("type", cfg.DBType))
		return nil
	}),
)
