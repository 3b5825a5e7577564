// Command healthcheck exits 0 when the configured bot token is accepted by
// the Bot API and 1 otherwise. It is meant for container health probes.
package main

import (
	"context"
	"os"
	"time"

	"github.com/smallbiznis/giftbot/internal/config"
	"github.com/smallbiznis/giftbot/internal/providers/telegram"
	"go.uber.org/zap"
)

const probeTimeout = 10 * time.Second

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	os.Exit(run(log))
}

func run(log *zap.Logger) int {
	cfg := config.Load()
	if cfg.BotToken == "" {
		log.Error("healthcheck failed", zap.Error(config.ErrMissingBotToken))
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	me, err := telegram.Probe(ctx, cfg.BotToken, cfg.BotAPIEndpoint, probeTimeout)
	if err != nil {
		log.Error("healthcheck failed", zap.Error(err))
		return 1
	}
	log.Info("healthcheck ok", zap.String("bot", me.Username))
	return 0
}
