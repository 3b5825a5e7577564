package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/giftbot/internal/clock"
	"github.com/smallbiznis/giftbot/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyUserUpdates = "giftbot:updates:user:%d"
	keyPollerLease = "giftbot:poller:lease"
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Clock  clock.Clock
}

// Limiter throttles chatty users and keeps a single replica on long polling.
// A nil *Limiter allows everything and grants the lease at once.
type Limiter struct {
	bucket *TokenBucket
	locker *Locker
	clock  clock.Clock
	log    *zap.Logger

	userRate  float64
	userBurst int
	leaseTTL  time.Duration
}

func New(p Params, lc fx.Lifecycle) (*Limiter, error) {
	limitCfg := p.Config.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}

	return NewWithClient(client, limitCfg, p.Clock, p.Log)
}

func NewWithClient(client *redis.Client, cfg config.RateLimitConfig, clk clock.Clock, log *zap.Logger) (*Limiter, error) {
	if cfg.UserRate <= 0 || cfg.UserBurst <= 0 {
		return nil, errors.New("user rate limit must be positive")
	}
	ttl := time.Duration(cfg.PollerLeaseTTLS) * time.Second
	if ttl < 3*time.Second {
		return nil, errors.New("poller lease ttl must be at least 3s")
	}
	return &Limiter{
		bucket:    NewTokenBucket(client),
		locker:    NewLocker(client),
		clock:     clk,
		log:       log.Named("ratelimit"),
		userRate:  cfg.UserRate,
		userBurst: cfg.UserBurst,
		leaseTTL:  ttl,
	}, nil
}

// AllowUser spends one token of the user's bucket. Redis failures let the
// update through.
func (l *Limiter) AllowUser(ctx context.Context, userID int64) bool {
	if l == nil || userID == 0 {
		return true
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyUserUpdates, userID), l.userRate, l.userBurst, l.clock.Now())
	if err != nil {
		l.log.Warn("rate limit check failed", zap.Int64("user_id", userID), zap.Error(err))
		return true
	}
	return res.Allowed
}

// AcquirePollerLease blocks until this replica owns the poller lease. The
// returned context ends when ctx does or when the lease is lost; the lease is
// released on the way out.
func (l *Limiter) AcquirePollerLease(ctx context.Context) (context.Context, error) {
	if l == nil {
		return ctx, nil
	}

	ticker := time.NewTicker(l.leaseTTL / 3)
	defer ticker.Stop()

	waiting := false
	for {
		token, ok, err := l.locker.TryLock(ctx, keyPollerLease, l.leaseTTL)
		switch {
		case err != nil:
			l.log.Warn("poller lease attempt failed", zap.Error(err))
		case ok:
			leaseCtx, cancel := context.WithCancel(ctx)
			go l.keepLease(leaseCtx, cancel, token)
			l.log.Info("poller lease acquired")
			return leaseCtx, nil
		case !waiting:
			waiting = true
			l.log.Info("another replica is polling, waiting for the lease")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Limiter) keepLease(ctx context.Context, cancel context.CancelFunc, token string) {
	defer cancel()

	ticker := time.NewTicker(l.leaseTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			releaseCtx, done := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			if err := l.locker.Release(releaseCtx, keyPollerLease, token); err != nil {
				l.log.Warn("poller lease release failed", zap.Error(err))
			}
			done()
			return
		case <-ticker.C:
			ok, err := l.locker.Refresh(ctx, keyPollerLease, token, l.leaseTTL)
			if err != nil {
				l.log.Warn("poller lease refresh failed", zap.Error(err))
				continue
			}
			if !ok {
				l.log.Error("poller lease lost")
				return
			}
		}
	}
}
