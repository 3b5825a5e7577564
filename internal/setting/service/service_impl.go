package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/smallbiznis/giftbot/internal/clock"
	"github.com/smallbiznis/giftbot/internal/setting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("setting.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", domain.ErrInvalidKey
	}
	item, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		s.log.Error("failed to read setting", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("read setting: %w", err)
	}
	if item == nil {
		return "", domain.ErrNotFound
	}
	return item.Value, nil
}

func (s *Service) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrInvalidKey
	}
	err := s.repo.Upsert(ctx, s.db, &domain.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: s.clock.Now(),
	})
	if err != nil {
		s.log.Error("failed to write setting", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("write setting: %w", err)
	}
	s.log.Info("setting updated", zap.String("key", key), zap.String("value", value))
	return nil
}

func (s *Service) AutoApproval(ctx context.Context) (bool, error) {
	value, err := s.Get(ctx, domain.KeyAutoApproval)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		s.log.Warn("unparsable auto_approval value, treating as off", zap.String("value", value))
		return false, nil
	}
	return enabled, nil
}

func (s *Service) SetAutoApproval(ctx context.Context, enabled bool) error {
	return s.Set(ctx, domain.KeyAutoApproval, strconv.FormatBool(enabled))
}
