package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/giftbot/internal/clock"
	"github.com/smallbiznis/giftbot/internal/user/domain"
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
		log:   p.Log.Named("user.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	if req.UserID <= 0 {
		return domain.User{}, domain.ErrInvalidID
	}

	user := domain.User{
		UserID:    req.UserID,
		Username:  strings.TrimSpace(req.Username),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Upsert(ctx, s.db, &user); err != nil {
		s.log.Error("failed to upsert user", zap.Int64("user_id", req.UserID), zap.Error(err))
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}

	return s.Get(ctx, req.UserID)
}

func (s *Service) Get(ctx context.Context, userID int64) (domain.User, error) {
	if userID <= 0 {
		return domain.User{}, domain.ErrInvalidID
	}
	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) SetSubscribed(ctx context.Context, userID int64, subscribed bool) error {
	if userID <= 0 {
		return domain.ErrInvalidID
	}
	at := s.clock.Now()
	stamp := &at
	if !subscribed {
		stamp = nil
	}
	rows, err := s.repo.SetSubscribed(ctx, s.db, userID, subscribed, stamp)
	if err != nil {
		s.log.Error("failed to update subscription flag", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("set subscribed: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) MarkGiftSent(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, domain.ErrInvalidID
	}
	rows, err := s.repo.MarkGiftSent(ctx, s.db, userID)
	if err != nil {
		s.log.Error("failed to mark gift sent", zap.Int64("user_id", userID), zap.Error(err))
		return false, fmt.Errorf("mark gift sent: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}
