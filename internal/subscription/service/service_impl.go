package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/giftbot/internal/clock"
	"github.com/smallbiznis/giftbot/internal/subscription/domain"
	userdomain "github.com/smallbiznis/giftbot/internal/user/domain"
	"github.com/smallbiznis/giftbot/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	UserRepo userdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	userRepo userdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("subscription.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		userRepo: p.UserRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Request, error) {
	if req.UserID <= 0 {
		return domain.Request{}, domain.ErrInvalidUser
	}

	item := domain.Request{
		UserID:    req.UserID,
		Username:  optional(req.Username),
		FirstName: optional(req.FirstName),
		LastName:  optional(req.LastName),
		Status:    domain.StatusPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &item); err != nil {
		s.log.Error("failed to create request", zap.Int64("user_id", req.UserID), zap.Error(err))
		return domain.Request{}, fmt.Errorf("insert request: %w", err)
	}

	s.log.Info("request created", zap.Int64("request_id", item.ID), zap.Int64("user_id", item.UserID))
	return item, nil
}

func (s *Service) Get(ctx context.Context, id int64) (domain.Request, error) {
	if id <= 0 {
		return domain.Request{}, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Request{}, fmt.Errorf("find request: %w", err)
	}
	if item == nil {
		return domain.Request{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]domain.Request, error) {
	items, err := s.repo.ListByStatus(ctx, s.db, domain.StatusPending, limit)
	if err != nil {
		s.log.Error("failed to list pending requests", zap.Error(err))
		return nil, fmt.Errorf("list pending requests: %w", err)
	}

	out := make([]domain.Request, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) CountPending(ctx context.Context) (int64, error) {
	count, err := s.repo.CountByStatus(ctx, s.db, domain.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}
	return count, nil
}

func (s *Service) Process(ctx context.Context, req domain.ProcessRequest) (domain.Request, error) {
	if req.ID <= 0 {
		return domain.Request{}, domain.ErrInvalidID
	}
	if !req.Status.IsTerminal() {
		return domain.Request{}, domain.ErrInvalidStatus
	}

	now := s.clock.Now()
	var processed domain.Request
	err := db.RetryBusy(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			moved, err := s.repo.Transition(ctx, tx, req.ID, domain.StatusPending, req.Status, req.ActorID, now)
			if err != nil {
				return err
			}

			item, err := s.repo.FindByID(ctx, tx, req.ID)
			if err != nil {
				return err
			}
			if item == nil {
				return domain.ErrNotFound
			}
			if !moved {
				return domain.ErrAlreadyProcessed
			}

			if req.Status == domain.StatusApproved {
				// The owner may never have pressed /start; a missing user row is
				// not an error here.
				if _, err := s.userRepo.SetSubscribed(ctx, tx, item.UserID, true, &now); err != nil {
					return err
				}
			}

			processed = *item
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyProcessed) {
			return domain.Request{}, err
		}
		s.log.Error("failed to process request", zap.Int64("request_id", req.ID), zap.Error(err))
		return domain.Request{}, fmt.Errorf("process request: %w", err)
	}

	s.log.Info("request processed",
		zap.Int64("request_id", processed.ID),
		zap.String("status", string(processed.Status)),
		zap.Int64("processed_by", req.ActorID),
	)
	return processed, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
