package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftbot/internal/clock"
	"github.com/smallbiznis/giftbot/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/giftbot/internal/observability/metrics"
	"github.com/smallbiznis/giftbot/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (domain.Entry, error) {
	if !req.OperationType.Valid() {
		return domain.Entry{}, domain.ErrInvalidOperation
	}
	if req.OperationType.AffectsBalance() {
		if req.Amount == 0 {
			return domain.Entry{}, domain.ErrInvalidAmount
		}
	} else if req.Amount < 0 {
		return domain.Entry{}, domain.ErrInvalidAmount
	}

	entry := domain.Entry{
		ID:            s.genID.Generate(),
		Amount:        req.Amount,
		OperationType: req.OperationType,
		Description:   strings.TrimSpace(req.Description),
		CreatedAt:     s.clock.Now(),
	}
	if req.UserID > 0 {
		userID := req.UserID
		entry.UserID = &userID
	}
	if giftType := strings.TrimSpace(req.GiftType); giftType != "" {
		entry.GiftType = &giftType
	}

	err := s.repo.Insert(ctx, s.db, &entry)
	if db.IsDuplicateKeyErr(err) {
		// Another process shares this node id; one fresh id is enough.
		entry.ID = s.genID.Generate()
		err = s.repo.Insert(ctx, s.db, &entry)
	}
	if err != nil {
		s.log.Error("failed to append ledger entry",
			zap.String("operation", string(req.OperationType)),
			zap.Int64("amount", req.Amount),
			zap.Error(err),
		)
		return domain.Entry{}, fmt.Errorf("insert ledger entry: %w", err)
	}

	s.obsMetrics.RecordLedgerEntry(ctx, string(entry.OperationType))
	s.log.Info("ledger entry appended",
		zap.Int64("entry_id", entry.ID.Int64()),
		zap.String("operation", string(entry.OperationType)),
		zap.Int64("amount", entry.Amount),
	)
	return entry, nil
}

func (s *Service) Add(ctx context.Context, amount int64, description string) (domain.Entry, error) {
	if amount <= 0 {
		return domain.Entry{}, domain.ErrInvalidAmount
	}
	if description == "" {
		description = fmt.Sprintf("Added %d stars", amount)
	}
	return s.Record(ctx, domain.RecordRequest{
		Amount:        amount,
		OperationType: domain.OperationAdd,
		Description:   description,
	})
}

func (s *Service) Subtract(ctx context.Context, amount int64, description string) (domain.Entry, error) {
	if amount <= 0 {
		return domain.Entry{}, domain.ErrInvalidAmount
	}
	if description == "" {
		description = fmt.Sprintf("Subtracted %d stars", amount)
	}
	return s.Record(ctx, domain.RecordRequest{
		Amount:        amount,
		OperationType: domain.OperationSubtract,
		Description:   description,
	})
}

func (s *Service) RecordGift(ctx context.Context, userID, amount int64, giftType string) (domain.Entry, error) {
	return s.Record(ctx, domain.RecordRequest{
		Amount:        amount,
		OperationType: domain.OperationGiftSent,
		Description:   fmt.Sprintf("Gift sent to user %d", userID),
		UserID:        userID,
		GiftType:      giftType,
	})
}

func (s *Service) Balance(ctx context.Context) (int64, error) {
	balance, err := s.repo.Balance(ctx, s.db)
	if err != nil {
		s.log.Error("failed to compute balance", zap.Error(err))
		return 0, fmt.Errorf("ledger balance: %w", err)
	}
	return balance, nil
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	stats, err := s.repo.Stats(ctx, s.db)
	if err != nil {
		s.log.Error("failed to compute gift stats", zap.Error(err))
		return domain.Stats{}, fmt.Errorf("ledger stats: %w", err)
	}
	return stats, nil
}

func (s *Service) ListGifts(ctx context.Context, limit int) ([]domain.Entry, error) {
	items, err := s.repo.ListByOperation(ctx, s.db, domain.OperationGiftSent, limit)
	if err != nil {
		return nil, fmt.Errorf("list gifts: %w", err)
	}
	out := make([]domain.Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}
