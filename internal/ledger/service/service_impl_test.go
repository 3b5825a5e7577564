package service

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/smallbiznis/giftbot/internal/clock"
	"github.com/smallbiznis/giftbot/internal/ledger/domain"
	"github.com/smallbiznis/giftbot/internal/ledger/repository"
	"github.com/smallbiznis/giftbot/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    dbtest.Open(t),
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, clk
}

func TestBalanceScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	balance, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	_, err = svc.Add(ctx, 500, "")
	require.NoError(t, err)
	_, err = svc.Subtract(ctx, 200, "manual correction")
	require.NoError(t, err)

	balance, err = svc.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)

	gift, err := svc.RecordGift(ctx, 1, 1, "teddy_bear")
	require.NoError(t, err)
	require.NotNil(t, gift.UserID)
	assert.Equal(t, int64(1), *gift.UserID)
	require.NotNil(t, gift.GiftType)
	assert.Equal(t, "teddy_bear", *gift.GiftType)

	balance, err = svc.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{TotalGifts: 1, StarsOnGifts: 1}, stats)
}

func TestRecordValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Subtract(ctx, -5, "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Record(ctx, domain.RecordRequest{Amount: 10, OperationType: "refund"})
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	_, err = svc.Record(ctx, domain.RecordRequest{Amount: 0, OperationType: domain.OperationSubtract})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.RecordGift(ctx, 7, -1, "teddy_bear")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	entry, err := svc.Add(ctx, 100, "")
	require.NoError(t, err)
	assert.Equal(t, "Added 100 stars", entry.Description)
	assert.Nil(t, entry.UserID)
	assert.NotZero(t, entry.ID)
}

func TestListGiftsNewestFirst(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	for _, userID := range []int64{11, 12, 13} {
		_, err := svc.RecordGift(ctx, userID, 1, "teddy_bear")
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}
	_, err := svc.Add(ctx, 100, "")
	require.NoError(t, err)

	gifts, err := svc.ListGifts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, gifts, 2)
	assert.Equal(t, int64(13), *gifts[0].UserID)
	assert.Equal(t, int64(12), *gifts[1].UserID)

	all, err := svc.ListGifts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// Positive values are added, negative ones subtracted and zero records a gift.
func TestBalanceMatchesSignedSum(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("balance is sum of adds minus sum of subtracts", prop.ForAll(
		func(ops []int64) bool {
			start, err := svc.Balance(ctx)
			if err != nil {
				return false
			}

			var want int64
			for _, op := range ops {
				switch {
				case op > 0:
					if _, err := svc.Add(ctx, op, ""); err != nil {
						return false
					}
					want += op
				case op < 0:
					if _, err := svc.Subtract(ctx, -op, ""); err != nil {
						return false
					}
					want += op
				default:
					if _, err := svc.RecordGift(ctx, 7, 1, "teddy_bear"); err != nil {
						return false
					}
				}
			}

			got, err := svc.Balance(ctx)
			return err == nil && got == start+want
		},
		gen.SliceOf(gen.Int64Range(-1000, 1000)),
	))

	properties.TestingRun(t)
}

func TestRecordSignedAmounts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 100, "")
	require.NoError(t, err)

	entry, err := svc.Record(ctx, domain.RecordRequest{Amount: -30, OperationType: domain.OperationAdd, Description: "correction"})
	require.NoError(t, err)
	assert.Equal(t, int64(-30), entry.Amount)

	_, err = svc.Record(ctx, domain.RecordRequest{Amount: -20, OperationType: domain.OperationSubtract, Description: "refund"})
	require.NoError(t, err)

	balance, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(90), balance)
}
