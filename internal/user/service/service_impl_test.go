package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/giftbot/internal/clock"
	"github.com/smallbiznis/giftbot/internal/user/domain"
	"github.com/smallbiznis/giftbot/internal/user/repository"
	"github.com/smallbiznis/giftbot/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    dbtest.Open(t),
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, clk
}

func TestRegisterUpsertKeepsOneRowWithLatestNames(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, domain.RegisterRequest{UserID: 1, Username: "alice", FirstName: "Alice"})
	require.NoError(t, err)
	require.NoError(t, svc.SetSubscribed(ctx, 1, true))

	clk.Advance(time.Hour)
	second, err := svc.Register(ctx, domain.RegisterRequest{UserID: 1, Username: "alice_new", FirstName: "Alicia", LastName: "Smith"})
	require.NoError(t, err)

	assert.Equal(t, "alice_new", second.Username)
	assert.Equal(t, "Alicia", second.FirstName)
	assert.Equal(t, "Smith", second.LastName)
	assert.True(t, second.IsSubscribed, "re-registration must not reset flags")
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "created_at must be preserved")
}

func TestRegisterRejectsInvalidID(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{UserID: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestGetUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegisterOptionalNamesStayEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.Register(context.Background(), domain.RegisterRequest{UserID: 7})
	require.NoError(t, err)
	assert.Empty(t, user.Username)
	assert.Equal(t, "user", user.DisplayName())
	assert.False(t, user.IsSubscribed)
	assert.False(t, user.GiftSent)
	assert.Nil(t, user.SubscribedAt)
}

func TestSetSubscribedStampsTime(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, domain.RegisterRequest{UserID: 5, FirstName: "Bob"})
	require.NoError(t, err)

	require.NoError(t, svc.SetSubscribed(ctx, 5, true))

	user, err := svc.Get(ctx, 5)
	require.NoError(t, err)
	assert.True(t, user.IsSubscribed)
	require.NotNil(t, user.SubscribedAt)
	assert.True(t, clk.Now().Equal(*user.SubscribedAt))
	first := *user.SubscribedAt

	clk.Advance(time.Hour)
	require.NoError(t, svc.SetSubscribed(ctx, 5, true))
	user, err = svc.Get(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, user.SubscribedAt)
	assert.True(t, first.Equal(*user.SubscribedAt))

	assert.ErrorIs(t, svc.SetSubscribed(ctx, 6, true), domain.ErrNotFound)
}

func TestMarkGiftSentIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, domain.RegisterRequest{UserID: 9})
	require.NoError(t, err)

	transitioned, err := svc.MarkGiftSent(ctx, 9)
	require.NoError(t, err)
	assert.True(t, transitioned)

	transitioned, err = svc.MarkGiftSent(ctx, 9)
	require.NoError(t, err)
	assert.False(t, transitioned)

	user, err := svc.Get(ctx, 9)
	require.NoError(t, err)
	assert.True(t, user.GiftSent)

	_, err = svc.MarkGiftSent(ctx, 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
