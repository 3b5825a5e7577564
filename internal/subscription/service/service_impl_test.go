package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/giftbot/internal/clock"
	"github.com/smallbiznis/giftbot/internal/subscription/domain"
	"github.com/smallbiznis/giftbot/internal/subscription/repository"
	userdomain "github.com/smallbiznis/giftbot/internal/user/domain"
	userrepository "github.com/smallbiznis/giftbot/internal/user/repository"
	"github.com/smallbiznis/giftbot/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	users userdomain.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	users := userrepository.Provide()
	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		Clock:    clk,
		Repo:     repository.Provide(),
		UserRepo: users,
	})
	return fixture{svc: svc, db: conn, clock: clk, users: users}
}

func (f fixture) registerUser(t *testing.T, id int64) {
	t.Helper()
	require.NoError(t, f.users.Upsert(context.Background(), f.db, &userdomain.User{
		UserID:    id,
		FirstName: "Alice",
		CreatedAt: f.clock.Now(),
	}))
}

func (f fixture) user(t *testing.T, id int64) *userdomain.User {
	t.Helper()
	u, err := f.users.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func TestCreateStartsPendingWithIncrementingIDs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, domain.CreateRequest{UserID: 1, Username: "alice", FirstName: "Alice"})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, domain.CreateRequest{UserID: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, domain.StatusPending, first.Status)
	assert.Equal(t, "alice", first.UsernameOrEmpty())
	assert.Nil(t, second.Username)
	assert.Nil(t, first.ProcessedAt)
	assert.Nil(t, first.ProcessedBy)

	_, err = f.svc.Create(ctx, domain.CreateRequest{UserID: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestListPendingOldestFirst(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, id := range []int64{10, 11, 12} {
		_, err := f.svc.Create(ctx, domain.CreateRequest{UserID: id})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}
	_, err := f.svc.Process(ctx, domain.ProcessRequest{ID: 2, Status: domain.StatusRejected, ActorID: 999})
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(10), pending[0].UserID)
	assert.Equal(t, int64(12), pending[1].UserID)

	limited, err := f.svc.ListPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	count, err := f.svc.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestApproveMarksOwnerSubscribed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.registerUser(t, 1)

	req, err := f.svc.Create(ctx, domain.CreateRequest{UserID: 1})
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	processed, err := f.svc.Process(ctx, domain.ProcessRequest{ID: req.ID, Status: domain.StatusApproved, ActorID: 999})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusApproved, processed.Status)
	require.NotNil(t, processed.ProcessedBy)
	assert.Equal(t, int64(999), *processed.ProcessedBy)
	require.NotNil(t, processed.ProcessedAt)
	assert.True(t, f.clock.Now().Equal(*processed.ProcessedAt))

	owner := f.user(t, 1)
	assert.True(t, owner.IsSubscribed)
	require.NotNil(t, owner.SubscribedAt)
}

func TestRejectLeavesOwnerUnsubscribed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.registerUser(t, 1)

	req, err := f.svc.Create(ctx, domain.CreateRequest{UserID: 1})
	require.NoError(t, err)

	processed, err := f.svc.Process(ctx, domain.ProcessRequest{ID: req.ID, Status: domain.StatusRejected, ActorID: 999})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, processed.Status)
	assert.False(t, f.user(t, 1).IsSubscribed)
}

func TestProcessHappensAtMostOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.registerUser(t, 1)

	req, err := f.svc.Create(ctx, domain.CreateRequest{UserID: 1})
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, domain.ProcessRequest{ID: req.ID, Status: domain.StatusRejected, ActorID: 999})
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, domain.ProcessRequest{ID: req.ID, Status: domain.StatusApproved, ActorID: 999})
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	stored, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, stored.Status)
	assert.False(t, f.user(t, 1).IsSubscribed)
}

func TestProcessValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Process(ctx, domain.ProcessRequest{ID: 42, Status: domain.StatusApproved})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Process(ctx, domain.ProcessRequest{ID: 1, Status: domain.StatusPending})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.svc.Process(ctx, domain.ProcessRequest{ID: 0, Status: domain.StatusApproved})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestSystemApprovalRecordsActorZero(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.svc.Create(ctx, domain.CreateRequest{UserID: 3})
	require.NoError(t, err)

	processed, err := f.svc.Process(ctx, domain.ProcessRequest{ID: req.ID, Status: domain.StatusApproved, ActorID: domain.SystemActor})
	require.NoError(t, err)
	require.NotNil(t, processed.ProcessedBy)
	assert.Equal(t, domain.SystemActor, *processed.ProcessedBy)
}
