package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	"github.com/oksasatya/fluxo-backend/internal/domain/repository"
)

func newUser(t *testing.T, s *Store, email string) *entity.User {
	t.Helper()
	u := &entity.User{Email: email, Password: "hash", DailyLimit: 3}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestUserEmailIsCaseInsensitiveAndUnique(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "Ann@Example.com")

	got, err := s.Users().GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	err = s.Users().Create(ctx, &entity.User{Email: "ANN@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	_, err = s.Users().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithUserLockRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "a@b.co")
	now := time.Now()
	boom := errors.New("boom")

	err := s.WithUserLock(ctx, u.ID, func(ctx context.Context, locked *entity.User, uow repository.UnitOfWork) error {
		require.NoError(t, uow.Users().SaveQuota(ctx, locked.ID, 2, &now))
		require.NoError(t, uow.Quotas().CreateReservation(ctx, &entity.QuotaReservation{UserID: locked.ID, ExpiresAt: now.Add(time.Minute)}))
		require.NoError(t, uow.Verifications().Create(ctx, &entity.VerificationCode{UserID: locked.ID, Code: "123456", ExpiresAt: now.Add(time.Minute)}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RequestsToday)
	assert.Nil(t, got.LastRequestDate)

	n, err := s.Quotas().CountActiveReservations(ctx, u.ID, now)
	require.NoError(t, err)
	assert.Zero(t, n)
	c, err := s.Verifications().CountCreatedSince(ctx, u.ID, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, c)

	err = s.WithUserLock(ctx, "missing", func(context.Context, *entity.User, repository.UnitOfWork) error { return nil })
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReservationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "a@b.co")
	now := time.Now()
	q := s.Quotas()

	live := &entity.QuotaReservation{UserID: u.ID, ExpiresAt: now.Add(time.Minute)}
	stale := &entity.QuotaReservation{UserID: u.ID, ExpiresAt: now.Add(-time.Second)}
	require.NoError(t, q.CreateReservation(ctx, live))
	require.NoError(t, q.CreateReservation(ctx, stale))

	n, _ := q.CountActiveReservations(ctx, u.ID, now)
	assert.Equal(t, 1, n)

	purged, err := q.DeleteExpiredReservations(ctx, u.ID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	ok, err := q.DeleteReservation(ctx, "someone-else", live.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, _ = q.DeleteReservation(ctx, u.ID, live.ID)
	assert.True(t, ok)
	ok, _ = q.DeleteReservation(ctx, u.ID, live.ID)
	assert.False(t, ok)
}

func TestVerificationCodes(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "a@b.co")
	now := time.Now()
	v := s.Verifications()

	old := &entity.VerificationCode{UserID: u.ID, Code: "111111", ExpiresAt: now.Add(time.Minute), CreatedAt: now.Add(-time.Minute)}
	require.NoError(t, v.Create(ctx, old))
	n, err := v.SupersedeUnused(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	fresh := &entity.VerificationCode{UserID: u.ID, Code: "222222", ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, v.Create(ctx, fresh))

	_, err = v.FindActive(ctx, u.ID, "111111", now)
	assert.ErrorIs(t, err, repository.ErrNotFound, "superseded")
	got, err := v.FindActive(ctx, u.ID, "222222", now)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, got.ID)

	_, err = v.FindActive(ctx, u.ID, "222222", now.Add(2*time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound, "expired")

	require.NoError(t, v.MarkUsed(ctx, fresh.ID))
	assert.ErrorIs(t, v.MarkUsed(ctx, fresh.ID), repository.ErrNotFound)

	count, _ := v.CountCreatedSince(ctx, u.ID, now.Add(-time.Hour))
	assert.Equal(t, 2, count)
}

func TestPromptHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.SeedStyles(entity.DefaultPromptStyles...)
	u := newUser(t, s, "a@b.co")
	base := time.Now()

	for i, text := range []string{"first", "second", "third"} {
		require.NoError(t, s.Prompts().Create(ctx, &entity.PromptRequest{UserID: u.ID, OriginalPrompt: text, CreatedAt: base.Add(time.Duration(i) * time.Second)}))
	}
	require.NoError(t, s.Prompts().Create(ctx, &entity.PromptRequest{UserID: "other", OriginalPrompt: "x"}))

	page, err := s.Prompts().ListByUser(ctx, u.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "third", page[0].OriginalPrompt)
	assert.Equal(t, "second", page[1].OriginalPrompt)

	page, _ = s.Prompts().ListByUser(ctx, u.ID, 2, 2)
	require.Len(t, page, 1)
	assert.Equal(t, "first", page[0].OriginalPrompt)

	styles, err := s.Prompts().ListStyles(ctx)
	require.NoError(t, err)
	require.Len(t, styles, 4)
	assert.Equal(t, "Professional", styles[0].Name)
	_, err = s.Prompts().GetStyle(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
