package quota_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/fluxo-backend/internal/application/quota"
	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	"github.com/oksasatya/fluxo-backend/internal/infrastructure/memory"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Today() time.Time { return helpers.DateOf(c.Now(), time.UTC) }

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setup(t *testing.T, limit int) (*quota.Ledger, *memory.Store, *fakeClock, string) {
	t.Helper()
	store := memory.New()
	u := &entity.User{Email: "ann@example.com", Password: "x", DailyLimit: limit}
	require.NoError(t, store.Users().Create(context.Background(), u))
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	l := quota.NewLedger(store, clock, quota.Config{ReservationTTL: 2 * time.Minute}, helpers.NewNopLogger())
	return l, store, clock, u.ID
}

func TestAdmitThenRecordIncrementsByOne(t *testing.T) {
	ctx := context.Background()
	l, _, _, uid := setup(t, 3)

	res, err := l.CheckAndReserve(ctx, uid)
	require.NoError(t, err)

	st, err := l.GetStatus(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, st.RequestsToday, "admission must not increment")

	require.NoError(t, l.RecordUsage(ctx, res))
	st, err = l.GetStatus(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, st.RequestsToday)
	assert.Equal(t, 2, st.RemainingRequests)
	assert.Equal(t, 3, st.DailyLimit)
}

func TestRecordUsageTwiceFails(t *testing.T) {
	ctx := context.Background()
	l, _, _, uid := setup(t, 3)

	res, err := l.CheckAndReserve(ctx, uid)
	require.NoError(t, err)
	require.NoError(t, l.RecordUsage(ctx, res))
	assert.ErrorIs(t, l.RecordUsage(ctx, res), quota.ErrReservationNotFound)

	st, err := l.GetStatus(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, st.RequestsToday)
}

func TestDeniedAtLimitAndIdempotent(t *testing.T) {
	ctx := context.Background()
	l, _, _, uid := setup(t, 3)

	for i := 0; i < 3; i++ {
		res, err := l.CheckAndReserve(ctx, uid)
		require.NoError(t, err)
		require.NoError(t, l.RecordUsage(ctx, res))
	}

	for i := 0; i < 2; i++ {
		_, err := l.CheckAndReserve(ctx, uid)
		require.Error(t, err)
		assert.ErrorIs(t, err, quota.ErrDailyLimitExceeded)
		var le *quota.LimitError
		require.True(t, errors.As(err, &le))
		assert.Equal(t, 3, le.Limit)
	}

	st, err := l.GetStatus(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 3, st.RequestsToday)
	assert.Equal(t, 0, st.RemainingRequests)
}

func TestNextDayResets(t *testing.T) {
	ctx := context.Background()
	l, store, clock, uid := setup(t, 3)

	for i := 0; i < 3; i++ {
		res, err := l.CheckAndReserve(ctx, uid)
		require.NoError(t, err)
		require.NoError(t, l.RecordUsage(ctx, res))
	}
	_, err := l.CheckAndReserve(ctx, uid)
	require.ErrorIs(t, err, quota.ErrDailyLimitExceeded)

	clock.Advance(24 * time.Hour)

	_, err = l.CheckAndReserve(ctx, uid)
	require.NoError(t, err)

	u, err := store.Users().GetByID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, u.RequestsToday)
	require.NotNil(t, u.LastRequestDate)
	assert.True(t, u.LastRequestDate.Equal(clock.Today()))
}

func TestGetStatusResetsStaleDate(t *testing.T) {
	ctx := context.Background()
	l, store, clock, uid := setup(t, 3)

	yesterday := clock.Today().AddDate(0, 0, -1)
	require.NoError(t, store.Users().SaveQuota(ctx, uid, 2, &yesterday))

	st, err := l.GetStatus(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, st.RequestsToday)
	assert.Equal(t, 3, st.RemainingRequests)
	require.NotNil(t, st.LastRequestDate)
	assert.True(t, st.LastRequestDate.Equal(clock.Today()))

	u, err := store.Users().GetByID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, u.RequestsToday, "reset is persisted")
}

func TestReleaseReturnsUnit(t *testing.T) {
	ctx := context.Background()
	l, _, _, uid := setup(t, 1)

	res, err := l.CheckAndReserve(ctx, uid)
	require.NoError(t, err)
	_, err = l.CheckAndReserve(ctx, uid)
	require.ErrorIs(t, err, quota.ErrDailyLimitExceeded, "held unit counts against the limit")

	require.NoError(t, l.Release(ctx, res))
	require.NoError(t, l.Release(ctx, res))

	_, err = l.CheckAndReserve(ctx, uid)
	require.NoError(t, err)
}

func TestAbandonedReservationExpires(t *testing.T) {
	ctx := context.Background()
	l, _, clock, uid := setup(t, 1)

	_, err := l.CheckAndReserve(ctx, uid)
	require.NoError(t, err)

	clock.Advance(3 * time.Minute)
	_, err = l.CheckAndReserve(ctx, uid)
	require.NoError(t, err)

	st, err := l.GetStatus(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, st.RequestsToday)
}

func TestLapsedReservationStillCounts(t *testing.T) {
	ctx := context.Background()
	l, _, clock, uid := setup(t, 1)

	slow, err := l.CheckAndReserve(ctx, uid)
	require.NoError(t, err)

	clock.Advance(3 * time.Minute)
	fast, err := l.CheckAndReserve(ctx, uid)
	require.NoError(t, err)

	require.NoError(t, l.RecordUsage(ctx, fast))
	require.NoError(t, l.RecordUsage(ctx, slow), "completed action is counted even after its hold lapsed")

	st, err := l.GetStatus(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 2, st.RequestsToday)
	assert.Equal(t, 0, st.RemainingRequests)

	_, err = l.CheckAndReserve(ctx, uid)
	assert.ErrorIs(t, err, quota.ErrDailyLimitExceeded)
}

func TestReleasedReservationCannotBeRecorded(t *testing.T) {
	ctx := context.Background()
	l, _, _, uid := setup(t, 2)

	res, err := l.CheckAndReserve(ctx, uid)
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx, res))
	assert.ErrorIs(t, l.RecordUsage(ctx, res), quota.ErrReservationNotFound)

	st, err := l.GetStatus(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, st.RequestsToday)
}

func TestConcurrentLastUnitAdmitsExactlyOne(t *testing.T) {
	ctx := context.Background()
	l, store, clock, uid := setup(t, 3)
	today := clock.Today()
	require.NoError(t, store.Users().SaveQuota(ctx, uid, 2, &today))

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		denied   int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := l.CheckAndReserve(ctx, uid)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				admitted++
			} else if errors.Is(err, quota.ErrDailyLimitExceeded) {
				denied++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, workers-1, denied)
}

func TestUnknownUser(t *testing.T) {
	l, _, _, _ := setup(t, 3)
	_, err := l.CheckAndReserve(context.Background(), "missing")
	assert.ErrorIs(t, err, quota.ErrUserNotFound)
	_, err = l.GetStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, quota.ErrUserNotFound)
}
