package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/fluxo-backend/internal/application/quota"
	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	"github.com/oksasatya/fluxo-backend/internal/infrastructure/memory"
	"github.com/oksasatya/fluxo-backend/internal/infrastructure/openrouter"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
)

type stubGenerator struct {
	err    error
	prompt string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return "better: " + prompt, nil
}

func newPromptService(t *testing.T, gen Generator) (*PromptService, *memory.Store, string) {
	t.Helper()
	store := memory.New()
	store.SeedStyles(entity.PromptStyle{ID: 1, Name: "Professional", Instruction: "Answer as an expert"})
	u := &entity.User{Email: "p@b.co", Password: "x", DailyLimit: 2}
	require.NoError(t, store.Users().Create(context.Background(), u))
	logger := helpers.NewNopLogger()
	ledger := quota.NewLedger(store, helpers.NewSystemClock(time.UTC), quota.Config{ReservationTTL: time.Minute}, logger)
	return &PromptService{Prompts: store.Prompts(), Quota: ledger, Generator: gen, Logger: logger}, store, u.ID
}

func intPtr(i int) *int { return &i }

func TestCreateRecordsUsage(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{}
	svc, _, uid := newPromptService(t, gen)

	p, err := svc.Create(ctx, uid, CreatePromptInput{OriginalPrompt: "write a poem", StyleID: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, "Answer as an expert: write a poem", gen.prompt)
	assert.Equal(t, "better: Answer as an expert: write a poem", p.GeneratedPrompt)

	st, err := svc.Limits(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, st.RequestsToday)
	assert.Equal(t, 1, st.RemainingRequests)

	hist, err := svc.History(ctx, uid, 0, 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, p.ID, hist[0].ID)
}

func TestCreateDeniedAtLimit(t *testing.T) {
	ctx := context.Background()
	svc, _, uid := newPromptService(t, &stubGenerator{})

	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, uid, CreatePromptInput{OriginalPrompt: "x"})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, uid, CreatePromptInput{OriginalPrompt: "x"})
	var le *quota.LimitError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 2, le.Limit)
}

func TestCreateReleasesOnGeneratorFailure(t *testing.T) {
	ctx := context.Background()
	svc, _, uid := newPromptService(t, &stubGenerator{err: openrouter.ErrGenerationTimeout})

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, uid, CreatePromptInput{OriginalPrompt: "x"})
		require.ErrorIs(t, err, openrouter.ErrGenerationTimeout, "failed generations never exhaust the quota")
	}
	st, err := svc.Limits(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, st.RequestsToday)
}

func TestCreateUnknownStyleDoesNotTouchQuota(t *testing.T) {
	ctx := context.Background()
	svc, _, uid := newPromptService(t, &stubGenerator{})

	_, err := svc.Create(ctx, uid, CreatePromptInput{OriginalPrompt: "x", StyleID: intPtr(42)})
	assert.ErrorIs(t, err, ErrStyleNotFound)
	st, err := svc.Limits(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 2, st.RemainingRequests)
}

func TestStylesCachedInRedis(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newPromptService(t, &stubGenerator{})
	mr := miniredis.RunT(t)
	svc.Redis = helpers.NewRedisClient(mr.Addr(), "", 0)

	styles, err := svc.Styles(ctx)
	require.NoError(t, err)
	require.Len(t, styles, 1)
	assert.True(t, mr.Exists(stylesCacheKey))

	store.SeedStyles(entity.PromptStyle{ID: 2, Name: "Creative"})
	cached, err := svc.Styles(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestSearchWithoutElasticsearch(t *testing.T) {
	svc, _, uid := newPromptService(t, &stubGenerator{})
	_, err := svc.Search(context.Background(), uid, "poem", 10)
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}
