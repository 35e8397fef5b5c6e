package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchfit/matchfit/internal/cachekey"
	"github.com/matchfit/matchfit/internal/providers/llm"
	"github.com/matchfit/matchfit/internal/utils"
)

func newOverviewService(provider *fakeProvider) (OverviewService, MatchCacheService) {
	cacheSvc := NewMatchCacheService(newFakeOverviewRepo(), newFakeMatchRepo(), nil, testLogger())
	return NewOverviewService(provider, cacheSvc, testLogger()), cacheSvc
}

func TestOverviewService_GenerateAndCache(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(llm.Request) (string, error) {
			return "A motivated intermediate client focused on weight loss.", nil
		},
	}
	svc, _ := newOverviewService(provider)
	ctx := context.Background()

	res, err := svc.Generate(ctx, testProfile())
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, "A motivated intermediate client focused on weight loss.", res.Overview)
	assert.Equal(t, 1, provider.calls())

	// Second call with an equivalent profile is served from cache.
	again, err := svc.Generate(ctx, testProfile())
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, res.Overview, again.Overview)
	assert.Equal(t, 1, provider.calls())
}

func TestOverviewService_ValidatesIntake(t *testing.T) {
	svc, _ := newOverviewService(&fakeProvider{})

	p := testProfile()
	p.Goals = nil

	_, err := svc.Generate(context.Background(), p)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestOverviewService_GenerateStream(t *testing.T) {
	provider := &fakeProvider{streamTokens: []string{"A motivated ", "intermediate ", "client."}}
	svc, cacheSvc := newOverviewService(provider)
	ctx := context.Background()

	var tokens []string
	res, err := svc.GenerateStream(ctx, testProfile(), func(tok string) bool {
		tokens = append(tokens, tok)
		return true
	})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, "A motivated intermediate client.", res.Overview)
	assert.Equal(t, []string{"A motivated ", "intermediate ", "client."}, tokens)

	key := cachekey.DeriveProfileKey(testProfile())
	cached, ok := cacheSvc.GetOverview(ctx, key)
	require.True(t, ok)
	assert.Equal(t, res.Overview, cached)
}

func TestOverviewService_GenerateStreamCacheHitEmitsNoTokens(t *testing.T) {
	provider := &fakeProvider{streamTokens: []string{"should not be used"}}
	svc, cacheSvc := newOverviewService(provider)
	ctx := context.Background()

	key := cachekey.DeriveProfileKey(testProfile())
	cacheSvc.PutOverview(ctx, key, testProfile(), "cached overview text")

	var tokens []string
	res, err := svc.GenerateStream(ctx, testProfile(), func(tok string) bool {
		tokens = append(tokens, tok)
		return true
	})
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, "cached overview text", res.Overview)
	assert.Empty(t, tokens)
}

func TestOverviewService_GenerateStreamAbortSkipsCache(t *testing.T) {
	provider := &fakeProvider{streamTokens: []string{"one ", "two ", "three ", "four"}}
	svc, cacheSvc := newOverviewService(provider)
	ctx := context.Background()

	seen := 0
	_, err := svc.GenerateStream(ctx, testProfile(), func(string) bool {
		seen++
		return seen < 2
	})
	require.ErrorIs(t, err, ErrStreamAborted)
	assert.Equal(t, 2, seen)

	key := cachekey.DeriveProfileKey(testProfile())
	_, ok := cacheSvc.GetOverview(ctx, key)
	assert.False(t, ok)
}

func TestOverviewService_GenerateStreamPropagatesProviderError(t *testing.T) {
	provider := &fakeProvider{
		streamTokens: []string{"partial "},
		streamErr:    utils.E(utils.CodeUnavailable, "test", "stream dropped", nil),
	}
	svc, cacheSvc := newOverviewService(provider)

	_, err := svc.GenerateStream(context.Background(), testProfile(), func(string) bool { return true })
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))

	key := cachekey.DeriveProfileKey(testProfile())
	_, ok := cacheSvc.GetOverview(context.Background(), key)
	assert.False(t, ok)
}

func TestOverviewService_GenerateStreamEmptyResponse(t *testing.T) {
	provider := &fakeProvider{streamTokens: []string{"   ", "\n"}}
	svc, _ := newOverviewService(provider)

	_, err := svc.GenerateStream(context.Background(), testProfile(), func(string) bool { return true })
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeBadResponse))
}
