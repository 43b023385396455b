//go:build integration

package service

// Run with: go test -tags integration ./internal/service/... -v

import (
	"context"
	"testing"
	"time"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/draft"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	c, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	url, err := c.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestDraftService_CacheHitAfterFirstRead(t *testing.T) {
	ctx := context.Background()
	rdb := startRedis(t)
	svc := NewDraftService(draft.NewMemoryStore(), rdb).(*draftService)
	key := draft.Key{TenantID: "acme.myshopify.com", ActorID: "7", ProductID: "p1"}

	require.NoError(t, svc.Save(ctx, key, sampleDraft(2)))
	got, err := svc.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Step)

	n, err := rdb.Exists(ctx, cacheKey(key)).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, svc.Save(ctx, key, sampleDraft(3)))
	n, _ = rdb.Exists(ctx, cacheKey(key)).Result()
	assert.Zero(t, n, "save drops the cached copy")

	got, err = svc.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Step)
}

func TestDraftService_ReadOverlappingSaveDoesNotRecacheOldDraft(t *testing.T) {
	ctx := context.Background()
	rdb := startRedis(t)
	svc := NewDraftService(draft.NewMemoryStore(), rdb).(*draftService)
	key := draft.Key{TenantID: "acme.myshopify.com", ActorID: "7", ProductID: "p1", VariantID: "v1"}

	require.NoError(t, svc.Save(ctx, key, sampleDraft(1)))

	// A reader observes the generation and reads step 1 from the store...
	gen := svc.generation(ctx, key)
	old, err := svc.store.Get(ctx, key)
	require.NoError(t, err)

	// ...a save lands and invalidates before the reader fills the cache.
	require.NoError(t, svc.Save(ctx, key, sampleDraft(4)))
	svc.fill(ctx, key, gen, old)

	n, err := rdb.Exists(ctx, cacheKey(key)).Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := svc.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Step)

	ttl, err := rdb.PTTL(ctx, cacheKey(key)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
