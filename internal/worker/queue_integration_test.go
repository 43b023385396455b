//go:build integration

package worker

// Run with: go test -tags integration ./internal/worker/... -v

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

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

type processorFunc func(ctx context.Context, payload json.RawMessage) error

func (f processorFunc) Process(ctx context.Context, payload json.RawMessage) error {
	return f(ctx, payload)
}

func popJob(t *testing.T, rdb *redis.Client) (string, string) {
	t.Helper()
	res, err := rdb.BRPop(context.Background(), time.Second, QueuePurge).Result()
	require.NoError(t, err)
	return res[0], res[1]
}

func TestQueue_FailedJobIsRetriedThenDeadLettered(t *testing.T) {
	ctx := context.Background()
	rdb := startRedis(t)
	calls := 0
	handlers := &WorkerHandlers{Purge: processorFunc(func(context.Context, json.RawMessage) error {
		calls++
		return errors.New("still failing")
	})}

	require.NoError(t, NewDispatcher(rdb).EnqueuePurge(ctx, "acme.myshopify.com"))

	for attempt := 1; attempt < MaxJobAttempts; attempt++ {
		queue, raw := popJob(t, rdb)
		processJob(ctx, rdb, handlers, queue, raw)

		n, err := rdb.ZCard(ctx, RetrySet).Result()
		require.NoError(t, err)
		require.EqualValues(t, 1, n, "attempt %d schedules a retry", attempt)

		moved, err := requeueDue(ctx, rdb, time.Now().Add(time.Hour))
		require.NoError(t, err)
		require.Equal(t, 1, moved)
	}

	queue, raw := popJob(t, rdb)
	processJob(ctx, rdb, handlers, queue, raw)

	assert.Equal(t, MaxJobAttempts, calls)
	n, err := DLQLength(ctx, rdb, QueuePurge)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	card, _ := rdb.ZCard(ctx, RetrySet).Result()
	assert.Zero(t, card)
}

func TestQueue_RetryNotDueStaysPut(t *testing.T) {
	ctx := context.Background()
	rdb := startRedis(t)
	job := Job{Type: JobTypePurge, Payload: json.RawMessage(`{"shop":"acme.myshopify.com"}`), Attempts: 1}
	require.NoError(t, scheduleRetry(ctx, rdb, job, time.Now().Add(time.Hour)))

	moved, err := requeueDue(ctx, rdb, time.Now())
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestQueue_WorkerPoolDrainsAndStops(t *testing.T) {
	rdb := startRedis(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan string, 1)
	handlers := &WorkerHandlers{Purge: processorFunc(func(_ context.Context, payload json.RawMessage) error {
		var p PurgePayload
		_ = json.Unmarshal(payload, &p)
		done <- p.Shop
		return nil
	})}
	wg := StartWorkerPool(ctx, rdb, handlers, 2)

	require.NoError(t, NewDispatcher(rdb).EnqueuePurge(context.Background(), "acme.myshopify.com"))
	select {
	case shop := <-done:
		assert.Equal(t, "acme.myshopify.com", shop)
	case <-time.After(10 * time.Second):
		t.Fatal("job was not processed")
	}

	cancel()
	wg.Wait()
}

func TestPurgeWorker_SweepsCache(t *testing.T) {
	ctx := context.Background()
	rdb := startRedis(t)
	drafts, tokens := seeded(t)

	require.NoError(t, rdb.Set(ctx, infra.DraftCacheKey(shop, "1", "p1", ""), "{}", time.Hour).Err())
	require.NoError(t, rdb.Set(ctx, infra.ProductsCacheKey(shop, "1"), "[]", time.Hour).Err())
	require.NoError(t, rdb.Set(ctx, infra.ProductsCacheKey("other.myshopify.com", "1"), "[]", time.Hour).Err())

	res, err := NewPurgeWorker(drafts, tokens, rdb).Purge(ctx, shop)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.CacheKeys)

	n, _ := rdb.Exists(ctx, infra.ProductsCacheKey("other.myshopify.com", "1")).Result()
	assert.EqualValues(t, 1, n)
}
