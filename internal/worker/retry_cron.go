package worker

// Moves jobs whose retry time has come from RetrySet back onto their queue.

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 50
)

// StartRetryCron ticks every 30s until ctx is cancelled.
func StartRetryCron(ctx context.Context, rdb *redis.Client) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				if n, err := requeueDue(ctx, rdb, time.Now()); err != nil {
					log.Error().Err(err).Msg("retry_cron: requeue failed")
				} else if n > 0 {
					log.Info().Int("count", n).Msg("retry_cron: jobs requeued")
				}
			}
		}
	}()
}

// requeueDue moves up to retryBatchSize due jobs back to their queues. Only
// the instance whose ZREM succeeds pushes a job, so concurrent crons never
// duplicate one.
func requeueDue(ctx context.Context, rdb *redis.Client, now time.Time) (int, error) {
	members, err := rdb.ZRangeByScore(ctx, RetrySet, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: retryBatchSize,
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, m := range members {
		removed, err := rdb.ZRem(ctx, RetrySet, m).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}

		var job Job
		queue := ""
		if json.Unmarshal([]byte(m), &job) == nil {
			queue = queueFor[job.Type]
		}
		if queue == "" {
			SendToDLQ(ctx, rdb, RetrySet, job.Type, json.RawMessage(m), "unroutable retry", job.Attempts)
			continue
		}
		if err := rdb.LPush(ctx, queue, m).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}
