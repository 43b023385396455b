package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueuePurge = "jobs:purge_shop"

	// RetrySet is a sorted set of failed jobs scored by their next attempt time.
	RetrySet = "jobs:retry"

	JobTypePurge = "purge_shop"

	// MaxJobAttempts is how many times a job runs before it goes to the DLQ.
	MaxJobAttempts = 5
)

// queueFor maps a job type to the list it is consumed from.
var queueFor = map[string]string{
	JobTypePurge: QueuePurge,
}

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Processor handles the payload of one job type. A returned error schedules a
// retry.
type Processor interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// WorkerHandlers holds the processor for each job type.
type WorkerHandlers struct {
	Purge Processor
}

func (h *WorkerHandlers) forType(jobType string) Processor {
	switch jobType {
	case JobTypePurge:
		return h.Purge
	}
	return nil
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// PurgePayload names the shop whose data is removed.
type PurgePayload struct {
	Shop string `json:"shop"`
}

// EnqueuePurge schedules removal of every draft, token and cache entry of shop.
func (d *Dispatcher) EnqueuePurge(ctx context.Context, shop string) error {
	return d.enqueue(ctx, JobTypePurge, PurgePayload{Shop: shop})
}

func (d *Dispatcher) enqueue(ctx context.Context, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queueFor[jobType], encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming every queue. The
// returned WaitGroup is done once all of them have seen ctx cancelled.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) *sync.WaitGroup {
	queues := make([]string, 0, len(queueFor))
	for _, q := range queueFor {
		queues = append(queues, q)
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, rdb, handlers, queues, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return &wg
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queues []string, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop, waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: brpop failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("worker: failed to unmarshal job")
		SendToDLQ(ctx, rdb, queue, "unknown", json.RawMessage(raw), "undecodable job", 0)
		metrics.JobsProcessedTotal.WithLabelValues(queue, metrics.ResultDLQ).Inc()
		return
	}

	p := handlers.forType(job.Type)
	if p == nil {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "no handler for job type", job.Attempts)
		metrics.JobsProcessedTotal.WithLabelValues(queue, metrics.ResultDLQ).Inc()
		return
	}

	err := p.Process(ctx, job.Payload)
	if err == nil {
		metrics.JobsProcessedTotal.WithLabelValues(queue, metrics.ResultOK).Inc()
		return
	}

	job.Attempts++
	if job.Attempts >= MaxJobAttempts {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload,
			fmt.Sprintf("max attempts (%d) exceeded: %s", MaxJobAttempts, err), job.Attempts)
		metrics.JobsProcessedTotal.WithLabelValues(queue, metrics.ResultDLQ).Inc()
		return
	}

	metrics.JobsProcessedTotal.WithLabelValues(queue, metrics.ResultError).Inc()
	next := time.Now().Add(computeRetryBackoff(job.Attempts))
	if schedErr := scheduleRetry(ctx, rdb, job, next); schedErr != nil {
		log.Error().Err(schedErr).Str("job_type", job.Type).Msg("worker: failed to schedule retry")
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "retry scheduling failed: "+err.Error(), job.Attempts)
		return
	}
	log.Warn().
		Err(err).
		Str("job_type", job.Type).
		Int("attempts", job.Attempts).
		Time("next_attempt_at", next).
		Msg("worker: job failed, retry scheduled")
}

func scheduleRetry(ctx context.Context, rdb *redis.Client, job Job, at time.Time) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.ZAdd(ctx, RetrySet, redis.Z{Score: float64(at.Unix()), Member: encoded}).Err()
}

// computeRetryBackoff doubles from 30s per attempt, capped at 30 minutes.
func computeRetryBackoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := 30 * time.Second
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= 30*time.Minute {
			return 30 * time.Minute
		}
	}
	return d
}
