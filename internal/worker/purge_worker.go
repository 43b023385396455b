package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/draft"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/infra"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PurgeWorker removes everything stored for a shop after it uninstalls the
// app: drafts, access tokens and cached entries. Every step is idempotent, so
// a retried job simply finishes what the failed attempt left.
type PurgeWorker struct {
	drafts draft.Store
	tokens repository.ShopTokenRepository
	rdb    *redis.Client // nil skips the cache sweep
}

func NewPurgeWorker(drafts draft.Store, tokens repository.ShopTokenRepository, rdb *redis.Client) *PurgeWorker {
	return &PurgeWorker{drafts: drafts, tokens: tokens, rdb: rdb}
}

// PurgeResult counts what one purge removed.
type PurgeResult struct {
	Drafts    int64
	Tokens    int64
	CacheKeys int64
}

func (w *PurgeWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload PurgePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("purge_worker: invalid payload: %w", err)
	}
	if !infra.ValidShopDomain(payload.Shop) {
		// nothing to retry for a malformed shop
		log.Warn().Str("shop", payload.Shop).Msg("purge_worker: invalid shop, skipping")
		return nil
	}

	res, err := w.Purge(ctx, payload.Shop)
	if err != nil {
		return err
	}
	log.Info().
		Str("shop", payload.Shop).
		Int64("drafts", res.Drafts).
		Int64("tokens", res.Tokens).
		Int64("cache_keys", res.CacheKeys).
		Msg("purge_worker: shop purged")
	return nil
}

// Purge runs the three deletions concurrently and reports the first failure.
func (w *PurgeWorker) Purge(ctx context.Context, shop string) (PurgeResult, error) {
	var res PurgeResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := w.drafts.PurgeTenant(gctx, shop)
		res.Drafts = n
		return err
	})
	g.Go(func() error {
		n, err := w.tokens.DeleteByShop(gctx, shop)
		res.Tokens = n
		return err
	})
	if w.rdb != nil {
		g.Go(func() error {
			var total int64
			var errs []error
			for _, pattern := range []string{infra.DraftCachePattern(shop), infra.ProductsCachePattern(shop)} {
				n, err := infra.DeleteByPattern(gctx, w.rdb, pattern)
				total += n
				errs = append(errs, err)
			}
			res.CacheKeys = total
			return errors.Join(errs...)
		})
	}

	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("purge_worker: purge %s: %w", shop, err)
	}
	return res, nil
}
