package service

import (
	"context"
	"errors"
	"time"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/draft"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/infra"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const draftCacheTTL = 30 * time.Minute

// fillIfCurrent caches ARGV[2] under KEYS[2] only while the generation in
// KEYS[1] still equals ARGV[1]. A write that landed after the read bumped it.
var fillIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

var (
	ErrDraftNotFound   = errors.New("draft not found")
	ErrInvalidDraftKey = errors.New("draft key needs shop, user and product")
)

// DraftService fronts the draft store with a Redis read-through cache.
type DraftService interface {
	Get(ctx context.Context, key draft.Key) (*draft.Draft, error)
	Save(ctx context.Context, key draft.Key, d draft.Draft) error
	Delete(ctx context.Context, key draft.Key) error
	List(ctx context.Context, shop, userID string) ([]draft.Key, error)
}

type draftService struct {
	store draft.Store
	rdb   *redis.Client // nil disables caching
	now   func() time.Time
}

func NewDraftService(store draft.Store, rdb *redis.Client) DraftService {
	return &draftService{store: store, rdb: rdb, now: time.Now}
}

func cacheKey(key draft.Key) string {
	return infra.DraftCacheKey(key.TenantID, key.ActorID, key.ProductID, key.VariantID)
}

func generationKey(key draft.Key) string {
	return infra.DraftGenerationKey(key.TenantID, key.ActorID, key.ProductID, key.VariantID)
}

func (s *draftService) Get(ctx context.Context, key draft.Key) (*draft.Draft, error) {
	if !key.Valid() {
		return nil, ErrInvalidDraftKey
	}

	gen := "0"
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey(key)).Bytes(); err == nil {
			if d, decErr := draft.Decode(cached); decErr == nil {
				metrics.CacheLookupsTotal.WithLabelValues("draft", metrics.ResultHit).Inc()
				return d, nil
			}
		}
		metrics.CacheLookupsTotal.WithLabelValues("draft", metrics.ResultMiss).Inc()
		gen = s.generation(ctx, key)
	}

	d, err := s.store.Get(ctx, key)
	if errors.Is(err, draft.ErrNotFound) {
		metrics.DraftOperationsTotal.WithLabelValues("get", metrics.ResultNotFound).Inc()
		return nil, ErrDraftNotFound
	}
	if err != nil {
		metrics.DraftOperationsTotal.WithLabelValues("get", metrics.ResultError).Inc()
		return nil, err
	}
	metrics.DraftOperationsTotal.WithLabelValues("get", metrics.ResultOK).Inc()

	if s.rdb != nil {
		s.fill(context.WithoutCancel(ctx), key, gen, d)
	}
	return d, nil
}

// generation reads the write counter observed before a store read.
func (s *draftService) generation(ctx context.Context, key draft.Key) string {
	gen, err := s.rdb.Get(ctx, generationKey(key)).Result()
	if err != nil {
		return "0"
	}
	return gen
}

// fill populates the cache, best effort, unless a write happened since gen
// was observed.
func (s *draftService) fill(ctx context.Context, key draft.Key, gen string, d *draft.Draft) {
	b, err := draft.Encode(*d)
	if err != nil {
		return
	}
	keys := []string{generationKey(key), cacheKey(key)}
	if err := fillIfCurrent.Run(ctx, s.rdb, keys, gen, b, draftCacheTTL.Milliseconds()).Err(); err != nil {
		log.Debug().Err(err).Str("shop", key.TenantID).Msg("draft_service: cache fill failed")
	}
}

// Save stamps UpdatedAt and replaces the stored draft wholesale.
func (s *draftService) Save(ctx context.Context, key draft.Key, d draft.Draft) error {
	if !key.Valid() {
		return ErrInvalidDraftKey
	}
	d.UpdatedAt = s.now().UTC()
	if key.VariantID == "" {
		d.VariantID = nil
	} else {
		v := key.VariantID
		d.VariantID = &v
	}

	if err := s.store.Put(ctx, key, d); err != nil {
		metrics.DraftOperationsTotal.WithLabelValues("put", metrics.ResultError).Inc()
		return err
	}
	metrics.DraftOperationsTotal.WithLabelValues("put", metrics.ResultOK).Inc()
	s.invalidate(ctx, key)
	return nil
}

func (s *draftService) Delete(ctx context.Context, key draft.Key) error {
	if !key.Valid() {
		return ErrInvalidDraftKey
	}
	if err := s.store.Delete(ctx, key); err != nil {
		metrics.DraftOperationsTotal.WithLabelValues("delete", metrics.ResultError).Inc()
		return err
	}
	metrics.DraftOperationsTotal.WithLabelValues("delete", metrics.ResultOK).Inc()
	s.invalidate(ctx, key)
	return nil
}

func (s *draftService) List(ctx context.Context, shop, userID string) ([]draft.Key, error) {
	if shop == "" || userID == "" {
		return nil, ErrInvalidDraftKey
	}
	return s.store.List(ctx, shop, userID)
}

func (s *draftService) invalidate(ctx context.Context, key draft.Key) {
	if s.rdb == nil {
		return
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(key))
		pipe.Expire(ctx, generationKey(key), 2*draftCacheTTL)
		pipe.Del(ctx, cacheKey(key))
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("shop", key.TenantID).Str("product_id", key.ProductID).
			Msg("draft_service: cache invalidation failed")
	}
}
