package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates and validates a go-redis client connection.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

// Key layout. Everything a shop owns is prefixed with the shop domain so an
// uninstall can sweep it with one SCAN pattern.

func DraftCacheKey(shop, userID, productID, variantID string) string {
	return fmt.Sprintf("draft:%s:%s:%s:%s", shop, userID, productID, variantID)
}

// DraftGenerationKey counts writes to one draft; it shares the draft prefix so
// the uninstall sweep removes it too.
func DraftGenerationKey(shop, userID, productID, variantID string) string {
	return DraftCacheKey(shop, userID, productID, variantID) + ":gen"
}

func DraftCachePattern(shop string) string {
	return fmt.Sprintf("draft:%s:*", shop)
}

func ProductsCacheKey(shop, userID string) string {
	return fmt.Sprintf("products:%s:%s", shop, userID)
}

func ProductsCachePattern(shop string) string {
	return fmt.Sprintf("products:%s:*", shop)
}

func OAuthStateKey(nonce string) string {
	return "oauth_state:" + nonce
}

// DeleteByPattern removes every key matching pattern and returns how many went.
func DeleteByPattern(ctx context.Context, rdb *redis.Client, pattern string) (int64, error) {
	var deleted int64
	iter := rdb.Scan(ctx, 0, pattern, 200).Iterator()
	batch := make([]string, 0, 200)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := rdb.Del(ctx, batch...).Result()
		deleted += n
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, flush()
}
