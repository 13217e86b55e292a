// Package cache holds the best-effort Redis cache for retrieval results.
// Cache failures are logged and never fail a request.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss reports that the key was not cached.
var ErrMiss = errors.New("cache miss")

type RetrievalCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRetrievalCache(client *redis.Client, ttl time.Duration) *RetrievalCache {
	return &RetrievalCache{client: client, ttl: ttl}
}

// Key builds the cache key for one retrieval request. The query text is
// hashed so arbitrary input stays out of the keyspace.
func Key(ownerID, query string, topK, page, pageSize int) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("retrieval:%s:%s:%d:%d:%d", ownerID, hex.EncodeToString(sum[:8]), topK, page, pageSize)
}

func (c *RetrievalCache) Get(ctx context.Context, key string, dest any) error {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *RetrievalCache) Set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
	}
}

// InvalidateOwner drops every cached retrieval for the owner. Called after
// ingest, per-document delete and flush so stale pages never surface.
func (c *RetrievalCache) InvalidateOwner(ctx context.Context, ownerID string) {
	var cursor uint64
	pattern := fmt.Sprintf("retrieval:%s:*", ownerID)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("cache invalidation scan failed", "owner_id", ownerID, "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("cache invalidation delete failed", "owner_id", ownerID, "error", err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
