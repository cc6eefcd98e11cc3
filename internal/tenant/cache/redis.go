package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"aureon/internal/tenant/models"
	id "aureon/pkg/domain"
)

const (
	// redisKeyPrefix namespaces all tenant cache keys in a shared Redis.
	redisKeyPrefix = "aureon:"

	// redisIndexPrefix tracks which cache keys reference a tenant so
	// Invalidate can purge subdomain/domain/code entries without a scan.
	redisIndexPrefix = "aureon:tenant-index:"
)

// Redis caches resolved tenants in Redis so multiple instances share one
// resolution cache and admin invalidations take effect fleet-wide. Cache
// failures degrade to misses; a broken cache must never fail resolution.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis constructs a Redis-backed tenant cache.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (r *Redis) Get(ctx context.Context, key string) (*models.Tenant, bool) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil && r.logger != nil {
			r.logger.Warn("tenant cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var tenant models.Tenant
	if err := json.Unmarshal(raw, &tenant); err != nil {
		if r.logger != nil {
			r.logger.Warn("tenant cache entry corrupt", "key", key, "error", err)
		}
		return nil, false
	}
	return &tenant, true
}

func (r *Redis) Put(ctx context.Context, key string, tenant *models.Tenant) {
	raw, err := json.Marshal(tenant)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("tenant cache marshal failed", "key", key, "error", err)
		}
		return
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, redisKeyPrefix+key, raw, r.ttl)
	indexKey := redisIndexPrefix + tenant.ID.String()
	pipe.SAdd(ctx, indexKey, key)
	pipe.Expire(ctx, indexKey, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil && r.logger != nil {
		r.logger.Warn("tenant cache write failed", "key", key, "error", err)
	}
}

func (r *Redis) Invalidate(ctx context.Context, tenantID id.TenantID) {
	if tenantID.IsNil() {
		r.invalidateAll(ctx)
		return
	}

	indexKey := redisIndexPrefix + tenantID.String()
	keys, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("tenant cache invalidate failed", "tenant_id", tenantID.String(), "error", err)
		}
		return
	}

	prefixed := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		prefixed = append(prefixed, redisKeyPrefix+k)
	}
	prefixed = append(prefixed, indexKey)
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil && r.logger != nil {
		r.logger.Warn("tenant cache invalidate failed", "tenant_id", tenantID.String(), "error", err)
	}
}

func (r *Redis) invalidateAll(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		if r.logger != nil {
			r.logger.Warn("tenant cache scan failed", "error", err)
		}
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil && r.logger != nil {
		r.logger.Warn("tenant cache clear failed", "error", err)
	}
}

var _ Cache = (*Redis)(nil)
