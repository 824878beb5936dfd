package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ryoforge/backend/internal/logger"
)

// ProfileCache is a best-effort read-through cache in front of the store.
// Failures are logged and treated as misses.
type ProfileCache interface {
	Get(ctx context.Context, externalID string) (UserProfile, bool)
	Set(ctx context.Context, profile UserProfile)
	Invalidate(ctx context.Context, externalID string)
	Close() error
}

type noopProfileCache struct{}

func NewNoopProfileCache() ProfileCache { return noopProfileCache{} }

func (noopProfileCache) Get(context.Context, string) (UserProfile, bool) { return UserProfile{}, false }
func (noopProfileCache) Set(context.Context, UserProfile)                {}
func (noopProfileCache) Invalidate(context.Context, string)              {}
func (noopProfileCache) Close() error                                    { return nil }

type redisProfileCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedisProfileCache(ctx context.Context, log *logger.Logger, redisURL string, ttl time.Duration) (ProfileCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	opts, err := goredis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisProfileCache{
		log: log.With("service", "ProfileCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func profileCacheKey(externalID string) string {
	return "profile:" + strings.TrimSpace(externalID)
}

func (r *redisProfileCache) Get(ctx context.Context, externalID string) (UserProfile, bool) {
	raw, err := r.rdb.Get(ctx, profileCacheKey(externalID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return UserProfile{}, false
	}
	if err != nil {
		r.log.Warn("profile cache get failed", "external_id", externalID, "error", err)
		return UserProfile{}, false
	}
	var profile UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		r.log.Warn("profile cache entry is corrupt", "external_id", externalID, "error", err)
		r.Invalidate(ctx, externalID)
		return UserProfile{}, false
	}
	return profile, true
}

func (r *redisProfileCache) Set(ctx context.Context, profile UserProfile) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, profileCacheKey(profile.ExternalID), raw, r.ttl).Err(); err != nil {
		r.log.Warn("profile cache set failed", "external_id", profile.ExternalID, "error", err)
	}
}

func (r *redisProfileCache) Invalidate(ctx context.Context, externalID string) {
	if err := r.rdb.Del(ctx, profileCacheKey(externalID)).Err(); err != nil {
		r.log.Warn("profile cache invalidate failed", "external_id", externalID, "error", err)
	}
}

func (r *redisProfileCache) Close() error {
	return r.rdb.Close()
}
