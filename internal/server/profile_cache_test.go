package server

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"ryoforge/backend/internal/logger"
)

// countingCache is an in-memory ProfileCache that counts writes.
type countingCache struct {
	entries     map[string]UserProfile
	sets        int
	invalidates int
}

func (c *countingCache) Get(_ context.Context, id string) (UserProfile, bool) {
	p, ok := c.entries[id]
	return p, ok
}

func (c *countingCache) Set(_ context.Context, p UserProfile) {
	c.sets++
	c.entries[p.ExternalID] = p
}

func (c *countingCache) Invalidate(_ context.Context, id string) {
	c.invalidates++
	delete(c.entries, id)
}

func (c *countingCache) Close() error { return nil }

func TestLoadProfileReadsThroughCache(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cache := &countingCache{entries: map[string]UserProfile{}}
	env.app.cache = cache
	env.seedProfile(t, "user-cache", "Maria Lopez", nil)

	if _, err := env.app.loadProfile(context.Background(), "user-cache"); err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected cache fill on miss, got %d sets", cache.sets)
	}

	env.store.failGet = context.DeadlineExceeded
	profile, err := env.app.loadProfile(context.Background(), "user-cache")
	if err != nil || profile.Name != "Maria Lopez" {
		t.Fatalf("expected cached profile without store access, got %+v %v", profile, err)
	}
}

func TestOnboardingInvalidatesCachedProfile(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cache := &countingCache{entries: map[string]UserProfile{}}
	env.app.cache = cache
	env.seedProfile(t, "user-stale", "Maria Lopez", nil)
	token := signToken(t, "user-stale", nil)

	if _, err := env.app.loadProfile(context.Background(), "user-stale"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	rec := performRequest(t, env.router, "POST", "/api/v1/onboarding", token, map[string]any{
		"dateOfBirth": "1990-01-01",
		"profession":  "non-medico",
	}, nil)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cache.invalidates != 1 {
		t.Fatalf("expected one invalidation, got %d", cache.invalidates)
	}
	profile, _ := env.app.loadProfile(context.Background(), "user-stale")
	if !profile.OnboardingCompleted {
		t.Fatalf("expected fresh profile after invalidation")
	}
}

func TestNoopProfileCache(t *testing.T) {
	t.Parallel()
	cache := NewNoopProfileCache()
	cache.Set(context.Background(), UserProfile{ExternalID: "a"})
	if _, ok := cache.Get(context.Background(), "a"); ok {
		t.Fatalf("expected no-op cache to miss")
	}
}

func TestRedisProfileCache(t *testing.T) {
	redisURL := strings.TrimSpace(os.Getenv("TEST_REDIS_URL"))
	if redisURL == "" {
		t.Skip("redis tests skipped: TEST_REDIS_URL is not set")
	}
	ctx := context.Background()
	cache, err := NewRedisProfileCache(ctx, logger.Nop(), redisURL, time.Minute)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer cache.Close()

	id := "cache-" + testID()
	if _, ok := cache.Get(ctx, id); ok {
		t.Fatalf("expected miss before set")
	}
	cache.Set(ctx, UserProfile{ExternalID: id, Name: "Maria Lopez"})
	got, ok := cache.Get(ctx, id)
	if !ok || got.Name != "Maria Lopez" {
		t.Fatalf("expected cached profile, got %+v %v", got, ok)
	}
	cache.Invalidate(ctx, id)
	if _, ok := cache.Get(ctx, id); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestNewRedisProfileCacheRejectsBadURL(t *testing.T) {
	t.Parallel()
	if _, err := NewRedisProfileCache(context.Background(), logger.Nop(), "not a url", time.Minute); err == nil {
		t.Fatalf("expected parse error")
	}
}
