package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:      "postgres://localhost/test",
		JWTSecret:        "test-secret-1234567890",
		JWTAlgorithm:     "HS256",
		JWTTTLHours:      168,
		AIProvider:       ProviderMock,
		AITemperature:    0.7,
		GreetingTimeZone: "UTC",
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = " " }, want: "DATABASE_URL"},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, want: "JWT_SECRET is required"},
		{name: "insecure secret", mutate: func(c *Config) { c.JWTSecret = "fallback-secret" }, want: "insecure"},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "short" }, want: "too short"},
		{name: "openai without key", mutate: func(c *Config) { c.AIProvider = ProviderOpenAI }, want: "OPENAI_API_KEY"},
		{name: "gemini without key", mutate: func(c *Config) { c.AIProvider = ProviderGemini }, want: "GEMINI_API_KEY"},
		{name: "unknown provider", mutate: func(c *Config) { c.AIProvider = "llama" }, want: "not supported"},
		{name: "temperature", mutate: func(c *Config) { c.AITemperature = 3 }, want: "AI_TEMPERATURE"},
		{name: "timezone", mutate: func(c *Config) { c.GreetingTimeZone = "Mars/Olympus" }, want: "GREETING_TIMEZONE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("AI_PROVIDER", "Gemini")
	t.Setenv("AI_TEMPERATURE", "0.3")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("PROFILE_CACHE_TTL_SECONDS", "60")
	t.Setenv("CHAT_HISTORY_LIMIT", "not-a-number")

	cfg := Load()
	if cfg.AIProvider != ProviderGemini {
		t.Fatalf("expected lower-cased provider, got %q", cfg.AIProvider)
	}
	if cfg.AITemperature != 0.3 {
		t.Fatalf("expected temperature 0.3, got %v", cfg.AITemperature)
	}
	if len(cfg.CORSAllowOrigins) != 2 || cfg.CORSAllowOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowOrigins)
	}
	if cfg.ProfileCacheTTL != time.Minute {
		t.Fatalf("expected 1m cache ttl, got %v", cfg.ProfileCacheTTL)
	}
	if cfg.ChatHistoryLimit != 10 {
		t.Fatalf("expected fallback history limit, got %d", cfg.ChatHistoryLimit)
	}
	if cfg.JWTTTL() != 168*time.Hour {
		t.Fatalf("expected 7 day token validity, got %v", cfg.JWTTTL())
	}
}
