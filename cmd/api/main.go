package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ryoforge/backend/internal/config"
	"ryoforge/backend/internal/db"
	"ryoforge/backend/internal/logger"
	"ryoforge/backend/internal/observability"
	"ryoforge/backend/internal/prompts"
	"ryoforge/backend/internal/server"
)

func main() {
	cfg := config.Load()
	appLog, err := logger.New(cfg.LogMode, cfg.LogLevel, cfg.LogSalt)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer appLog.Sync()

	if err := cfg.Validate(); err != nil {
		appLog.Fatal("invalid config", "error", err)
	}

	ctx := context.Background()
	shutdownTracing, err := observability.Init(ctx, appLog, observability.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  cfg.AppName,
		Environment:  cfg.AppEnv,
		Endpoint:     cfg.OTelEndpoint,
		Insecure:     cfg.OTelInsecure,
		SamplerRatio: cfg.OTelSamplerRatio,
	})
	if err != nil {
		appLog.Fatal("tracing init failed", "error", err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.WithMaxConns(cfg.DBMaxConns), db.WithHealthCheckPeriod(time.Minute))
	if err != nil {
		appLog.Fatal("database connect failed", "error", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		appLog.Fatal("database ping failed", "error", err)
	}
	if cfg.AutoMigrate {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			appLog.Fatal("database migrate failed", "error", err)
		}
	}
	if err := db.ValidateSchema(ctx, pool); err != nil {
		appLog.Fatal("database schema mismatch", "error", err)
	}

	registry, err := loadPrompts(cfg.PromptsFile)
	if err != nil {
		appLog.Fatal("persona registry load failed", "error", err, "path", cfg.PromptsFile)
	}

	cache := server.NewNoopProfileCache()
	if cfg.RedisURL != "" {
		cache, err = server.NewRedisProfileCache(ctx, appLog, cfg.RedisURL, cfg.ProfileCacheTTL)
		if err != nil {
			appLog.Warn("profile cache disabled", "error", err)
			cache = server.NewNoopProfileCache()
		}
	}
	defer cache.Close()

	completion, closeCompletion, err := server.NewCompletionClient(ctx, cfg)
	if err != nil {
		appLog.Fatal("completion client init failed", "error", err, "provider", cfg.AIProvider)
	}
	defer closeCompletion()

	app := server.New(cfg, server.Deps{
		Store:      server.NewPGStore(pool),
		Cache:      cache,
		Completion: completion,
		Identity:   server.NewGoogleIdentityProvider(),
		Prompts:    registry,
		Logger:     appLog,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("api listening", "port", cfg.AppPort, "provider", cfg.AIProvider, "personas_version", registry.Metadata().Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("graceful shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		appLog.Warn("tracer shutdown failed", "error", err)
	}
}

func loadPrompts(path string) (*prompts.Manager, error) {
	if path == "" {
		return prompts.LoadDefault()
	}
	return prompts.LoadFile(path)
}
