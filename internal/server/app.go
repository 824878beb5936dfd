package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"ryoforge/backend/internal/config"
	"ryoforge/backend/internal/logger"
	"ryoforge/backend/internal/prompts"
)

type App struct {
	cfg        config.Config
	log        *logger.Logger
	store      Store
	cache      ProfileCache
	completion CompletionClient
	identity   IdentityProvider
	tokens     *TokenIssuer
	prompts    *prompts.Manager
	now        func() time.Time
	location   *time.Location
}

// Deps are the collaborators the HTTP layer needs. Cache, Logger and Now are
// optional.
type Deps struct {
	Store      Store
	Cache      ProfileCache
	Completion CompletionClient
	Identity   IdentityProvider
	Prompts    *prompts.Manager
	Logger     *logger.Logger
	Now        func() time.Time
}

func New(cfg config.Config, deps Deps) *App {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	cache := deps.Cache
	if cache == nil {
		cache = NewNoopProfileCache()
	}
	return &App{
		cfg:        cfg,
		log:        log,
		store:      deps.Store,
		cache:      cache,
		completion: deps.Completion,
		identity:   deps.Identity,
		tokens:     NewTokenIssuer(cfg, now),
		prompts:    deps.Prompts,
		now:        now,
		location:   cfg.GreetingLocation(),
	}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(otelgin.Middleware(a.serviceName()))
	router.Use(RequestLogger(a.log), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.health)

	public := router.Group(a.cfg.APIPrefix)
	public.POST("/auth/google/session", a.googleSession)

	api := router.Group(a.cfg.APIPrefix)
	api.Use(a.authMiddleware())

	api.GET("/auth/check", a.authCheck)
	api.GET("/profile/me", a.getMyProfile)
	api.GET("/agents", a.listAgents)
	api.POST("/onboarding", a.submitOnboarding)
	api.POST("/chat", a.submitMessage)
	api.GET("/chat/history", a.fetchHistory)
	api.DELETE("/chat/history", a.clearHistory)

	return router
}

func (a *App) serviceName() string {
	name := strings.TrimSpace(a.cfg.AppName)
	if name == "" {
		return "ryoforge-api"
	}
	return name
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ryoforge-api",
		"prompts": a.prompts.Metadata().Version,
	})
}

func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}
		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}

		user, err := a.tokens.Verify(tokenString)
		if err != nil {
			writeError(c, http.StatusUnauthorized, err.Error())
			return
		}

		c.Set("authUser", user)
		c.Next()
	}
}

func authUserFromContext(c *gin.Context) (Identity, bool) {
	raw, ok := c.Get("authUser")
	if !ok {
		return Identity{}, false
	}
	user, ok := raw.(Identity)
	return user, ok
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// loadProfile reads through the cache. ErrProfileNotFound is returned as is.
func (a *App) loadProfile(ctx context.Context, externalID string) (UserProfile, error) {
	if profile, ok := a.cache.Get(ctx, externalID); ok {
		return profile, nil
	}
	profile, err := a.store.GetProfile(ctx, externalID)
	if err != nil {
		return UserProfile{}, err
	}
	a.cache.Set(ctx, profile)
	return profile, nil
}

// loadOptionalProfile treats a missing profile as empty rather than failing.
func (a *App) loadOptionalProfile(ctx context.Context, externalID string) (UserProfile, bool, error) {
	profile, err := a.loadProfile(ctx, externalID)
	if errors.Is(err, ErrProfileNotFound) {
		return UserProfile{}, false, nil
	}
	if err != nil {
		return UserProfile{}, false, err
	}
	return profile, true, nil
}
