package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// googleSession exchanges a Google access token for an app session token,
// creating or refreshing the profile on the way.
func (a *App) googleSession(c *gin.Context) {
	var req googleSessionRequest
	if !mustJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		writeError(c, http.StatusBadRequest, "access_token is required")
		return
	}

	ctx := c.Request.Context()
	identity, err := a.identity.FetchIdentity(ctx, req.AccessToken)
	if err != nil {
		a.log.Warn("identity lookup failed", "error", err)
		writeError(c, http.StatusUnauthorized, "Invalid Google access token")
		return
	}

	profile, err := a.store.UpsertProfileIdentity(ctx, identity)
	if err != nil {
		a.writeHTTPError(c, internalError("Failed to save profile", err))
		return
	}
	a.cache.Invalidate(ctx, identity.ExternalID)

	token, expiresAt, err := a.tokens.Issue(identity)
	if err != nil {
		a.writeHTTPError(c, internalError("Failed to issue session token", err))
		return
	}

	a.log.Info("session issued", "user_id", identity.ExternalID)
	c.JSON(http.StatusOK, sessionResponse{
		AccessToken:   token,
		TokenType:     "bearer",
		ExpiresAt:     expiresAt,
		User:          identity,
		HasOnboarding: profile.OnboardingCompleted,
	})
}

func (a *App) authCheck(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	profile, found, err := a.loadOptionalProfile(c.Request.Context(), user.ExternalID)
	if err != nil {
		a.writeHTTPError(c, internalError("Failed to load profile", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated":  true,
		"has_onboarding": found && profile.OnboardingCompleted,
		"user":           user,
	})
}

func (a *App) getMyProfile(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	profile, err := a.loadProfile(c.Request.Context(), user.ExternalID)
	if errors.Is(err, ErrProfileNotFound) {
		writeError(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		a.writeHTTPError(c, internalError("Failed to load profile", err))
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (a *App) listAgents(c *gin.Context) {
	agents := a.prompts.Agents()
	items := make([]agentView, 0, len(agents))
	for _, agent := range agents {
		items = append(items, toAgentView(agent))
	}
	c.JSON(http.StatusOK, gin.H{
		"agents":  items,
		"version": a.prompts.Metadata().Version,
	})
}
