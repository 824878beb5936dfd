package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ryoforge/backend/internal/onboarding"
)

// submitOnboarding validates the questionnaire, compiles the personalization
// paragraph and stores both. A repeat submission overwrites the previous one.
func (a *App) submitOnboarding(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var submission onboarding.Submission
	if !mustJSON(c, &submission) {
		return
	}

	data, err := onboarding.Normalize(submission, a.now())
	var validationErr *onboarding.ValidationError
	if errors.As(err, &validationErr) {
		writeError(c, http.StatusBadRequest, validationErr.Error())
		return
	}
	if err != nil {
		a.writeHTTPError(c, internalError("Failed to process onboarding", err))
		return
	}

	prompt := onboarding.Compile(data)
	ctx := c.Request.Context()
	profile, err := a.store.SaveOnboarding(ctx, user.ExternalID, data, prompt)
	if errors.Is(err, ErrProfileNotFound) {
		writeError(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		a.writeHTTPError(c, internalError("Failed to save onboarding", err))
		return
	}
	a.cache.Invalidate(ctx, user.ExternalID)

	a.log.Info("onboarding saved", "user_id", user.ExternalID, "profession", string(data.Profession))
	saved := data
	if profile.OnboardingData != nil {
		saved = *profile.OnboardingData
	}
	c.JSON(http.StatusOK, onboardingResponse{
		Success:            true,
		OnboardingData:     saved,
		PersonalizedPrompt: prompt,
	})
}
