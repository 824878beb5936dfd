package server

import (
	"time"

	"ryoforge/backend/internal/onboarding"
	"ryoforge/backend/internal/prompts"
)

type googleSessionRequest struct {
	AccessToken string `json:"access_token"`
}

type sessionResponse struct {
	AccessToken   string    `json:"access_token"`
	TokenType     string    `json:"token_type"`
	ExpiresAt     time.Time `json:"expires_at"`
	User          Identity  `json:"user"`
	HasOnboarding bool      `json:"has_onboarding"`
}

// chatRequest uses pointers so a missing field can be told apart from an
// empty string.
type chatRequest struct {
	Message *string `json:"message"`
	AgentID *string `json:"agent_id"`
}

type chatResponse struct {
	Response  string           `json:"response"`
	Category  prompts.Category `json:"category"`
	Agent     string           `json:"agent"`
	AgentName string           `json:"agent_name"`
	Flagged   bool             `json:"flagged"`
	MessageID string           `json:"message_id"`
}

type historyResponse struct {
	Messages []ChatMessage `json:"messages"`
	Count    int           `json:"count"`
}

type clearHistoryResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

type agentView struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	GreetingStyle   prompts.GreetingStyle  `json:"greeting_style"`
	ResponseLength  prompts.ResponseLength `json:"response_length"`
	Specializations []string               `json:"specializations"`
	HasMedicoPrompt bool                   `json:"has_medico_prompt"`
}

type onboardingResponse struct {
	Success            bool            `json:"success"`
	OnboardingData     onboarding.Data `json:"onboarding_data"`
	PersonalizedPrompt string          `json:"personalized_prompt"`
}

func toAgentView(agent prompts.Agent) agentView {
	specializations := agent.Specializations
	if specializations == nil {
		specializations = []string{}
	}
	return agentView{
		ID:              agent.ID,
		Name:            agent.Name,
		Description:     agent.Description,
		GreetingStyle:   agent.GreetingStyle,
		ResponseLength:  agent.ResponseLength,
		Specializations: specializations,
		HasMedicoPrompt: agent.SystemPromptMedico != nil,
	}
}
