package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ryoforge/backend/internal/onboarding"
	"ryoforge/backend/internal/prompts"
)

const (
	personalizationClause = "\n\nUser Context: "
	guidanceClause        = "\n\nGUIDANCE: "

	detailGenerateFailed = "Failed to generate a response"
	detailSaveFailed     = "Failed to save chat message"
)

var tracer = otel.Tracer("ryoforge/backend/internal/server")

type chatTurnInput struct {
	User    Identity
	AgentID string
	Message string
}

type chatTurnResult struct {
	Response  string
	Category  prompts.Category
	Agent     prompts.Agent
	Flagged   bool
	MessageID string
}

// runChatTurn handles one inbound message end to end. Every path that returns
// without error has persisted exactly one ChatMessage; every error path has
// persisted nothing.
func (a *App) runChatTurn(ctx context.Context, in chatTurnInput) (chatTurnResult, error) {
	agent, ok := a.prompts.Agent(in.AgentID)
	if !ok {
		return chatTurnResult{}, badRequest("Invalid agent_id", fmt.Errorf("%w: %q", prompts.ErrUnknownAgent, in.AgentID))
	}

	category := a.prompts.Categorize(in.Message)
	resolution := a.prompts.Resolve(category)
	result := chatTurnResult{Category: category, Agent: agent, Flagged: resolution.Flagged}

	if resolution.IsTerminal() {
		result.Response = resolution.Terminal
		return a.persistTurn(ctx, in, result)
	}

	var (
		profile UserProfile
		history []ChatTurn
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if profile, _, err = a.loadOptionalProfile(gctx, in.User.ExternalID); err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if history, err = a.conversationHistory(gctx, in.User.ExternalID, agent.ID); err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return chatTurnResult{}, internalError(detailGenerateFailed, err)
	}

	systemPrompt, err := a.buildSystemPrompt(agent.ID, profile, in.Message, resolution)
	if err != nil {
		return chatTurnResult{}, badRequest("Invalid agent_id", err)
	}

	completion, err := a.complete(ctx, agent.ID, category, CompletionRequest{
		SystemPrompt: systemPrompt,
		Conversation: history,
		UserMessage:  in.Message,
		Temperature:  a.cfg.AITemperature,
		MaxTokens:    a.cfg.AIMaxOutputTokens,
	})
	if err != nil {
		return chatTurnResult{}, internalError(detailGenerateFailed, err)
	}

	text := stripMarkup(completion.Text)
	if text == "" {
		return chatTurnResult{}, internalError(detailGenerateFailed, errEmptyCompletion)
	}
	if category == prompts.CategoryGreeting {
		name := profile.Name
		if strings.TrimSpace(name) == "" {
			name = in.User.Name
		}
		text = a.prompts.Greeting(agent.ID, name, a.now().In(a.location)) + text
	}
	result.Response = text
	return a.persistTurn(ctx, in, result)
}

// buildSystemPrompt appends the personalization and guidance clauses to the
// persona prompt. Personalization only rides along with health questions.
func (a *App) buildSystemPrompt(agentID string, profile UserProfile, message string, resolution prompts.Resolution) (string, error) {
	base, err := a.prompts.SystemPrompt(agentID, onboarding.IsMedicalProfessional(profile.OnboardingData))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(base)
	if profile.PersonalizedPrompt != nil && strings.TrimSpace(*profile.PersonalizedPrompt) != "" && a.prompts.IsHealthRelated(message) {
		b.WriteString(personalizationClause)
		b.WriteString(*profile.PersonalizedPrompt)
	}
	if resolution.Guidance != "" {
		b.WriteString(guidanceClause)
		b.WriteString(resolution.Guidance)
	}
	return b.String(), nil
}

// conversationHistory returns the recent turns with this agent, oldest first.
// Empty and oversize messages never reached the model, so they are skipped.
func (a *App) conversationHistory(ctx context.Context, userID, agentID string) ([]ChatTurn, error) {
	limit := a.cfg.ChatHistoryLimit
	if limit <= 0 {
		return nil, nil
	}
	records, err := a.store.RecentChatMessages(ctx, userID, agentID, limit)
	if err != nil {
		return nil, err
	}
	turns := make([]ChatTurn, 0, len(records)*2)
	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		if record.Category == prompts.CategoryEmpty || record.Category == prompts.CategoryTooLong {
			continue
		}
		turns = append(turns,
			ChatTurn{Role: "user", Content: record.UserMessage},
			ChatTurn{Role: "assistant", Content: record.AIResponse},
		)
	}
	return turns, nil
}

func (a *App) complete(ctx context.Context, agentID string, category prompts.Category, req CompletionRequest) (CompletionResponse, error) {
	timeout := time.Duration(a.cfg.AITimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "completion.complete", trace.WithAttributes(
		attribute.String("chat.agent", agentID),
		attribute.String("chat.category", string(category)),
		attribute.Int("chat.history_turns", len(req.Conversation)),
	))
	defer span.End()

	started := a.now()
	resp, err := a.completion.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("completion timed out after %s: %w", timeout, err)
		}
		return CompletionResponse{}, err
	}
	span.SetAttributes(
		attribute.String("completion.model", resp.Model),
		attribute.Int("completion.total_tokens", resp.Usage.TotalTokens),
	)
	a.log.Debug("completion finished",
		"agent", agentID,
		"category", string(category),
		"model", resp.Model,
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", a.now().Sub(started).Milliseconds(),
	)
	return resp, nil
}

func (a *App) persistTurn(ctx context.Context, in chatTurnInput, result chatTurnResult) (chatTurnResult, error) {
	saved, err := a.store.InsertChatMessage(ctx, ChatMessage{
		UserID:      in.User.ExternalID,
		Agent:       result.Agent.ID,
		UserMessage: storedUserMessage(in.Message, result.Category),
		AIResponse:  result.Response,
		Category:    result.Category,
		Flagged:     result.Flagged,
		CreatedAt:   a.now().UTC(),
	})
	if err != nil {
		return chatTurnResult{}, internalError(detailSaveFailed, err)
	}
	result.MessageID = saved.ID
	if result.Flagged {
		a.log.Warn("flagged chat message",
			"user_id", in.User.ExternalID,
			"agent", result.Agent.ID,
			"category", string(result.Category),
			"message_id", saved.ID,
		)
	}
	return result, nil
}

// storedUserMessage cuts too_long messages to the length limit on a rune
// boundary. Other categories are stored as sent.
func storedUserMessage(message string, category prompts.Category) string {
	if category != prompts.CategoryTooLong {
		return message
	}
	runes := 0
	for i := range message {
		if runes == prompts.MaxMessageRunes {
			return message[:i]
		}
		runes++
	}
	return message
}
