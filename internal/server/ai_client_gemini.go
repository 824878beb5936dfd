package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"ryoforge/backend/internal/config"
)

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, cfg config.Config) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: strings.TrimSpace(cfg.GeminiModel)}, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	name := strings.TrimSpace(req.Model)
	if name == "" {
		name = g.model
	}
	model := g.client.GenerativeModel(name)
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	session := model.StartChat()
	session.History = geminiHistory(req.Conversation)

	resp, err := session.SendMessage(ctx, genai.Text(req.UserMessage))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("gemini send message: %w", err)
	}
	text := geminiText(resp)
	if text == "" {
		return CompletionResponse{}, errEmptyCompletion
	}

	out := CompletionResponse{Text: text, Model: name}
	if resp.UsageMetadata != nil {
		out.Usage = CompletionUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// geminiHistory maps chat turns onto Gemini's user/model roles.
func geminiHistory(turns []ChatTurn) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		var role string
		switch strings.ToLower(strings.TrimSpace(turn.Role)) {
		case "user":
			role = "user"
		case "assistant":
			role = "model"
		default:
			continue
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(content)}})
	}
	return history
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
