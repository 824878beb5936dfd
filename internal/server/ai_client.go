package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ryoforge/backend/internal/config"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Conversation []ChatTurn
	UserMessage  string
	Temperature  float64
	MaxTokens    int
}

type CompletionResponse struct {
	Text  string
	Model string
	Usage CompletionUsage
}

// CompletionClient makes exactly one upstream call per Complete. Retrying is
// left to the caller.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

var errEmptyCompletion = errors.New("completion is empty")

// OpenAIChatClient talks to any OpenAI-compatible /chat/completions endpoint
// (OpenAI, Groq).
type OpenAIChatClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOpenAIChatClient(cfg config.Config) *OpenAIChatClient {
	timeoutSeconds := cfg.AITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}
	return &OpenAIChatClient{
		apiKey:  strings.TrimSpace(cfg.OpenAIAPIKey),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/"),
		model:   strings.TrimSpace(cfg.OpenAIModel),
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionPayload struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
}

type chatCompletionResult struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatCompletionMessage `json:"message"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Usage CompletionUsage `json:"usage"`
}

func (c *OpenAIChatClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if c.apiKey == "" {
		return CompletionResponse{}, errors.New("OPENAI_API_KEY is not configured")
	}
	if c.baseURL == "" {
		return CompletionResponse{}, errors.New("OPENAI_BASE_URL is not configured")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	if model == "" {
		return CompletionResponse{}, errors.New("OPENAI_MODEL is not configured")
	}

	bodyRaw, err := json.Marshal(chatCompletionPayload{
		Model:       model,
		Messages:    buildChatMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return CompletionResponse{}, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyRaw))
	if err != nil {
		return CompletionResponse{}, err
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return CompletionResponse{}, err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return CompletionResponse{}, err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return CompletionResponse{}, fmt.Errorf(
			"chat completions error (%d): %s",
			response.StatusCode,
			truncateForLog(string(responseBody), 400),
		)
	}

	var parsed chatCompletionResult
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return CompletionResponse{}, fmt.Errorf("decode chat completion: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return CompletionResponse{}, errEmptyCompletion
	}
	if parsed.Model == "" {
		parsed.Model = model
	}
	return CompletionResponse{
		Text:  strings.TrimSpace(parsed.Choices[0].Message.Content),
		Model: parsed.Model,
		Usage: parsed.Usage,
	}, nil
}

// buildChatMessages lays out system prompt, prior turns and the new message
// in that order. Turns with unknown roles or no content are dropped.
func buildChatMessages(req CompletionRequest) []chatCompletionMessage {
	messages := make([]chatCompletionMessage, 0, len(req.Conversation)+2)
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		messages = append(messages, chatCompletionMessage{Role: "system", Content: system})
	}
	for _, turn := range req.Conversation {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		if role != "user" && role != "assistant" {
			continue
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		messages = append(messages, chatCompletionMessage{Role: role, Content: content})
	}
	messages = append(messages, chatCompletionMessage{Role: "user", Content: req.UserMessage})
	return messages
}

// MockCompletionClient echoes the message back; used with AI_PROVIDER=mock.
type MockCompletionClient struct {
	Model string
}

func (m MockCompletionClient) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	question := strings.TrimSpace(req.UserMessage)
	if question == "" {
		question = "No question provided."
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = strings.TrimSpace(m.Model)
	}
	if model == "" {
		model = "mock"
	}
	return CompletionResponse{
		Text:  "**Mock response:** " + question,
		Model: model,
		Usage: CompletionUsage{PromptTokens: 120, CompletionTokens: 80, TotalTokens: 200},
	}, nil
}

// NewCompletionClient picks the provider named by AI_PROVIDER. The returned
// close func releases provider resources and is never nil.
func NewCompletionClient(ctx context.Context, cfg config.Config) (CompletionClient, func() error, error) {
	noClose := func() error { return nil }
	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		return NewOpenAIChatClient(cfg), noClose, nil
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, noClose, err
		}
		return client, client.Close, nil
	case config.ProviderMock:
		return MockCompletionClient{Model: cfg.OpenAIModel}, noClose, nil
	}
	return nil, noClose, fmt.Errorf("unsupported AI_PROVIDER %q", cfg.AIProvider)
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}
