package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"ryoforge/backend/internal/prompts"
)

func seedMessages(t *testing.T, store *memStore, userID, agent string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		_, err := store.InsertChatMessage(context.Background(), ChatMessage{
			UserID:      userID,
			Agent:       agent,
			UserMessage: fmt.Sprintf("%s question %d", agent, i),
			AIResponse:  fmt.Sprintf("%s answer %d", agent, i),
			Category:    prompts.CategoryGeneral,
			CreatedAt:   morningClock.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}
}

func TestClearHistoryScopedToAgent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	seedMessages(t, env.store, "user-clear", "jiva", 5)
	seedMessages(t, env.store, "user-clear", "suri", 2)
	seedMessages(t, env.store, "someone-else", "jiva", 3)
	token := signToken(t, "user-clear", nil)

	rec := performRequest(t, env.router, http.MethodDelete, "/api/v1/chat/history?agent=jiva", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeJSONMap(t, rec)["deleted_count"]; got != float64(5) {
		t.Fatalf("expected 5 deleted, got %v", got)
	}

	remaining, _ := env.store.RecentChatMessages(context.Background(), "user-clear", "", 100)
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(remaining))
	}
	for _, msg := range remaining {
		if msg.Agent != "suri" {
			t.Fatalf("expected only suri messages left, got %q", msg.Agent)
		}
	}
	if others, _ := env.store.RecentChatMessages(context.Background(), "someone-else", "", 100); len(others) != 3 {
		t.Fatalf("expected other users untouched, got %d", len(others))
	}
}

func TestClearHistoryAllAgents(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	seedMessages(t, env.store, "user-wipe", "jiva", 2)
	seedMessages(t, env.store, "user-wipe", "normal", 1)
	token := signToken(t, "user-wipe", nil)

	rec := performRequest(t, env.router, http.MethodDelete, "/api/v1/chat/history", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeJSONMap(t, rec)["deleted_count"]; got != float64(3) {
		t.Fatalf("expected 3 deleted, got %v", got)
	}
}

func TestClearHistoryRejectsUnknownAgent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	seedMessages(t, env.store, "user-bad", "jiva", 2)
	token := signToken(t, "user-bad", nil)

	rec := performRequest(t, env.router, http.MethodDelete, "/api/v1/chat/history?agent=ghost", token, nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env.store.messageCount() != 2 {
		t.Fatalf("expected nothing deleted")
	}
}

func TestFetchHistoryOldestFirstWithLimit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	seedMessages(t, env.store, "user-fetch", "jiva", 4)
	seedMessages(t, env.store, "user-fetch", "suri", 1)
	token := signToken(t, "user-fetch", nil)

	rec := performRequest(t, env.router, http.MethodGet, "/api/v1/chat/history?agent=jiva&limit=3", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	messages, _ := body["messages"].([]any)
	if len(messages) != 3 || body["count"] != float64(3) {
		t.Fatalf("expected 3 messages, got %v", body)
	}
	first, _ := messages[0].(map[string]any)
	last, _ := messages[2].(map[string]any)
	if first["message"] != "jiva question 1" || last["message"] != "jiva question 3" {
		t.Fatalf("expected the newest 3 in chronological order, got %v .. %v", first["message"], last["message"])
	}
	if last["response"] != "jiva answer 3" || last["agent"] != "jiva" {
		t.Fatalf("unexpected record shape: %v", last)
	}
}

func TestFetchHistoryEmptyAndBadLimit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := signToken(t, "user-none", nil)

	rec := performRequest(t, env.router, http.MethodGet, "/api/v1/chat/history", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if messages, ok := decodeJSONMap(t, rec)["messages"].([]any); !ok || len(messages) != 0 {
		t.Fatalf("expected empty list, got %s", rec.Body.String())
	}

	for _, limit := range []string{"0", "-2", "ten"} {
		rec = performRequest(t, env.router, http.MethodGet, "/api/v1/chat/history?limit="+limit, token, nil, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for limit %q, got %d", limit, rec.Code)
		}
	}
}

func TestFetchHistoryClampsLimit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	seedMessages(t, env.store, "user-many", "normal", historyMaxLimit+5)
	token := signToken(t, "user-many", nil)

	rec := performRequest(t, env.router, http.MethodGet, "/api/v1/chat/history?limit=1000", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeJSONMap(t, rec)["count"]; got != float64(historyMaxLimit) {
		t.Fatalf("expected %d, got %v", historyMaxLimit, got)
	}
}

func TestSubmitMessageRejectsOversizeBody(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := signToken(t, "user-oversize", nil)

	huge := strings.Repeat("a", 8<<20)
	rec := performRequest(t, env.router, http.MethodPost, "/api/v1/chat", token, chatBody(huge, "normal"), nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if env.store.messageCount() != 0 || env.completion.calls() != 0 {
		t.Fatalf("expected nothing persisted, got %d records", env.store.messageCount())
	}
}

func TestSubmitMessageTooLongStoresTruncatedText(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := signToken(t, "user-long", nil)

	long := strings.Repeat("é", prompts.MaxMessageRunes+1000)
	rec := performRequest(t, env.router, http.MethodPost, "/api/v1/chat", token, chatBody(long, "normal"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if category := decodeJSONMap(t, rec)["category"]; category != string(prompts.CategoryTooLong) {
		t.Fatalf("expected too_long, got %v", category)
	}
	stored := env.store.lastMessage(t).UserMessage
	if got := utf8.RuneCountInString(stored); got != prompts.MaxMessageRunes {
		t.Fatalf("expected stored message cut to %d runes, got %d", prompts.MaxMessageRunes, got)
	}
	if !utf8.ValidString(stored) {
		t.Fatalf("expected truncation on a rune boundary")
	}
}
