package logger

import (
	"strings"
	"testing"
)

func TestScrubRedactsSecrets(t *testing.T) {
	t.Parallel()
	l := &Logger{hashSalt: "salt"}

	out := l.scrub([]any{
		"access_token", "ya29.secret",
		"Authorization", "Bearer abc",
		"email", "maria@example.com",
		"agent", "jiva",
	})
	if out[1] != "[REDACTED]" || out[3] != "[REDACTED]" || out[5] != "[REDACTED]" {
		t.Fatalf("expected secrets redacted, got %v", out)
	}
	if out[7] != "jiva" {
		t.Fatalf("expected plain value kept, got %v", out[7])
	}
}

func TestScrubHashesUserIDs(t *testing.T) {
	t.Parallel()
	l := &Logger{hashSalt: "salt"}

	out := l.scrub([]any{"user_id", "google-123"})
	hashedValue, _ := out[1].(string)
	if !strings.HasPrefix(hashedValue, "hash:") || strings.Contains(hashedValue, "google-123") {
		t.Fatalf("expected hashed user id, got %q", hashedValue)
	}
	again := l.scrub([]any{"user_id", "google-123"})
	if again[1] != out[1] {
		t.Fatalf("expected stable hash, got %v and %v", out[1], again[1])
	}
}

func TestScrubRedactsJWTLookingValues(t *testing.T) {
	t.Parallel()
	l := &Logger{}

	jwtLike := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.signature"
	out := l.scrub([]any{"detail", jwtLike, "dangling"})
	if out[1] != "[REDACTED]" {
		t.Fatalf("expected JWT-shaped value redacted, got %v", out[1])
	}
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("expected dangling key preserved, got %v", out)
	}
}

func TestNopDoesNotPanic(t *testing.T) {
	t.Parallel()

	l := Nop().With("component", "test")
	l.Info("hello", "user_id", "abc")
	l.Sync()
}
