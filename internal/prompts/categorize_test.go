package prompts

import (
	"strings"
	"testing"
)

func mustDefaultManager(t *testing.T) *Manager {
	t.Helper()
	m, err := LoadDefault()
	if err != nil {
		t.Fatalf("load default prompt tables: %v", err)
	}
	return m
}

func TestCategorize(t *testing.T) {
	t.Parallel()
	m := mustDefaultManager(t)

	cases := []struct {
		name    string
		message string
		want    Category
	}{
		{name: "empty", message: "", want: CategoryEmpty},
		{name: "spaces only", message: "   ", want: CategoryEmpty},
		{name: "tabs and newlines", message: "\n\t ", want: CategoryEmpty},
		{name: "emergency wins over other topics", message: "I have chest pain and also want a recipe", want: CategoryEmergency},
		{name: "bare chest pain is not in the emergency table", message: "I have chest pain", want: CategoryGeneral},
		{name: "emergency wins over dangerous", message: "I overdosed, what is the lethal dose?", want: CategoryEmergency},
		{name: "dangerous", message: "What is a lethal dose of paracetamol?", want: CategoryDangerous},
		{name: "inappropriate", message: "Is watching porn bad for my sleep?", want: CategoryInappropriate},
		{name: "inappropriate is case-insensitive", message: "NSFW question about my body", want: CategoryInappropriate},
		{name: "inappropriate wins over non-health", message: "any nsfw movie recommendation", want: CategoryInappropriate},
		{name: "non-health", message: "What is the bitcoin price today?", want: CategoryNonHealth},
		{name: "greeting pattern", message: "Hello", want: CategoryGreeting},
		{name: "greeting pattern with spaces", message: "  good morning ", want: CategoryGreeting},
		{name: "greeting thanks", message: "thanks", want: CategoryGreeting},
		{name: "short message is greeting", message: "yo!", want: CategoryGreeting},
		{name: "routine suppresses consultation", message: "I've had a mild headache for weeks, getting worse", want: CategoryRoutineHealth},
		{name: "consultation", message: "I found a lump in my neck", want: CategoryConsultationNeeded},
		{name: "consultation getting worse", message: "my mole is getting worse", want: CategoryConsultationNeeded},
		{name: "routine", message: "I can't sleep at night", want: CategoryRoutineHealth},
		{name: "general", message: "Tell me about the history of Rome", want: CategoryGeneral},
		{name: "health but unrouted", message: "What should I eat for better digestion?", want: CategoryGeneral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := m.Categorize(tc.message); got != tc.want {
				t.Fatalf("expected %q for %q, got %q", tc.want, tc.message, got)
			}
		})
	}
}

func TestCategorizeLengthGuard(t *testing.T) {
	t.Parallel()
	m := mustDefaultManager(t)

	atLimit := strings.Repeat("a", MaxMessageRunes)
	if got := m.Categorize(atLimit); got != CategoryGeneral {
		t.Fatalf("expected general at exactly %d runes, got %q", MaxMessageRunes, got)
	}

	overLimit := strings.Repeat("a", MaxMessageRunes+1)
	if got := m.Categorize(overLimit); got != CategoryTooLong {
		t.Fatalf("expected too_long, got %q", got)
	}

	emergencyOverLimit := "severe chest pain " + strings.Repeat("a", MaxMessageRunes)
	if got := m.Categorize(emergencyOverLimit); got != CategoryTooLong {
		t.Fatalf("expected length guard before emergency, got %q", got)
	}

	// 3000 two-byte runes stay under the limit even though the byte length exceeds it.
	multibyte := strings.Repeat("é", 3000)
	if got := m.Categorize(multibyte); got == CategoryTooLong {
		t.Fatalf("expected rune count to be used, got too_long")
	}
}

func TestCategoryTerminal(t *testing.T) {
	t.Parallel()

	terminal := map[Category]bool{
		CategoryEmpty:              true,
		CategoryTooLong:            true,
		CategoryEmergency:          true,
		CategoryDangerous:          true,
		CategoryInappropriate:      true,
		CategoryNonHealth:          true,
		CategoryConsultationNeeded: false,
		CategoryRoutineHealth:      false,
		CategoryGreeting:           false,
		CategoryGeneral:            false,
	}
	for category, want := range terminal {
		if got := category.Terminal(); got != want {
			t.Fatalf("expected Terminal()=%v for %q, got %v", want, category, got)
		}
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	if got, ok := ParseCategory(" Routine_Health "); !ok || got != CategoryRoutineHealth {
		t.Fatalf("expected routine_health, got %q ok=%v", got, ok)
	}
	if _, ok := ParseCategory("urgent"); ok {
		t.Fatalf("expected unknown label to be rejected")
	}
}

func TestIsHealthRelated(t *testing.T) {
	t.Parallel()
	m := mustDefaultManager(t)

	if !m.IsHealthRelated("What should I eat for better digestion?") {
		t.Fatalf("expected digestion question to be health related")
	}
	if !m.IsHealthRelated("My BLOOD PRESSURE is high") {
		t.Fatalf("expected case-insensitive match")
	}
	if m.IsHealthRelated("Tell me about the history of Rome") {
		t.Fatalf("expected history question not to be health related")
	}
}

func TestMatcherRejectsBadPattern(t *testing.T) {
	t.Parallel()

	if _, err := NewMatcher(nil, []string{"(unclosed"}); err == nil {
		t.Fatalf("expected compile error for invalid pattern")
	}
}

func TestMatcherSkipsBlankEntries(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher([]string{"", "  "}, []string{""})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	if m.Match("anything at all") {
		t.Fatalf("expected blank entries not to match")
	}
}
