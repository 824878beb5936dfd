package prompts

import (
	"strings"
	"unicode/utf8"
)

type Category string

const (
	CategoryEmpty              Category = "empty"
	CategoryTooLong            Category = "too_long"
	CategoryEmergency          Category = "emergency"
	CategoryDangerous          Category = "dangerous"
	CategoryInappropriate      Category = "inappropriate"
	CategoryNonHealth          Category = "non_health"
	CategoryConsultationNeeded Category = "consultation_needed"
	CategoryRoutineHealth      Category = "routine_health"
	CategoryGreeting           Category = "greeting"
	CategoryGeneral            Category = "general"
)

// MaxMessageRunes is the longest message accepted for completion.
const MaxMessageRunes = 5000

const greetingMaxRunes = 3

type ruleSet string

const (
	rulesEmergency     ruleSet = "emergency"
	rulesDangerous     ruleSet = "dangerous"
	rulesInappropriate ruleSet = "inappropriate"
	rulesNonHealth     ruleSet = "non_health"
	rulesGreeting      ruleSet = "greeting"
	rulesConsultation  ruleSet = "consultation_needed"
	rulesRoutineHealth ruleSet = "routine_health"
	rulesHealthRelated ruleSet = "health_related"
)

var requiredRuleSets = []ruleSet{
	rulesEmergency,
	rulesDangerous,
	rulesInappropriate,
	rulesNonHealth,
	rulesGreeting,
	rulesConsultation,
	rulesRoutineHealth,
	rulesHealthRelated,
}

var terminalCategories = []Category{
	CategoryEmpty,
	CategoryTooLong,
	CategoryEmergency,
	CategoryDangerous,
	CategoryInappropriate,
	CategoryNonHealth,
}

var guidedCategories = []Category{
	CategoryConsultationNeeded,
	CategoryRoutineHealth,
}

func ParseCategory(raw string) (Category, bool) {
	category := Category(strings.ToLower(strings.TrimSpace(raw)))
	switch category {
	case CategoryEmpty, CategoryTooLong, CategoryEmergency, CategoryDangerous,
		CategoryInappropriate, CategoryNonHealth, CategoryConsultationNeeded,
		CategoryRoutineHealth, CategoryGreeting, CategoryGeneral:
		return category, true
	}
	return "", false
}

// Terminal reports whether the category is answered with canned text and
// never reaches the completion service.
func (c Category) Terminal() bool {
	for _, item := range terminalCategories {
		if item == c {
			return true
		}
	}
	return false
}

// Categorize assigns exactly one category. Checks run in a fixed order and the
// first hit wins: size guards, then safety, then off-topic, then greeting,
// then the consultation and routine routing.
func (m *Manager) Categorize(message string) Category {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return CategoryEmpty
	}
	if utf8.RuneCountInString(message) > MaxMessageRunes {
		return CategoryTooLong
	}
	if m.rules[rulesEmergency].Match(message) {
		return CategoryEmergency
	}
	if m.rules[rulesDangerous].Match(message) {
		return CategoryDangerous
	}
	if m.rules[rulesInappropriate].Match(message) {
		return CategoryInappropriate
	}
	if m.rules[rulesNonHealth].Match(message) {
		return CategoryNonHealth
	}
	if m.isGreeting(trimmed) {
		return CategoryGreeting
	}

	routine := m.rules[rulesRoutineHealth].Match(message)
	if !routine && m.rules[rulesConsultation].Match(message) {
		return CategoryConsultationNeeded
	}
	if routine {
		return CategoryRoutineHealth
	}
	return CategoryGeneral
}

func (m *Manager) isGreeting(trimmed string) bool {
	lowered := strings.ToLower(trimmed)
	if utf8.RuneCountInString(lowered) <= greetingMaxRunes {
		return true
	}
	return m.rules[rulesGreeting].Match(lowered)
}

// IsHealthRelated decides whether stored personalization is worth sending
// along with the message. It has no effect on routing.
func (m *Manager) IsHealthRelated(message string) bool {
	return m.rules[rulesHealthRelated].Match(message)
}
