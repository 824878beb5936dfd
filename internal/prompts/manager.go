// Package prompts holds the persona registry, the safety keyword tables and
// the routing rules applied to every inbound chat message. A Manager is built
// once at startup and is read-only afterwards.
package prompts

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultTables []byte

var ErrUnknownAgent = errors.New("unknown agent")

type GreetingStyle string

const (
	GreetingFriendly     GreetingStyle = "friendly"
	GreetingNurturing    GreetingStyle = "nurturing"
	GreetingProfessional GreetingStyle = "professional"
)

type ResponseLength string

const (
	ResponseShort    ResponseLength = "short"
	ResponseMedium   ResponseLength = "medium"
	ResponseDetailed ResponseLength = "detailed"
)

type Priority string

const (
	PriorityImmediate Priority = "immediate"
	PriorityHigh      Priority = "high"
	PriorityMedium    Priority = "medium"
	PriorityLow       Priority = "low"
)

// Agent is one persona. SystemPromptMedico is nil when the persona has no
// separate prompt for medical professionals.
type Agent struct {
	ID                 string
	Name               string
	Description        string
	SystemPrompt       string
	SystemPromptMedico *string
	GreetingStyle      GreetingStyle
	ResponseLength     ResponseLength
	Specializations    []string
}

type Metadata struct {
	Version     string `yaml:"version" json:"version"`
	LastUpdated string `yaml:"last_updated" json:"last_updated"`
	Description string `yaml:"description" json:"description"`
	Maintainer  string `yaml:"maintainer" json:"maintainer"`
}

type Manager struct {
	meta      Metadata
	agents    map[string]Agent
	order     []string
	responses map[Category]response
	rules     map[ruleSet]*Matcher
	greetings map[GreetingStyle]greetingTemplates
}

type response struct {
	Message  string   `yaml:"message"`
	Guidance string   `yaml:"guidance"`
	Priority Priority `yaml:"priority"`
}

type greetingTemplates struct {
	Morning   string `yaml:"morning"`
	Afternoon string `yaml:"afternoon"`
	Evening   string `yaml:"evening"`
}

type agentDoc struct {
	ID                 string   `yaml:"id"`
	Name               string   `yaml:"name"`
	Description        string   `yaml:"description"`
	GreetingStyle      string   `yaml:"greeting_style"`
	ResponseLength     string   `yaml:"response_length"`
	Specializations    []string `yaml:"specializations"`
	SystemPrompt       string   `yaml:"system_prompt"`
	SystemPromptMedico string   `yaml:"system_prompt_medico"`
}

type ruleDoc struct {
	Contains []string `yaml:"contains"`
	Patterns []string `yaml:"patterns"`
}

type tablesDoc struct {
	Metadata          Metadata                     `yaml:"metadata"`
	Agents            []agentDoc                   `yaml:"agents"`
	Responses         map[string]response          `yaml:"responses"`
	Keywords          map[string]ruleDoc           `yaml:"keywords"`
	GreetingTemplates map[string]greetingTemplates `yaml:"greeting_templates"`
}

// LoadDefault builds a Manager from the tables compiled into the binary.
func LoadDefault() (*Manager, error) {
	return Load(defaultTables)
}

// LoadFile builds a Manager from a YAML file on disk, falling back to the
// embedded tables when path is empty.
func LoadFile(path string) (*Manager, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return LoadDefault()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt tables: %w", err)
	}
	return Load(raw)
}

func Load(raw []byte) (*Manager, error) {
	var doc tablesDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse prompt tables: %w", err)
	}

	m := &Manager{
		meta:      doc.Metadata,
		agents:    make(map[string]Agent, len(doc.Agents)),
		responses: make(map[Category]response, len(doc.Responses)),
		rules:     make(map[ruleSet]*Matcher, len(doc.Keywords)),
		greetings: make(map[GreetingStyle]greetingTemplates, len(doc.GreetingTemplates)),
	}

	for style, tpl := range doc.GreetingTemplates {
		if tpl.Morning == "" || tpl.Afternoon == "" || tpl.Evening == "" {
			return nil, fmt.Errorf("greeting style %q is missing a time-of-day template", style)
		}
		m.greetings[GreetingStyle(style)] = tpl
	}

	if len(doc.Agents) == 0 {
		return nil, errors.New("prompt tables define no agents")
	}
	for _, item := range doc.Agents {
		agent, err := buildAgent(item)
		if err != nil {
			return nil, err
		}
		if _, dup := m.agents[agent.ID]; dup {
			return nil, fmt.Errorf("agent %q defined twice", agent.ID)
		}
		if _, ok := m.greetings[agent.GreetingStyle]; !ok {
			return nil, fmt.Errorf("agent %q uses unknown greeting style %q", agent.ID, agent.GreetingStyle)
		}
		m.agents[agent.ID] = agent
		m.order = append(m.order, agent.ID)
	}

	for key, item := range doc.Responses {
		m.responses[Category(key)] = item
	}
	for _, category := range terminalCategories {
		if strings.TrimSpace(m.responses[category].Message) == "" {
			return nil, fmt.Errorf("response message for %q is missing", category)
		}
	}
	for _, category := range guidedCategories {
		if strings.TrimSpace(m.responses[category].Guidance) == "" {
			return nil, fmt.Errorf("response guidance for %q is missing", category)
		}
	}

	for _, name := range requiredRuleSets {
		item, ok := doc.Keywords[string(name)]
		if !ok {
			return nil, fmt.Errorf("keyword table %q is missing", name)
		}
		matcher, err := NewMatcher(item.Contains, item.Patterns)
		if err != nil {
			return nil, fmt.Errorf("keyword table %q: %w", name, err)
		}
		m.rules[name] = matcher
	}

	return m, nil
}

func buildAgent(item agentDoc) (Agent, error) {
	id := strings.TrimSpace(item.ID)
	if id == "" {
		return Agent{}, errors.New("agent id is required")
	}
	if strings.TrimSpace(item.SystemPrompt) == "" {
		return Agent{}, fmt.Errorf("agent %q has no system prompt", id)
	}
	agent := Agent{
		ID:              id,
		Name:            strings.TrimSpace(item.Name),
		Description:     strings.TrimSpace(item.Description),
		SystemPrompt:    strings.TrimSpace(item.SystemPrompt),
		GreetingStyle:   GreetingStyle(strings.ToLower(strings.TrimSpace(item.GreetingStyle))),
		ResponseLength:  ResponseLength(strings.ToLower(strings.TrimSpace(item.ResponseLength))),
		Specializations: item.Specializations,
	}
	if agent.Name == "" {
		agent.Name = id
	}
	switch agent.ResponseLength {
	case ResponseShort, ResponseMedium, ResponseDetailed:
	case "":
		agent.ResponseLength = ResponseMedium
	default:
		return Agent{}, fmt.Errorf("agent %q has unknown response length %q", id, agent.ResponseLength)
	}
	if medico := strings.TrimSpace(item.SystemPromptMedico); medico != "" {
		agent.SystemPromptMedico = &medico
	}
	return agent, nil
}

func (m *Manager) Agent(id string) (Agent, bool) {
	agent, ok := m.agents[strings.TrimSpace(id)]
	return agent, ok
}

func (m *Manager) IsValidAgent(id string) bool {
	_, ok := m.Agent(id)
	return ok
}

// Agents returns every persona in table order.
func (m *Manager) Agents() []Agent {
	out := make([]Agent, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.agents[id])
	}
	return out
}

// SystemPrompt picks the medical-professional variant when one exists and the
// caller is a clinician; every other case gets the base prompt.
func (m *Manager) SystemPrompt(id string, isMedicalProfessional bool) (string, error) {
	agent, ok := m.Agent(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAgent, id)
	}
	if isMedicalProfessional && agent.SystemPromptMedico != nil {
		return *agent.SystemPromptMedico, nil
	}
	return agent.SystemPrompt, nil
}

func (m *Manager) Metadata() Metadata {
	return m.meta
}
