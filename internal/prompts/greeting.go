package prompts

import (
	"strings"
	"time"
)

// Greeting renders the time-of-day salutation for the agent's style with the
// user's first name. The hour is read from now as given, so callers pick the
// zone. An unknown agent or an empty name yields "".
func (m *Manager) Greeting(agentID, userName string, now time.Time) string {
	fields := strings.Fields(userName)
	if len(fields) == 0 {
		return ""
	}
	agent, ok := m.Agent(agentID)
	if !ok {
		return ""
	}
	templates, ok := m.greetings[agent.GreetingStyle]
	if !ok {
		return ""
	}

	var tpl string
	switch hour := now.Hour(); {
	case hour >= 6 && hour < 12:
		tpl = templates.Morning
	case hour >= 12 && hour < 18:
		tpl = templates.Afternoon
	default:
		tpl = templates.Evening
	}
	return strings.Replace(tpl, "{name}", fields[0], 1)
}
