package multiagent

import (
	"regexp"
	"strings"
)

// mentionPattern matches an @agent mention token.
var mentionPattern = regexp.MustCompile(`^@([a-zA-Z][a-zA-Z0-9_-]*)`)

// MentionRoute is the outcome of scanning user input for a leading agent
// mention.
type MentionRoute struct {
	// Agent is the mentioned agent's name.
	Agent string

	// Prompt is the input with the mention stripped.
	Prompt string

	// ShouldInvokeTask reports whether the turn should be re-routed as a
	// task for the mentioned agent.
	ShouldInvokeTask bool
}

// ParseMention scans input for a mention at the start (leading whitespace
// ignored) that resolves against validAgents. Mentions anywhere else in the
// text are left alone: they read as prose, not routing.
func ParseMention(input string, validAgents []string) MentionRoute {
	trimmed := strings.TrimLeft(input, " \t\r\n")
	m := mentionPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return MentionRoute{}
	}
	name := m[1]
	valid := false
	for _, agent := range validAgents {
		if agent == name {
			valid = true
			break
		}
	}
	if !valid {
		return MentionRoute{}
	}
	prompt := strings.TrimSpace(trimmed[len(m[0]):])
	return MentionRoute{
		Agent:            name,
		Prompt:           prompt,
		ShouldInvokeTask: true,
	}
}
