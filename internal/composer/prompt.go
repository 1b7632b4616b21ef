package composer

import (
	"github.com/kalambet/chefmate/internal/engine"
)

const defaultMaxContextTokens = 8000

// Composer assembles the message list sent to the chat engine for one agent
// run: the agent instructions as a system message followed by as much of the
// thread history as fits the token budget.
type Composer struct {
	MaxContextTokens int
}

// New creates a Composer with the given token budget.
// If maxContextTokens <= 0, the default (8000) is used.
func New(maxContextTokens int) *Composer {
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &Composer{MaxContextTokens: maxContextTokens}
}

// Compose returns instructions plus the newest history messages that fit the
// budget, oldest first. The last history message is always kept, even when it
// alone exceeds the budget, so the current turn reaches the model.
func (c *Composer) Compose(instructions string, history []engine.Message) []engine.Message {
	remaining := c.MaxContextTokens
	var sys []engine.Message
	if instructions != "" {
		sys = []engine.Message{{Role: engine.RoleSystem, Content: instructions}}
		remaining -= EstimateTokens(instructions)
	}
	if len(history) == 0 {
		return sys
	}

	start := len(history) - 1
	remaining -= EstimateTokens(history[start].Content)
	for start > 0 {
		tokens := EstimateTokens(history[start-1].Content)
		if tokens > remaining {
			break
		}
		remaining -= tokens
		start--
	}

	out := make([]engine.Message, 0, len(sys)+len(history)-start)
	out = append(out, sys...)
	return append(out, history[start:]...)
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
