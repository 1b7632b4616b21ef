// Package agent provides the conversational agent the orchestrator talks to:
// threads of messages, and runs that append the assistant's answer.
package agent

import (
	"context"
	"time"
)

// Run statuses.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// SortOrder selects the order of ListMessages results.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// Message is one thread message. Content holds the text segments of the
// message; an assistant message with no text has no segments.
type Message struct {
	ID        string
	ThreadID  string
	Role      string
	Content   []string
	CreatedAt time.Time
}

// Text returns the first text segment, or "".
func (m Message) Text() string {
	if len(m.Content) == 0 {
		return ""
	}
	return m.Content[0]
}

// Run is the outcome of asking the agent to answer a thread.
type Run struct {
	ID        string
	ThreadID  string
	Status    string
	LastError string
}

// Agent is a thread-based chat agent.
type Agent interface {
	CreateThread(ctx context.Context) (string, error)
	CreateMessage(ctx context.Context, threadID, role, content string) (Message, error)
	// Run answers the thread. A model failure is reported as a Run with
	// status RunFailed, not as an error.
	Run(ctx context.Context, threadID string) (Run, error)
	ListMessages(ctx context.Context, threadID string, order SortOrder) ([]Message, error)
}
