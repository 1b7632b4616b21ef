package memory

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Entry kinds.
const (
	KindFact         = "fact"
	KindConversation = "conversation"
)

// ErrEmptyText is returned when appending an entry with no text.
var ErrEmptyText = errors.New("memory text is empty")

// Turn is one message of a stored conversation record.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Entry is one immutable record of a user's memory. Seq orders entries by
// insertion.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Seq       int64     `json:"seq"`
	Kind      string    `json:"kind"`
	Text      string    `json:"memory"`
	Turns     []Turn    `json:"turns,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Ledger is the append-only per-user memory store.
type Ledger interface {
	// Append stores a free-text entry and returns its ID.
	Append(ctx context.Context, userID, text string) (string, error)

	// AppendConversation stores a user/assistant exchange as one record.
	AppendConversation(ctx context.Context, userID string, turns []Turn) (string, error)

	// ListAll returns every entry of userID in insertion order.
	ListAll(ctx context.Context, userID string) ([]Entry, error)

	// SearchSimilar returns up to limit entries ranked by similarity to query.
	// Recall is approximate.
	SearchSimilar(ctx context.Context, userID, query string, limit int) ([]Entry, error)
}

// Texts returns the text of each entry, in order.
func Texts(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

// ConversationText is the searchable text of a conversation record: the user
// turns joined by newlines, or every non-blank turn when the user said
// nothing. An empty result means the record has no content at all.
func ConversationText(turns []Turn) string {
	var said, all []string
	for _, t := range turns {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		all = append(all, t.Content)
		if t.Role == "user" {
			said = append(said, t.Content)
		}
	}
	if len(said) == 0 {
		said = all
	}
	return strings.Join(said, "\n")
}
