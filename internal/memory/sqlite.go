package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kalambet/chefmate/internal/ingest"
	"github.com/kalambet/chefmate/internal/retrieval"
	"github.com/kalambet/chefmate/internal/storage"
)

// Store is the subset of storage.Store the ledger uses.
type Store interface {
	AppendMemory(ctx context.Context, m storage.Memory) (storage.Memory, error)
	ListMemories(ctx context.Context, userID string) ([]storage.Memory, error)
	GetMemoriesByIDs(ctx context.Context, ids []string) ([]storage.Memory, error)
	EnqueueJob(ctx context.Context, job storage.Job) error
}

// Searcher ranks a user's embedded memories against a query.
type Searcher interface {
	Retrieve(ctx context.Context, userID, query string, topK int) ([]retrieval.Hit, error)
}

var _ Ledger = (*SQLiteLedger)(nil)

// SQLiteLedger keeps entries in SQLite and queues each new entry for
// embedding. Similarity search only sees entries the ingest worker has
// already embedded.
type SQLiteLedger struct {
	store    Store
	searcher Searcher
}

// NewSQLiteLedger creates a ledger. A nil searcher disables SearchSimilar,
// which then returns no entries.
func NewSQLiteLedger(store Store, searcher Searcher) *SQLiteLedger {
	return &SQLiteLedger{store: store, searcher: searcher}
}

func (l *SQLiteLedger) Append(ctx context.Context, userID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return l.append(ctx, storage.Memory{UserID: userID, Kind: KindFact, Text: text})
}

// AppendConversation stores turns as one record. The record's searchable text
// is what the user said; the assistant side is kept in the turns only.
func (l *SQLiteLedger) AppendConversation(ctx context.Context, userID string, turns []Turn) (string, error) {
	text := ConversationText(turns)
	if text == "" {
		return "", ErrEmptyText
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return "", fmt.Errorf("encoding turns: %w", err)
	}
	return l.append(ctx, storage.Memory{
		UserID:    userID,
		Kind:      KindConversation,
		Text:      text,
		TurnsJSON: string(raw),
	})
}

func (l *SQLiteLedger) append(ctx context.Context, m storage.Memory) (string, error) {
	m.ID = uuid.New().String()
	m.CreatedAt = time.Now().UTC()
	if _, err := l.store.AppendMemory(ctx, m); err != nil {
		return "", fmt.Errorf("appending memory: %w", err)
	}
	// A missed embed job only hides the entry from similarity search until
	// the next reindex, so the append still succeeds.
	if err := l.store.EnqueueJob(ctx, ingest.EmbedJob(m.ID)); err != nil {
		slog.Warn("failed to queue memory embedding", "memory_id", m.ID, "error", err)
	}
	return m.ID, nil
}

func (l *SQLiteLedger) ListAll(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := l.store.ListMemories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	return toEntries(rows), nil
}

func (l *SQLiteLedger) SearchSimilar(ctx context.Context, userID, query string, limit int) ([]Entry, error) {
	if l.searcher == nil || limit <= 0 {
		return nil, nil
	}
	hits, err := l.searcher.Retrieve(ctx, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.MemoryID
	}
	rows, err := l.store.GetMemoriesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading matched memories: %w", err)
	}

	byID := make(map[string]storage.Memory, len(rows))
	for _, m := range rows {
		byID[m.ID] = m
	}
	ranked := make([]storage.Memory, 0, len(rows))
	for _, id := range ids {
		if m, ok := byID[id]; ok && m.UserID == userID {
			ranked = append(ranked, m)
			delete(byID, id)
		}
	}
	return toEntries(ranked), nil
}

func toEntries(rows []storage.Memory) []Entry {
	entries := make([]Entry, len(rows))
	for i, m := range rows {
		entries[i] = Entry{
			ID:        m.ID,
			UserID:    m.UserID,
			Seq:       m.Seq,
			Kind:      m.Kind,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		}
		if m.TurnsJSON != "" && m.TurnsJSON != "[]" {
			var turns []Turn
			if err := json.Unmarshal([]byte(m.TurnsJSON), &turns); err == nil {
				entries[i].Turns = turns
			}
		}
	}
	return entries
}
