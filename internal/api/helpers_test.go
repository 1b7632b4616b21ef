package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/kalambet/chefmate/internal/memory"
)

var ctx = context.Background()

// fakeLedger is an in-memory memory.Ledger.
type fakeLedger struct {
	mu      sync.Mutex
	entries map[string][]memory.Entry
	seq     int64
	hits    []memory.Entry
	err     error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[string][]memory.Entry{}}
}

func (f *fakeLedger) Append(_ context.Context, userID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.seq++
	e := memory.Entry{ID: fmt.Sprintf("m%d", f.seq), UserID: userID, Seq: f.seq, Kind: memory.KindFact, Text: text}
	f.entries[userID] = append(f.entries[userID], e)
	return e.ID, nil
}

func (f *fakeLedger) AppendConversation(ctx context.Context, userID string, turns []memory.Turn) (string, error) {
	return f.Append(ctx, userID, turns[0].Content)
}

func (f *fakeLedger) ListAll(_ context.Context, userID string) ([]memory.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]memory.Entry(nil), f.entries[userID]...), nil
}

func (f *fakeLedger) SearchSimilar(_ context.Context, _, _ string, limit int) ([]memory.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > limit {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

func (f *fakeLedger) texts(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return memory.Texts(f.entries[userID])
}
