package retrieval

import (
	"context"
	"time"
)

// VectorStore stores memory embeddings and answers per-user similarity queries.
// The SQLite implementation scans every vector of the user; an ANN-backed
// store can replace it behind the same interface.
type VectorStore interface {
	// Insert adds records.
	Insert(ctx context.Context, records []Record) error

	// Search returns the topK records of userID most similar to vector.
	Search(ctx context.Context, userID string, vector []float32, topK int) ([]ScoredRecord, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id string) error

	// Count returns the number of records stored for userID.
	Count(ctx context.Context, userID string) (int, error)
}

// Record is one embedded memory.
type Record struct {
	ID        string
	MemoryID  string
	UserID    string
	TextChunk string
	Embedding []float32
	CreatedAt time.Time
}

// ScoredRecord is a Record with a similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
