package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Hit is one memory returned by a similarity search.
type Hit struct {
	MemoryID  string
	Text      string
	Score     float32
	CreatedAt time.Time
}

// Retriever combines embedding and vector search over a user's memories.
type Retriever struct {
	embedder *Embedder
	store    VectorStore
}

// NewRetriever creates a Retriever backed by the given Embedder and VectorStore.
func NewRetriever(embedder *Embedder, store VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Index embeds text and stores it as a vector of memoryID owned by userID.
// It returns the new vector record ID.
func (r *Retriever) Index(ctx context.Context, userID, memoryID, text string) (string, error) {
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return "", err
	}
	return r.insert(ctx, userID, memoryID, text, vec)
}

func (r *Retriever) insert(ctx context.Context, userID, memoryID, text string, vec []float32) (string, error) {
	rec := Record{
		ID:        uuid.New().String(),
		MemoryID:  memoryID,
		UserID:    userID,
		TextChunk: text,
		Embedding: vec,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Insert(ctx, []Record{rec}); err != nil {
		return "", fmt.Errorf("storing vector for memory %s: %w", memoryID, err)
	}
	return rec.ID, nil
}

// Document is a memory awaiting embedding.
type Document struct {
	UserID   string
	MemoryID string
	Text     string
}

// IndexBatch embeds docs concurrently and stores them. The returned vector IDs
// line up with docs.
func (r *Retriever) IndexBatch(ctx context.Context, docs []Document) ([]string, error) {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vecs, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		if ids[i], err = r.insert(ctx, d.UserID, d.MemoryID, d.Text, vecs[i]); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// Retrieve embeds query and returns up to topK of userID's memories, most
// similar first. A blank query yields no hits.
func (r *Retriever) Retrieve(ctx context.Context, userID, query string, topK int) ([]Hit, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err == ErrEmptyText {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	scored, err := r.store.Search(ctx, userID, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}

	hits := make([]Hit, len(scored))
	for i, s := range scored {
		hits[i] = Hit{MemoryID: s.MemoryID, Text: s.TextChunk, Score: s.Score, CreatedAt: s.CreatedAt}
	}
	return hits, nil
}
