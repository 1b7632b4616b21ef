package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kalambet/chefmate/internal/retrieval"
	"github.com/kalambet/chefmate/internal/storage"
)

// JobTypeMemoryEmbed is the job type that embeds one stored memory.
const JobTypeMemoryEmbed = "memory_embed"

// JobStore abstracts the job queue and memory lookups the worker needs.
type JobStore interface {
	ClaimNextJob(ctx context.Context, types []string) (*storage.Job, error)
	CompleteJob(ctx context.Context, id string) error
	FailJob(ctx context.Context, id string, errMsg string) error
	GetMemory(ctx context.Context, id string) (storage.Memory, error)
	SetMemoryVectorID(ctx context.Context, id, vectorID string) error
	ListUnembeddedMemories(ctx context.Context, limit int) ([]storage.Memory, error)
}

// Indexer embeds memory text into the vector store.
type Indexer interface {
	Index(ctx context.Context, userID, memoryID, text string) (string, error)
	IndexBatch(ctx context.Context, docs []retrieval.Document) ([]string, error)
}

type embedPayload struct {
	MemoryID string `json:"memory_id"`
}

// EmbedJob builds the queue entry that embeds memoryID.
func EmbedJob(memoryID string) storage.Job {
	payload, _ := json.Marshal(embedPayload{MemoryID: memoryID})
	return storage.Job{
		ID:          uuid.New().String(),
		Type:        JobTypeMemoryEmbed,
		PayloadJSON: string(payload),
	}
}

// Worker drains memory_embed jobs from the SQLite queue.
type Worker struct {
	store   JobStore
	indexer Indexer
	poll    time.Duration
	logger  *slog.Logger
}

// NewWorker creates a Worker. A pollInterval <= 0 defaults to 500ms.
func NewWorker(store JobStore, indexer Indexer, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:   store,
		indexer: indexer,
		poll:    pollInterval,
		logger:  slog.Default().With("component", "ingest"),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single memory_embed job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob(ctx, []string{JobTypeMemoryEmbed})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "attempt", job.Attempts+1, "error", err)
		if failErr := w.store.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(ctx, job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload embedPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	m, err := w.store.GetMemory(ctx, payload.MemoryID)
	if err != nil {
		return fmt.Errorf("loading memory %s: %w", payload.MemoryID, err)
	}
	if m.VectorID != "" {
		return nil
	}

	vectorID, err := w.indexer.Index(ctx, m.UserID, m.ID, m.Text)
	if err != nil {
		return fmt.Errorf("indexing memory %s: %w", m.ID, err)
	}
	if err := w.store.SetMemoryVectorID(ctx, m.ID, vectorID); err != nil {
		return fmt.Errorf("updating vector_id: %w", err)
	}
	return nil
}

// Backfill embeds up to limit memories that have no vector yet, in one
// concurrent batch. It returns how many were indexed.
func (w *Worker) Backfill(ctx context.Context, limit int) (int, error) {
	pending, err := w.store.ListUnembeddedMemories(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("listing unembedded memories: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	docs := make([]retrieval.Document, len(pending))
	for i, m := range pending {
		docs[i] = retrieval.Document{UserID: m.UserID, MemoryID: m.ID, Text: m.Text}
	}
	ids, err := w.indexer.IndexBatch(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("indexing batch: %w", err)
	}

	for i, m := range pending {
		if err := w.store.SetMemoryVectorID(ctx, m.ID, ids[i]); err != nil {
			return i, fmt.Errorf("updating vector_id for %s: %w", m.ID, err)
		}
	}
	w.logger.Info("backfilled memory vectors", "count", len(pending))
	return len(pending), nil
}
