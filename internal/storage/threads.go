package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateThread persists an empty conversation thread.
func (s *Store) CreateThread(ctx context.Context, t Thread) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO threads (id, created_at) VALUES (?, ?)`,
		t.ID, t.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// ThreadExists reports whether a thread with the given ID was created.
func (s *Store) ThreadExists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threads WHERE id = ?`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// AppendThreadMessage adds a message to the end of a thread.
func (s *Store) AppendThreadMessage(ctx context.Context, m ThreadMessage) (ThreadMessage, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO thread_messages (id, thread_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ThreadID, m.Role, m.Content, m.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return ThreadMessage{}, fmt.Errorf("inserting thread message: %w", err)
	}
	if m.Seq, err = res.LastInsertId(); err != nil {
		return ThreadMessage{}, fmt.Errorf("reading message seq: %w", err)
	}
	return m, nil
}

// ListThreadMessages returns a thread's messages, oldest first unless
// newestFirst is set.
func (s *Store) ListThreadMessages(ctx context.Context, threadID string, newestFirst bool) ([]ThreadMessage, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, thread_id, role, content, created_at
		FROM thread_messages WHERE thread_id = ? ORDER BY seq `+order, threadID)
	if err != nil {
		return nil, fmt.Errorf("querying thread messages: %w", err)
	}
	defer rows.Close()

	var out []ThreadMessage
	for rows.Next() {
		var m ThreadMessage
		var createdAt string
		if err := rows.Scan(&m.Seq, &m.ID, &m.ThreadID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at for message %s: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveRun inserts or replaces a run record.
func (s *Store) SaveRun(ctx context.Context, r Run) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	var completedAt sql.NullString
	if !r.CompletedAt.IsZero() {
		completedAt = sql.NullString{String: r.CompletedAt.UTC().Format(time.RFC3339), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, thread_id, status, last_error, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, last_error = excluded.last_error,
			completed_at = excluded.completed_at`,
		r.ID, r.ThreadID, r.Status, r.LastError, r.CreatedAt.UTC().Format(time.RFC3339), completedAt,
	)
	return err
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	var r Run
	var createdAt string
	var completedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, thread_id, status, last_error, created_at, completed_at FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.ThreadID, &r.Status, &r.LastError, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Run{}, fmt.Errorf("parsing created_at for run %s: %w", r.ID, err)
	}
	if completedAt.Valid {
		if r.CompletedAt, err = time.Parse(time.RFC3339, completedAt.String); err != nil {
			return Run{}, fmt.Errorf("parsing completed_at for run %s: %w", r.ID, err)
		}
	}
	return r, nil
}
