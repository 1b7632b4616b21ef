package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Memory is one row of the append-only memory ledger.
type Memory struct {
	Seq       int64
	ID        string
	UserID    string
	Kind      string // "fact" or "conversation"
	Text      string
	TurnsJSON string // JSON array of {role, content}, "[]" for facts
	CreatedAt time.Time
	VectorID  string
}

type Thread struct {
	ID        string
	CreatedAt time.Time
}

type ThreadMessage struct {
	Seq       int64
	ID        string
	ThreadID  string
	Role      string
	Content   string
	CreatedAt time.Time
}

type Run struct {
	ID          string
	ThreadID    string
	Status      string // "in_progress", "completed", "failed"
	LastError   string
	CreatedAt   time.Time
	CompletedAt time.Time
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
