package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/chefmate/internal/composer"
	"github.com/kalambet/chefmate/internal/engine"
	"github.com/kalambet/chefmate/internal/storage"
)

// DefaultInstructions are the fixed agent instructions sent as the system
// message of every run.
const DefaultInstructions = `You are ChefMate, a friendly personal cooking assistant.
Use the facts you are given about the user to personalize every answer.
When the user shares a profile detail, confirm it with a line of the form
PROFILE.<field>: <value> on its own line.
Ask at most one question per response.`

// ErrThreadNotFound is returned for operations on an unknown thread.
var ErrThreadNotFound = errors.New("thread not found")

// ThreadStore persists threads, their messages and runs.
type ThreadStore interface {
	CreateThread(ctx context.Context, t storage.Thread) error
	ThreadExists(ctx context.Context, id string) (bool, error)
	AppendThreadMessage(ctx context.Context, m storage.ThreadMessage) (storage.ThreadMessage, error)
	ListThreadMessages(ctx context.Context, threadID string, newestFirst bool) ([]storage.ThreadMessage, error)
	SaveRun(ctx context.Context, r storage.Run) error
}

var _ Agent = (*ThreadAgent)(nil)

// ThreadAgent implements Agent over SQLite threads and a chat engine.
type ThreadAgent struct {
	store        ThreadStore
	engine       engine.Engine
	model        string
	instructions string
	composer     *composer.Composer
}

// NewThreadAgent creates an agent that answers with model on e. An empty
// instructions string selects DefaultInstructions; maxContextTokens bounds
// the history sent per run (<= 0 uses the composer default).
func NewThreadAgent(store ThreadStore, e engine.Engine, model, instructions string, maxContextTokens int) *ThreadAgent {
	if instructions == "" {
		instructions = DefaultInstructions
	}
	return &ThreadAgent{
		store:        store,
		engine:       e,
		model:        model,
		instructions: instructions,
		composer:     composer.New(maxContextTokens),
	}
}

func (a *ThreadAgent) CreateThread(ctx context.Context) (string, error) {
	id := uuid.New().String()
	if err := a.store.CreateThread(ctx, storage.Thread{ID: id}); err != nil {
		return "", fmt.Errorf("creating thread: %w", err)
	}
	return id, nil
}

func (a *ThreadAgent) CreateMessage(ctx context.Context, threadID, role, content string) (Message, error) {
	if err := a.requireThread(ctx, threadID); err != nil {
		return Message{}, err
	}
	m, err := a.store.AppendThreadMessage(ctx, storage.ThreadMessage{
		ID:       uuid.New().String(),
		ThreadID: threadID,
		Role:     role,
		Content:  content,
	})
	if err != nil {
		return Message{}, fmt.Errorf("creating message: %w", err)
	}
	return toMessage(m), nil
}

func (a *ThreadAgent) Run(ctx context.Context, threadID string) (Run, error) {
	if err := a.requireThread(ctx, threadID); err != nil {
		return Run{}, err
	}
	run := Run{ID: uuid.New().String(), ThreadID: threadID}

	history, err := a.store.ListThreadMessages(ctx, threadID, false)
	if err != nil {
		return Run{}, fmt.Errorf("loading thread history: %w", err)
	}
	msgs := make([]engine.Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, engine.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := a.engine.Chat(ctx, a.model, a.composer.Compose(a.instructions, msgs))
	if err != nil {
		slog.Warn("agent run failed", "thread_id", threadID, "error", err)
		run.Status = RunFailed
		run.LastError = err.Error()
		return run, a.saveRun(ctx, run)
	}

	if _, err := a.store.AppendThreadMessage(ctx, storage.ThreadMessage{
		ID:       uuid.New().String(),
		ThreadID: threadID,
		Role:     engine.RoleAssistant,
		Content:  strings.TrimSpace(reply),
	}); err != nil {
		return Run{}, fmt.Errorf("storing reply: %w", err)
	}
	run.Status = RunCompleted
	return run, a.saveRun(ctx, run)
}

func (a *ThreadAgent) ListMessages(ctx context.Context, threadID string, order SortOrder) ([]Message, error) {
	rows, err := a.store.ListThreadMessages(ctx, threadID, order == Descending)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	out := make([]Message, len(rows))
	for i, m := range rows {
		out[i] = toMessage(m)
	}
	return out, nil
}

func (a *ThreadAgent) requireThread(ctx context.Context, threadID string) error {
	ok, err := a.store.ThreadExists(ctx, threadID)
	if err != nil {
		return fmt.Errorf("looking up thread: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	return nil
}

func (a *ThreadAgent) saveRun(ctx context.Context, r Run) error {
	err := a.store.SaveRun(ctx, storage.Run{
		ID:          r.ID,
		ThreadID:    r.ThreadID,
		Status:      r.Status,
		LastError:   r.LastError,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

func toMessage(m storage.ThreadMessage) Message {
	msg := Message{ID: m.ID, ThreadID: m.ThreadID, Role: m.Role, CreatedAt: m.CreatedAt}
	if m.Content != "" {
		msg.Content = []string{m.Content}
	}
	return msg
}
