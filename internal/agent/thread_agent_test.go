package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kalambet/chefmate/internal/engine"
	"github.com/kalambet/chefmate/internal/storage"
)

var ctx = context.Background()

type mockEngine struct {
	reply    string
	err      error
	received []engine.Message
}

func (m *mockEngine) Chat(_ context.Context, _ string, messages []engine.Message) (string, error) {
	m.received = messages
	return m.reply, m.err
}

func (m *mockEngine) Embed(context.Context, string, string) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func (m *mockEngine) IsRunning(context.Context) bool { return true }

func newTestAgent(t *testing.T, eng engine.Engine) (*ThreadAgent, *storage.Store) {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewThreadAgent(s, eng, "test-model", "", 0), s
}

func TestRun_AppendsAssistantReply(t *testing.T) {
	eng := &mockEngine{reply: "  Try a mushroom risotto.\n"}
	a, s := newTestAgent(t, eng)

	thread, err := a.CreateThread(ctx)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if _, err := a.CreateMessage(ctx, thread, engine.RoleUser, "dinner idea?"); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	run, err := a.Run(ctx, thread)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != RunCompleted {
		t.Errorf("Status = %q, want %q", run.Status, RunCompleted)
	}

	if len(eng.received) != 2 {
		t.Fatalf("engine received %d messages, want 2", len(eng.received))
	}
	if eng.received[0].Role != engine.RoleSystem || eng.received[0].Content != DefaultInstructions {
		t.Errorf("system message = %+v", eng.received[0])
	}
	if eng.received[1].Content != "dinner idea?" {
		t.Errorf("user message = %q", eng.received[1].Content)
	}

	msgs, err := a.ListMessages(ctx, thread, Descending)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Role != engine.RoleAssistant || msgs[0].Text() != "Try a mushroom risotto." {
		t.Errorf("newest = %+v", msgs[0])
	}

	saved, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if saved.Status != RunCompleted {
		t.Errorf("saved status = %q", saved.Status)
	}
}

func TestRun_EngineFailureIsFailedRun(t *testing.T) {
	a, s := newTestAgent(t, &mockEngine{err: errors.New("connection refused")})

	thread, _ := a.CreateThread(ctx)
	if _, err := a.CreateMessage(ctx, thread, engine.RoleUser, "hi"); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	run, err := a.Run(ctx, thread)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if run.Status != RunFailed {
		t.Errorf("Status = %q, want %q", run.Status, RunFailed)
	}
	if !strings.Contains(run.LastError, "connection refused") {
		t.Errorf("LastError = %q", run.LastError)
	}

	msgs, _ := a.ListMessages(ctx, thread, Ascending)
	if len(msgs) != 1 {
		t.Errorf("failed run added messages: %+v", msgs)
	}
	if saved, err := s.GetRun(ctx, run.ID); err != nil || saved.Status != RunFailed {
		t.Errorf("saved run = %+v, %v", saved, err)
	}
}

func TestRun_EmptyReplyHasNoSegments(t *testing.T) {
	a, _ := newTestAgent(t, &mockEngine{reply: "   "})

	thread, _ := a.CreateThread(ctx)
	a.CreateMessage(ctx, thread, engine.RoleUser, "hi")
	if _, err := a.Run(ctx, thread); err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs, _ := a.ListMessages(ctx, thread, Descending)
	if len(msgs[0].Content) != 0 {
		t.Errorf("Content = %q, want no segments", msgs[0].Content)
	}
	if msgs[0].Text() != "" {
		t.Errorf("Text() = %q, want empty", msgs[0].Text())
	}
}

func TestUnknownThread(t *testing.T) {
	a, _ := newTestAgent(t, &mockEngine{reply: "x"})

	if _, err := a.CreateMessage(ctx, "missing", engine.RoleUser, "hi"); !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("CreateMessage err = %v, want ErrThreadNotFound", err)
	}
	if _, err := a.Run(ctx, "missing"); !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("Run err = %v, want ErrThreadNotFound", err)
	}
}

func TestRun_CustomInstructions(t *testing.T) {
	eng := &mockEngine{reply: "ok"}
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	defer s.Close()
	a := NewThreadAgent(s, eng, "m", "Be brief.", 0)

	thread, _ := a.CreateThread(ctx)
	a.CreateMessage(ctx, thread, engine.RoleUser, "hi")
	a.Run(ctx, thread)

	if eng.received[0].Content != "Be brief." {
		t.Errorf("instructions = %q, want %q", eng.received[0].Content, "Be brief.")
	}
}
