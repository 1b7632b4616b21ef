package engine

import (
	"context"
	"io"
	"strings"
	"testing"
)

type mockEngine struct {
	isRunning bool
}

func (m *mockEngine) Chat(context.Context, string, []Message) (string, error) { return "", nil }
func (m *mockEngine) Embed(context.Context, string, string) ([]float32, error) {
	return nil, nil
}
func (m *mockEngine) IsRunning(context.Context) bool { return m.isRunning }

type mockManagedEngine struct {
	mockEngine
	models map[string]bool
	pulled []string
}

func (m *mockManagedEngine) ListModels(context.Context) ([]string, error) {
	var names []string
	for n := range m.models {
		names = append(names, n)
	}
	return names, nil
}
func (m *mockManagedEngine) HasModel(_ context.Context, name string) bool { return m.models[name] }
func (m *mockManagedEngine) PullModel(_ context.Context, name string, cb func(PullProgress)) error {
	m.pulled = append(m.pulled, name)
	if cb != nil {
		cb(PullProgress{Status: "success"})
	}
	return nil
}

func TestEnsureReady_AllModelsPresent(t *testing.T) {
	m := &mockManagedEngine{
		mockEngine: mockEngine{isRunning: true},
		models:     map[string]bool{"llama3.1": true, "nomic-embed-text": true},
	}
	if err := EnsureReady(context.Background(), m, "llama3.1", "nomic-embed-text", io.Discard); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 0 {
		t.Errorf("expected no pulls, got %v", m.pulled)
	}
}

func TestEnsureReady_PullsMissing(t *testing.T) {
	m := &mockManagedEngine{
		mockEngine: mockEngine{isRunning: true},
		models:     map[string]bool{"llama3.1": true},
	}
	var out strings.Builder
	if err := EnsureReady(context.Background(), m, "llama3.1", "nomic-embed-text", &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 1 || m.pulled[0] != "nomic-embed-text" {
		t.Errorf("expected pull of nomic-embed-text, got %v", m.pulled)
	}
	if !strings.Contains(out.String(), "model nomic-embed-text: pulling...") {
		t.Errorf("output = %q", out.String())
	}
}

func TestEnsureReady_RemoteEngineSkipsModels(t *testing.T) {
	if err := EnsureReady(context.Background(), &mockEngine{isRunning: true}, "gpt-4o-mini", "text-embedding-3-small", io.Discard); err != nil {
		t.Errorf("EnsureReady: %v", err)
	}
}

func TestEnsureReady_EngineDown(t *testing.T) {
	m := &mockManagedEngine{models: map[string]bool{}}
	if err := EnsureReady(context.Background(), m, "llama3.1", "nomic-embed-text", io.Discard); err == nil {
		t.Fatal("expected error when engine is down")
	}
	if len(m.pulled) != 0 {
		t.Errorf("pulled %v while engine down", m.pulled)
	}
}
