package composer

import (
	"strings"
	"testing"

	"github.com/kalambet/chefmate/internal/engine"
)

func history(contents ...string) []engine.Message {
	msgs := make([]engine.Message, len(contents))
	for i, c := range contents {
		role := engine.RoleUser
		if i%2 == 1 {
			role = engine.RoleAssistant
		}
		msgs[i] = engine.Message{Role: role, Content: c}
	}
	return msgs
}

func TestCompose_InstructionsFirst(t *testing.T) {
	c := New(0)
	out := c.Compose("You are a cooking assistant.", history("hi", "hello!", "dinner?"))

	if len(out) != 4 {
		t.Fatalf("got %d messages, want 4", len(out))
	}
	if out[0].Role != engine.RoleSystem || out[0].Content != "You are a cooking assistant." {
		t.Errorf("out[0] = %+v", out[0])
	}
	if out[3].Content != "dinner?" {
		t.Errorf("last message = %q, want dinner?", out[3].Content)
	}
}

func TestCompose_NoInstructions(t *testing.T) {
	out := New(0).Compose("", history("hi"))
	if len(out) != 1 || out[0].Role != engine.RoleUser {
		t.Errorf("out = %+v", out)
	}
	if out := New(0).Compose("", nil); len(out) != 0 {
		t.Errorf("empty compose = %+v", out)
	}
}

func TestCompose_DropsOldestOverBudget(t *testing.T) {
	c := New(10) // 40 chars
	out := c.Compose("", history(
		strings.Repeat("a", 20),
		strings.Repeat("b", 16),
		strings.Repeat("c", 16),
	))

	if len(out) != 2 {
		t.Fatalf("got %d messages, want 2", len(out))
	}
	if out[0].Content[0] != 'b' || out[1].Content[0] != 'c' {
		t.Errorf("kept %q, %q; want the two newest", out[0].Content, out[1].Content)
	}
}

func TestCompose_KeepsOversizedLatest(t *testing.T) {
	c := New(5)
	out := c.Compose("sys", history("old", strings.Repeat("x", 400)))

	if len(out) != 2 {
		t.Fatalf("got %d messages, want system + latest", len(out))
	}
	if out[1].Content != strings.Repeat("x", 400) {
		t.Error("latest message was not kept")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
