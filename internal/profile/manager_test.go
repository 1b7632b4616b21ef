package profile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kalambet/chefmate/internal/memory"
)

var ctx = context.Background()

// fakeLedger is an in-memory memory.Ledger.
type fakeLedger struct {
	mu      sync.Mutex
	entries map[string][]memory.Entry
	seq     int64
	listErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[string][]memory.Entry{}}
}

func (f *fakeLedger) Append(_ context.Context, userID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	e := memory.Entry{ID: text, UserID: userID, Seq: f.seq, Kind: memory.KindFact, Text: text}
	f.entries[userID] = append(f.entries[userID], e)
	return e.ID, nil
}

func (f *fakeLedger) AppendConversation(ctx context.Context, userID string, turns []memory.Turn) (string, error) {
	return f.Append(ctx, userID, turns[0].Content)
}

func (f *fakeLedger) ListAll(_ context.Context, userID string) ([]memory.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]memory.Entry(nil), f.entries[userID]...), nil
}

func (f *fakeLedger) SearchSimilar(context.Context, string, string, int) ([]memory.Entry, error) {
	return nil, nil
}

func (f *fakeLedger) texts(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return memory.Texts(f.entries[userID])
}

func TestTryCapture_SkillLevelRejected(t *testing.T) {
	l := newFakeLedger()
	m := NewManager(l, DefaultPlanner(), 0)

	c, ok, err := m.TryCapture(ctx, "alice", FieldSkillLevel, "medium spicy please")
	if err != nil {
		t.Fatalf("TryCapture: %v", err)
	}
	if ok || c != (Capture{}) {
		t.Errorf("TryCapture = %+v, %v; want rejection", c, ok)
	}
	if n := len(l.texts("alice")); n != 0 {
		t.Errorf("ledger has %d entries, want 0", n)
	}
}

func TestTryCapture_Accepts(t *testing.T) {
	l := newFakeLedger()
	m := NewManager(l, DefaultPlanner(), 0)

	c, ok, err := m.TryCapture(ctx, "alice", FieldSkillLevel, "I'd say intermediate")
	if err != nil || !ok {
		t.Fatalf("TryCapture = %v, %v", ok, err)
	}
	if c.Field != FieldSkillLevel || c.Value != "intermediate" {
		t.Errorf("capture = %+v", c)
	}
	if got := l.texts("alice"); len(got) != 1 || got[0] != "PROFILE.skill_level: intermediate" {
		t.Errorf("ledger = %q", got)
	}
}

func TestTryCapture_NoExpectedField(t *testing.T) {
	l := newFakeLedger()
	m := NewManager(l, DefaultPlanner(), 0)

	if _, ok, _ := m.TryCapture(ctx, "alice", "", "anything"); ok {
		t.Error("captured with no expected field")
	}
	if n := len(l.texts("alice")); n != 0 {
		t.Errorf("ledger has %d entries, want 0", n)
	}
}

func TestOnboarding_EndToEnd(t *testing.T) {
	l := newFakeLedger()
	m := NewManager(l, DefaultPlanner(), 0)
	pl := m.Planner()

	s, err := m.Snapshot(ctx, "alice")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if pl.IsComplete(s.Merged) {
		t.Fatal("empty ledger reported complete")
	}
	if f, _ := pl.NextField(s.Merged); f != MinimalFields[0] {
		t.Fatalf("NextField = %q, want %q", f, MinimalFields[0])
	}

	for _, answer := range []string{"beginner for sure", "pescatarian", "no allergies"} {
		if _, ok, err := m.CaptureNext(ctx, "alice", answer); err != nil || !ok {
			t.Fatalf("CaptureNext(%q) = %v, %v", answer, ok, err)
		}
	}

	structured, err := m.Read(ctx, "alice")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !pl.MinimalReady(structured) {
		t.Errorf("MinimalReady = false after minimal answers: %v", structured)
	}
	if pl.IsComplete(structured) {
		t.Error("IsComplete = true after minimal answers only")
	}
	if structured[FieldDietaryPreferences] != "pescatarian" || structured[FieldAllergies] != "no allergies" {
		t.Errorf("structured = %v", structured)
	}
}

func TestSnapshot_MergesInferred(t *testing.T) {
	l := newFakeLedger()
	l.Append(ctx, "alice", "I'm vegetarian and a beginner")
	l.Append(ctx, "alice", "PROFILE.skill_level: advanced")
	m := NewManager(l, DefaultPlanner(), 0)

	s, err := m.Snapshot(ctx, "alice")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s.Merged[FieldSkillLevel] != "advanced" {
		t.Errorf("merged skill_level = %q, want structured advanced", s.Merged[FieldSkillLevel])
	}
	if s.Merged[FieldDietaryPreferences] != "vegetarian" {
		t.Errorf("merged dietary_preferences = %q, want inferred vegetarian", s.Merged[FieldDietaryPreferences])
	}
	if s.Structured.Has(FieldDietaryPreferences) {
		t.Error("structured should not contain inferred fields")
	}
}

func TestSelfHeal(t *testing.T) {
	l := newFakeLedger()
	l.Append(ctx, "alice", "I'm a vegan beginner who owns a blender")
	l.Append(ctx, "alice", "PROFILE.skill_level: intermediate")
	m := NewManager(l, DefaultPlanner(), 0)

	healed, err := m.SelfHeal(ctx, "alice", FieldSkillLevel, FieldDietaryPreferences, FieldKitchenEquipment)
	if err != nil {
		t.Fatalf("SelfHeal: %v", err)
	}
	if len(healed) != 1 || healed[0] != FieldDietaryPreferences {
		t.Errorf("healed = %v, want [dietary_preferences]", healed)
	}
	texts := l.texts("alice")
	if texts[len(texts)-1] != "PROFILE.dietary_preferences: vegan" {
		t.Errorf("last entry = %q", texts[len(texts)-1])
	}
}

func TestManager_LedgerError(t *testing.T) {
	l := newFakeLedger()
	l.listErr = errors.New("disk gone")
	m := NewManager(l, DefaultPlanner(), 0)

	if _, err := m.Snapshot(ctx, "alice"); err == nil {
		t.Error("Snapshot: expected error")
	}
	if _, _, err := m.CaptureNext(ctx, "alice", "beginner"); err == nil {
		t.Error("CaptureNext: expected error")
	}
}
