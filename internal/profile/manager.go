package profile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kalambet/chefmate/internal/memory"
)

// Snapshot holds every profile view computed from one ledger listing.
type Snapshot struct {
	Entries    []memory.Entry
	Structured Profile
	Inferred   Inference
	Merged     Profile
}

// Manager derives profiles from a memory ledger and records answers back to
// it. It holds no profile state; every call re-reads the ledger.
type Manager struct {
	ledger    memory.Ledger
	planner   Planner
	threshold float64
}

// NewManager creates a Manager. A threshold <= 0 uses DefaultConfidenceThreshold.
func NewManager(ledger memory.Ledger, planner Planner, threshold float64) *Manager {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Manager{ledger: ledger, planner: planner, threshold: threshold}
}

// Planner returns the planner the manager uses.
func (m *Manager) Planner() Planner { return m.planner }

// Read returns the structured profile of userID.
func (m *Manager) Read(ctx context.Context, userID string) (Profile, error) {
	entries, err := m.ledger.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return ReadEntries(entries), nil
}

// Infer returns the keyword inference over userID's memories.
func (m *Manager) Infer(ctx context.Context, userID string) (Inference, error) {
	entries, err := m.ledger.ListAll(ctx, userID)
	if err != nil {
		return Inference{}, fmt.Errorf("inferring profile: %w", err)
	}
	return InferEntries(entries), nil
}

// Snapshot computes structured, inferred and merged views in one pass.
func (m *Manager) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	entries, err := m.ledger.ListAll(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading profile snapshot: %w", err)
	}
	s := Snapshot{
		Entries:    entries,
		Structured: ReadEntries(entries),
		Inferred:   InferEntries(entries),
	}
	s.Merged = Merge(s.Structured, s.Inferred, m.threshold)
	return s, nil
}

// Record appends the tag line for field = value.
func (m *Manager) Record(ctx context.Context, userID, field, value string) error {
	if _, err := m.ledger.Append(ctx, userID, TagLine(field, value)); err != nil {
		return fmt.Errorf("recording %s: %w", field, err)
	}
	return nil
}

// TryCapture records text as the answer to expectedField when it qualifies.
// Nothing is written when it does not.
func (m *Manager) TryCapture(ctx context.Context, userID, expectedField, text string) (Capture, bool, error) {
	value, ok := NormalizeAnswer(expectedField, text)
	if !ok {
		return Capture{}, false, nil
	}
	if err := m.Record(ctx, userID, expectedField, value); err != nil {
		return Capture{}, false, err
	}
	slog.Debug("captured profile answer", "user_id", userID, "field", expectedField)
	return Capture{Field: expectedField, Value: value}, true, nil
}

// CaptureNext reads the structured profile and captures text as the answer to
// its next missing field.
func (m *Manager) CaptureNext(ctx context.Context, userID, text string) (Capture, bool, error) {
	structured, err := m.Read(ctx, userID)
	if err != nil {
		return Capture{}, false, err
	}
	field, ok := m.planner.NextField(structured)
	if !ok {
		return Capture{}, false, nil
	}
	return m.TryCapture(ctx, userID, field, text)
}

// SelfHeal persists confidently inferred values of fields missing from the
// structured profile. It returns the fields it wrote.
func (m *Manager) SelfHeal(ctx context.Context, userID string, fields ...string) ([]string, error) {
	s, err := m.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	var healed []string
	for _, f := range fields {
		if s.Structured.Has(f) || s.Inferred.Confidence[f] < m.threshold {
			continue
		}
		v, ok := s.Inferred.Value(f)
		if !ok || v == "" {
			continue
		}
		if err := m.Record(ctx, userID, f, v); err != nil {
			return healed, err
		}
		healed = append(healed, f)
	}
	return healed, nil
}
