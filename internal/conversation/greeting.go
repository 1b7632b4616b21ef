package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/chefmate/internal/profile"
)

// selfHealFields are inferred fields worth persisting at session start so
// they are never asked again.
var selfHealFields = []string{profile.FieldSkillLevel, profile.FieldDietaryPreferences}

// Greeting returns the session-start message for userID. Before greeting it
// persists confidently inferred critical fields the structured profile lacks.
func (o *Orchestrator) Greeting(ctx context.Context, userID string) (string, error) {
	if healed, err := o.profiles.SelfHeal(ctx, userID, selfHealFields...); err != nil {
		slog.Warn("profile self-heal failed", "user_id", userID, "error", err)
	} else if len(healed) > 0 {
		slog.Info("persisted inferred profile fields", "user_id", userID, "fields", healed)
	}

	snap, err := o.profiles.Snapshot(ctx, userID)
	if err != nil {
		return "", err
	}
	planner := o.profiles.Planner()
	merged := snap.Merged

	switch {
	case planner.IsComplete(merged):
		return fmt.Sprintf("Welcome back, %s! I have your profile (%s). Are you looking for a recipe now? Share ingredients or I'll suggest one.",
			userID, planner.Summary(merged)), nil
	case planner.MinimalReady(merged):
		return fmt.Sprintf("Welcome back, %s! I have enough info (%s) to suggest recipes. Share ingredients if you like, or I can suggest something now.",
			userID, planner.Summary(merged)), nil
	}

	have := planner.Summary(merged)
	if len(merged) == 0 && len(snap.Entries) > 0 {
		have = fmt.Sprintf("I remember %d things about your preferences", len(snap.Entries))
	}
	next, _ := planner.NextField(merged)
	return fmt.Sprintf("Welcome back, %s! We'll complete your profile quickly. So far -> %s. Please share your %s.",
		userID, have, strings.ReplaceAll(next, "_", " ")), nil
}
