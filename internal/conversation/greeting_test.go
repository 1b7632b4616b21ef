package conversation

import (
	"testing"

	"github.com/kalambet/chefmate/internal/profile"
)

func TestGreeting_NewUser(t *testing.T) {
	o, _, _ := newTestOrchestrator()

	got, err := o.Greeting(ctx, "alice")
	if err != nil {
		t.Fatalf("Greeting: %v", err)
	}
	want := "Welcome back, alice! We'll complete your profile quickly. So far -> none yet. Please share your skill level."
	if got != want {
		t.Errorf("greeting = %q, want %q", got, want)
	}
}

func TestGreeting_CountsUnstructuredMemories(t *testing.T) {
	o, l, _ := newTestOrchestrator()
	l.Append(ctx, "alice", "hello")
	l.Append(ctx, "alice", "I had a long day")

	got, _ := o.Greeting(ctx, "alice")
	want := "Welcome back, alice! We'll complete your profile quickly. So far -> I remember 2 things about your preferences. Please share your skill level."
	if got != want {
		t.Errorf("greeting = %q, want %q", got, want)
	}
}

func TestGreeting_SelfHealsInferredFields(t *testing.T) {
	o, l, _ := newTestOrchestrator()
	l.Append(ctx, "alice", "I'm a vegan beginner")

	got, err := o.Greeting(ctx, "alice")
	if err != nil {
		t.Fatalf("Greeting: %v", err)
	}
	want := "Welcome back, alice! We'll complete your profile quickly. So far -> skill level: beginner; dietary preferences: vegan. Please share your allergies."
	if got != want {
		t.Errorf("greeting = %q, want %q", got, want)
	}
	if !l.has("alice", "PROFILE.skill_level: beginner") || !l.has("alice", "PROFILE.dietary_preferences: vegan") {
		t.Errorf("inferred fields not persisted: %q", l.texts("alice"))
	}
}

func TestGreeting_MinimalReady(t *testing.T) {
	o, l, _ := newTestOrchestrator()
	l.Append(ctx, "alice", profile.TagLine(profile.FieldSkillLevel, "advanced"))
	l.Append(ctx, "alice", profile.TagLine(profile.FieldDietaryPreferences, "none"))
	l.Append(ctx, "alice", profile.TagLine(profile.FieldAllergies, "none"))

	got, _ := o.Greeting(ctx, "alice")
	want := "Welcome back, alice! I have enough info (skill level: advanced; dietary preferences: none; allergies: none) to suggest recipes. Share ingredients if you like, or I can suggest something now."
	if got != want {
		t.Errorf("greeting = %q, want %q", got, want)
	}
}

func TestGreeting_Complete(t *testing.T) {
	o, l, _ := newTestOrchestrator()
	seedCompleteProfile(l, "alice")

	got, _ := o.Greeting(ctx, "alice")
	want := "Welcome back, alice! I have your profile (skill level: x; dietary preferences: x; allergies: x; dislikes: x; kitchen equipment: x; favorite cuisines: x; preferred meal types: x; time constraints: x). Are you looking for a recipe now? Share ingredients or I'll suggest one."
	if got != want {
		t.Errorf("greeting = %q, want %q", got, want)
	}
}
