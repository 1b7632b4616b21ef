package profile

import (
	"strings"
	"testing"
)

func TestInferEntries_Empty(t *testing.T) {
	inf := InferEntries(nil)
	if !inf.Empty() || len(inf.Confidence) != 0 {
		t.Errorf("InferEntries(nil) = %+v, want empty", inf)
	}
}

func TestInferEntries_SkillLevelPriority(t *testing.T) {
	tests := []struct {
		texts []string
		want  string
	}{
		{[]string{"I'm an advanced cook", "still a beginner at baking"}, "beginner"},
		{[]string{"beginner once", "now intermediatery I think"}, "intermediate"},
		{[]string{"Advanced techniques please"}, "advanced"},
	}
	for _, tt := range tests {
		inf := InferEntries(entries(tt.texts...))
		if got := inf.Values[FieldSkillLevel]; got != tt.want {
			t.Errorf("skill_level for %q = %q, want %q", tt.texts, got, tt.want)
		}
		if c := inf.Confidence[FieldSkillLevel]; c != 0.8 {
			t.Errorf("confidence = %v, want 0.8", c)
		}
	}
}

func TestInferEntries_VeganOverwritesVegetarian(t *testing.T) {
	inf := InferEntries(entries("I was vegetarian", "now fully vegan"))
	if got := inf.Values[FieldDietaryPreferences]; got != "vegan" {
		t.Errorf("dietary_preferences = %q, want vegan", got)
	}
	if c := inf.Confidence[FieldDietaryPreferences]; c != 0.7 {
		t.Errorf("confidence = %v, want 0.7", c)
	}
}

func TestInferEntries_Allergies(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"I am lactose intolerant", "lactose intolerance"},
		{"I have celiac disease", "gluten"},
		{"allergic to cashews", "nuts"},
		{"I have an egg allergy", "egg"},
		{"soy intolerant here", "soy"},
	}
	for _, tt := range tests {
		inf := InferEntries(entries(tt.text))
		if got := inf.Values[FieldAllergies]; got != tt.want {
			t.Errorf("allergies for %q = %q, want %q", tt.text, got, tt.want)
		}
	}
}

// Known quirk: the value comes from the last matching allergy rule while the
// confidence is the max over all matching rules, so the two can disagree about
// which rule decided the field.
func TestInferEntries_AllergyLastRuleWinsQuirk(t *testing.T) {
	inf := InferEntries(entries("lactose makes me ill", "and shrimp too", "peanuts are fine though"))
	if got := inf.Values[FieldAllergies]; got != "shrimp" {
		t.Errorf("allergies = %q, want shrimp (last rule in evaluation order)", got)
	}
	if c := inf.Confidence[FieldAllergies]; c != 0.7 {
		t.Errorf("confidence = %v, want 0.7", c)
	}
}

func TestInferEntries_ListsAccumulateInRuleOrder(t *testing.T) {
	inf := InferEntries(entries(
		"I don't like olives and I DISLIKE MUSHROOMS",
		"I use a grill and an air fryer",
		"olive oil is fine",
	))

	if got := strings.Join(inf.Lists[FieldDislikes], ","); got != "mushroom,olive" {
		t.Errorf("dislikes = %q, want mushroom,olive", got)
	}
	if got := strings.Join(inf.Lists[FieldKitchenEquipment], ","); got != "air fryer,grill" {
		t.Errorf("kitchen_equipment = %q, want air fryer,grill", got)
	}
	if c := inf.Confidence[FieldDislikes]; c != 0.6 {
		t.Errorf("dislikes confidence = %v, want 0.6", c)
	}
	if v, _ := inf.Value(FieldKitchenEquipment); v != "air fryer, grill" {
		t.Errorf("Value(kitchen_equipment) = %q", v)
	}
}

func TestInferEntries_MentionWithoutDislikeIgnored(t *testing.T) {
	inf := InferEntries(entries("mushroom risotto sounds great"))
	if _, ok := inf.Lists[FieldDislikes]; ok {
		t.Errorf("dislikes = %v, want none", inf.Lists[FieldDislikes])
	}
}

func TestInferEntries_JoinsAcrossEntries(t *testing.T) {
	// Entries are joined with " \n " so a phrase split across two entries
	// does not match.
	inf := InferEntries(entries("I don't like", "mushroom"))
	if _, ok := inf.Lists[FieldDislikes]; ok {
		t.Errorf("dislikes matched across entries: %v", inf.Lists[FieldDislikes])
	}
}
