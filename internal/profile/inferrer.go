package profile

import (
	"strings"

	"github.com/kalambet/chefmate/internal/memory"
)

type ruleMode int

const (
	// modeFirst sets the field only if no earlier rule in this pass set it.
	modeFirst ruleMode = iota
	// modeOverwrite always replaces the value.
	modeOverwrite
	// modeAppend adds the value to the field's list.
	modeAppend
)

// rule fires when any trigger is a substring of the haystack. Confidence is
// raised with max and never lowered.
type rule struct {
	field      string
	triggers   []string
	value      string
	confidence float64
	mode       ruleMode
}

// inferenceRules run in order on every call. Within allergies the value of the
// last matching rule is kept even though confidence is max'd across them.
var inferenceRules = buildRules()

func buildRules() []rule {
	rules := []rule{
		{FieldSkillLevel, []string{"intermediate", "intermediatry", "intermediatery"}, "intermediate", 0.8, modeFirst},
		{FieldSkillLevel, []string{"beginner"}, "beginner", 0.8, modeFirst},
		{FieldSkillLevel, []string{"advanced"}, "advanced", 0.8, modeFirst},

		{FieldDietaryPreferences, []string{"vegetarian"}, "vegetarian", 0.7, modeOverwrite},
		{FieldDietaryPreferences, []string{"vegan"}, "vegan", 0.7, modeOverwrite},

		{FieldAllergies, []string{"lactose"}, "lactose intolerance", 0.7, modeOverwrite},
		{FieldAllergies, []string{"gluten", "celiac"}, "gluten", 0.7, modeOverwrite},
		{FieldAllergies, []string{"peanut", "peanuts", "tree nut", "almond", "cashew", "walnut"}, "nuts", 0.7, modeOverwrite},
	}
	for _, allergen := range []string{"shellfish", "shrimp", "prawn", "crab", "egg allergy", "soy allergy", "soy intolerant"} {
		first, _, _ := strings.Cut(allergen, " ")
		rules = append(rules, rule{FieldAllergies, []string{allergen}, first, 0.7, modeOverwrite})
	}
	for _, food := range []string{"mushroom", "coriander", "olive", "capsicum"} {
		rules = append(rules, rule{
			field:      FieldDislikes,
			triggers:   []string{"dislike " + food, "do not like " + food, "don't like " + food},
			value:      food,
			confidence: 0.6,
			mode:       modeAppend,
		})
	}
	for _, tool := range []string{"air fryer", "slow cooker", "pressure cooker", "blender", "grill"} {
		rules = append(rules, rule{FieldKitchenEquipment, []string{tool}, tool, 0.6, modeAppend})
	}
	return rules
}

func (r rule) matches(haystack string) bool {
	for _, t := range r.triggers {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

// InferEntries guesses profile fields from the free text of every entry.
func InferEntries(entries []memory.Entry) Inference {
	inf := newInference()
	if len(entries) == 0 {
		return inf
	}
	haystack := strings.ToLower(strings.Join(memory.Texts(entries), " \n "))

	for _, r := range inferenceRules {
		if !r.matches(haystack) {
			continue
		}
		switch r.mode {
		case modeFirst:
			if _, set := inf.Values[r.field]; set {
				continue
			}
			inf.Values[r.field] = r.value
		case modeOverwrite:
			inf.Values[r.field] = r.value
		case modeAppend:
			inf.Lists[r.field] = append(inf.Lists[r.field], r.value)
		}
		inf.Confidence[r.field] = max(inf.Confidence[r.field], r.confidence)
	}
	return inf
}
