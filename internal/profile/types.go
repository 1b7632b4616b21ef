package profile

import "strings"

// Onboarding fields.
const (
	FieldSkillLevel         = "skill_level"
	FieldDietaryPreferences = "dietary_preferences"
	FieldAllergies          = "allergies"
	FieldDislikes           = "dislikes"
	FieldKitchenEquipment   = "kitchen_equipment"
	FieldFavoriteCuisines   = "favorite_cuisines"
	FieldPreferredMealTypes = "preferred_meal_types"
	FieldTimeConstraints    = "time_constraints"
)

// RequiredFields lists every field needed for a complete profile, in the
// order they are asked.
var RequiredFields = []string{
	FieldSkillLevel,
	FieldDietaryPreferences,
	FieldAllergies,
	FieldDislikes,
	FieldKitchenEquipment,
	FieldFavoriteCuisines,
	FieldPreferredMealTypes,
	FieldTimeConstraints,
}

// MinimalFields is enough to start suggesting recipes.
var MinimalFields = []string{
	FieldSkillLevel,
	FieldDietaryPreferences,
	FieldAllergies,
}

// SkillLevels are the accepted skill_level values.
var SkillLevels = []string{"beginner", "intermediate", "advanced"}

// Profile maps field names to values.
type Profile map[string]string

// Has reports whether field is present with a non-empty value.
func (p Profile) Has(field string) bool {
	return p[field] != ""
}

// Clone returns a copy of p.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Inference is the result of keyword inference over a user's memories.
// Scalar fields live in Values, accumulating fields in Lists.
type Inference struct {
	Values     map[string]string
	Lists      map[string][]string
	Confidence map[string]float64
}

func newInference() Inference {
	return Inference{
		Values:     map[string]string{},
		Lists:      map[string][]string{},
		Confidence: map[string]float64{},
	}
}

// Value returns the inferred value of field. List fields are joined with ", ".
func (inf Inference) Value(field string) (string, bool) {
	if v, ok := inf.Values[field]; ok {
		return v, true
	}
	if l, ok := inf.Lists[field]; ok {
		return strings.Join(l, ", "), true
	}
	return "", false
}

// Profile flattens the inference into a Profile, ignoring confidence.
func (inf Inference) Profile() Profile {
	p := make(Profile, len(inf.Values)+len(inf.Lists))
	for k, v := range inf.Values {
		p[k] = v
	}
	for k := range inf.Lists {
		p[k], _ = inf.Value(k)
	}
	return p
}

// Empty reports whether nothing was inferred.
func (inf Inference) Empty() bool {
	return len(inf.Values) == 0 && len(inf.Lists) == 0
}

func fieldLabel(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
