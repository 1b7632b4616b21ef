package profile

import "strings"

// Capture is an answer recorded for an onboarding field.
type Capture struct {
	Field string
	Value string
}

// NormalizeAnswer decides whether text answers field and returns the value to
// record. skill_level only accepts text naming one of SkillLevels; other
// fields take the trimmed text verbatim.
func NormalizeAnswer(field, text string) (string, bool) {
	text = strings.TrimSpace(text)
	if field == "" || text == "" {
		return "", false
	}
	if field != FieldSkillLevel {
		return text, true
	}
	return MentionedSkillLevel(text)
}

// MentionedSkillLevel returns the first of SkillLevels found in text,
// case-insensitively.
func MentionedSkillLevel(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, level := range SkillLevels {
		if strings.Contains(lower, level) {
			return level, true
		}
	}
	return "", false
}
