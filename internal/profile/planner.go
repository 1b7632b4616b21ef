package profile

import (
	"fmt"
	"sort"
	"strings"
)

// Planner decides what to ask next during onboarding.
type Planner struct {
	Required []string
	Minimal  []string
}

// DefaultPlanner uses RequiredFields and MinimalFields.
func DefaultPlanner() Planner {
	return Planner{Required: RequiredFields, Minimal: MinimalFields}
}

// IsComplete reports whether every required field is filled.
func (pl Planner) IsComplete(p Profile) bool {
	return firstMissing(p, pl.Required) == ""
}

// MinimalReady reports whether every minimal field is filled.
func (pl Planner) MinimalReady(p Profile) bool {
	return firstMissing(p, pl.Minimal) == ""
}

// NextField returns the first missing minimal field, then the first missing
// required field. ok is false when the profile is complete.
func (pl Planner) NextField(p Profile) (field string, ok bool) {
	if f := firstMissing(p, pl.Minimal); f != "" {
		return f, true
	}
	if f := firstMissing(p, pl.Required); f != "" {
		return f, true
	}
	return "", false
}

func firstMissing(p Profile, fields []string) string {
	for _, f := range fields {
		if !p.Has(f) {
			return f
		}
	}
	return ""
}

// Summary renders known fields as "field name: value" joined by "; ",
// required fields first in their order, then any others sorted.
// An empty profile renders as "none yet".
func (pl Planner) Summary(p Profile) string {
	var bits []string
	seen := make(map[string]bool, len(pl.Required))
	for _, f := range pl.Required {
		seen[f] = true
		if p.Has(f) {
			bits = append(bits, fieldLabel(f)+": "+p[f])
		}
	}
	var extra []string
	for f := range p {
		if !seen[f] && p.Has(f) {
			extra = append(extra, f)
		}
	}
	sort.Strings(extra)
	for _, f := range extra {
		bits = append(bits, fieldLabel(f)+": "+p[f])
	}
	if len(bits) == 0 {
		return "none yet"
	}
	return strings.Join(bits, "; ")
}

// Question asks the user for the next missing field. It returns "" for a
// complete profile.
func (pl Planner) Question(p Profile) string {
	field, ok := pl.NextField(p)
	if !ok {
		return ""
	}
	return fmt.Sprintf("Let's continue your profile. So far I have: %s. Please share your %s. Respond naturally; I'll record it as %s: <value>.",
		pl.Summary(p), fieldLabel(field), TagPrefix+field)
}

// Guidance is the hidden instruction telling the agent which single field to
// ask about and how to tag the answer. It returns "" for a complete profile.
func (pl Planner) Guidance(p Profile) string {
	field, ok := pl.NextField(p)
	if !ok {
		return ""
	}
	return fmt.Sprintf("\n\nONBOARDING GUIDANCE (do not show to user): Collected profile so far -> %s. "+
		"Ask ONLY about '%s' next. When the user answers, include a new line '%s: <value>' in your reply. "+
		"Do not repeat questions that have already been answered.",
		pl.Summary(p), fieldLabel(field), TagPrefix+field)
}
