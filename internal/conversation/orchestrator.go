// Package conversation runs one chat turn end to end: memory recall, profile
// onboarding, the agent call, and writing what was learned back to memory.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/chefmate/internal/agent"
	"github.com/kalambet/chefmate/internal/engine"
	"github.com/kalambet/chefmate/internal/memory"
	"github.com/kalambet/chefmate/internal/profile"
)

// DefaultSearchLimit is the number of similar memories pulled into a turn.
const DefaultSearchLimit = 100

const recipeSnippetLen = 150

var (
	// ErrRunFailed is returned when the agent run ends in failure.
	ErrRunFailed = errors.New("agent run failed")
	// ErrNoResponse is returned when a run completes without assistant text.
	ErrNoResponse = errors.New("agent returned no response")
)

// RecallTriggers are phrases that make a turn list every stored memory
// instead of calling the agent. Matching is case-insensitive.
var RecallTriggers = []string{
	"what do you know about me",
	"print all my memories",
	"summarize my memories",
	"list my memories",
	"what have i told you",
	"what do you remember about me",
}

var recipeKeywords = []string{"recipe", "try ", "make ", "cook ", "dish", "meal"}

// Orchestrator sequences a chat turn across the ledger, the profile engine and
// the agent.
type Orchestrator struct {
	ledger      memory.Ledger
	profiles    *profile.Manager
	agent       agent.Agent
	searchLimit int
}

// New creates an Orchestrator. A searchLimit <= 0 uses DefaultSearchLimit.
func New(ledger memory.Ledger, profiles *profile.Manager, a agent.Agent, searchLimit int) *Orchestrator {
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &Orchestrator{ledger: ledger, profiles: profiles, agent: a, searchLimit: searchLimit}
}

// IsRecallRequest reports whether text asks for the full memory listing.
func IsRecallRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, t := range RecallTriggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// Turn answers text from userID on threadID and returns the reply.
func (o *Orchestrator) Turn(ctx context.Context, userID, threadID, text string) (string, error) {
	if IsRecallRequest(text) {
		return o.recall(ctx, userID)
	}

	hits, err := o.ledger.SearchSimilar(ctx, userID, text, o.searchLimit)
	if err != nil {
		return "", fmt.Errorf("searching memories: %w", err)
	}
	memCtx := Persona
	if len(hits) > 0 {
		memCtx = factsBlock(hits, text) + Persona
	}

	snap, err := o.profiles.Snapshot(ctx, userID)
	if err != nil {
		return "", err
	}
	planner := o.profiles.Planner()
	complete := planner.IsComplete(snap.Merged)

	message := text
	if !complete {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasSuffix(trimmed, "?") {
			message = planner.Question(snap.Merged)
		}
	}

	var b strings.Builder
	b.WriteString(message)
	b.WriteString(memCtx)

	captured := false
	if !complete {
		c, ok, err := o.profiles.CaptureNext(ctx, userID, text)
		if err != nil {
			return "", err
		}
		if ok {
			captured = true
			b.WriteString("\n\n" + profile.TagLine(c.Field, c.Value))
		} else {
			b.WriteString(planner.Guidance(snap.Merged))
		}
	}

	reply, err := o.ask(ctx, threadID, b.String())
	if err != nil {
		return "", err
	}

	// A blank message is stored as the question it was replaced with.
	said := text
	if strings.TrimSpace(text) == "" {
		said = message
	}
	if err := o.learn(ctx, userID, text, said, reply, captured); err != nil {
		return "", err
	}
	return reply, nil
}

// ask posts the user message, runs the agent and returns the newest assistant
// text.
func (o *Orchestrator) ask(ctx context.Context, threadID, content string) (string, error) {
	if _, err := o.agent.CreateMessage(ctx, threadID, engine.RoleUser, content); err != nil {
		return "", fmt.Errorf("posting message: %w", err)
	}
	run, err := o.agent.Run(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("running agent: %w", err)
	}
	if run.Status == agent.RunFailed {
		return "", fmt.Errorf("%w: %s", ErrRunFailed, run.LastError)
	}

	msgs, err := o.agent.ListMessages(ctx, threadID, agent.Descending)
	if err != nil {
		return "", fmt.Errorf("listing messages: %w", err)
	}
	for _, m := range msgs {
		if m.Role == engine.RoleAssistant && len(m.Content) > 0 {
			return m.Content[0], nil
		}
	}
	return "", ErrNoResponse
}

// learn writes the exchange and everything the reply revealed back to the
// ledger. said is the user side of the stored record; text is what the user
// typed and feeds capture.
func (o *Orchestrator) learn(ctx context.Context, userID, text, said, reply string, captured bool) error {
	if _, err := o.ledger.AppendConversation(ctx, userID, []memory.Turn{
		{Role: engine.RoleUser, Content: said},
		{Role: engine.RoleAssistant, Content: reply},
	}); err != nil {
		return fmt.Errorf("storing conversation: %w", err)
	}

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, profile.TagPrefix) && strings.Contains(line, ":") {
			if _, err := o.ledger.Append(ctx, userID, line); err != nil {
				return fmt.Errorf("storing profile tag: %w", err)
			}
		}
	}

	lower := strings.ToLower(reply)
	if strings.Contains(lower, "skill level") {
		if level, ok := profile.MentionedSkillLevel(reply); ok {
			if err := o.profiles.Record(ctx, userID, profile.FieldSkillLevel, level); err != nil {
				return err
			}
		}
	}

	planner := o.profiles.Planner()
	structured, err := o.profiles.Read(ctx, userID)
	if err != nil {
		return err
	}
	if !planner.IsComplete(structured) && !captured {
		if _, _, err := o.profiles.CaptureNext(ctx, userID, text); err != nil {
			return err
		}
		if structured, err = o.profiles.Read(ctx, userID); err != nil {
			return err
		}
	}

	if planner.IsComplete(structured) && mentionsRecipe(lower) {
		if _, err := o.ledger.Append(ctx, userID, "Recipe suggested: "+truncate(reply, recipeSnippetLen)+"..."); err != nil {
			return fmt.Errorf("storing recipe suggestion: %w", err)
		}
		slog.Debug("recipe suggestion tracked", "user_id", userID)
	}
	return nil
}

func (o *Orchestrator) recall(ctx context.Context, userID string) (string, error) {
	entries, err := o.ledger.ListAll(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("listing memories: %w", err)
	}
	if len(entries) == 0 {
		return "I don't have any memories stored for you yet.", nil
	}
	var b strings.Builder
	b.WriteString("Here is everything I remember about you from our past conversations:\n")
	writeNumbered(&b, entries)
	return strings.TrimSpace(b.String()), nil
}

func factsBlock(hits []memory.Entry, text string) string {
	var b strings.Builder
	b.WriteString("\n\nRelevant facts about you from previous conversations:\n")
	writeNumbered(&b, hits)
	fmt.Fprintf(&b, "\n\nLatest user message: %s\n", text)
	return b.String()
}

func writeNumbered(b *strings.Builder, entries []memory.Entry) {
	for i, e := range entries {
		fmt.Fprintf(b, "%d. %s\n", i+1, e.Text)
	}
}

func mentionsRecipe(lower string) bool {
	for _, k := range recipeKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
