package app

import (
	"strings"

	"github.com/google/uuid"
)

const (
	maxSubtopics      = 12
	subtopicMaxLen    = 55
	subtopicsPerBatch = 2
)

// Chapter names a contiguous run of messages on some thread. Chapters are
// append-only apart from the three fold-in paths in the segmenter: extend the
// latest on-thread chapter, patch an eagerly-created fork chapter, or create.
type Chapter struct {
	ID             string
	Title          string
	Category       Category
	StartMessageID string
	MessageCount   int
	Subtopics      []string
}

func NewChapter(title string, startMessageID string, messageCount int, subtopics []string) Chapter {
	return Chapter{
		ID:             uuid.NewString(),
		Title:          title,
		Category:       InferCategory(title),
		StartMessageID: startMessageID,
		MessageCount:   messageCount,
		Subtopics:      subtopics,
	}
}

// categoryKeywords is checked in order; the first set with a substring match
// wins. Titles matching nothing are tangents.
var categoryKeywords = []struct {
	words    []string
	category Category
}{
	{[]string{"brainstorm", "idea"}, CategoryBrainstorm},
	{[]string{"decision", "select"}, CategoryDecision},
	{[]string{"refine", "fix", "edit", "improve"}, CategoryRefinement},
	{[]string{"context", "analyze", "greeting", "start"}, CategoryContext},
}

func InferCategory(title string) Category {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "same" {
		return CategoryRefinement
	}
	for _, set := range categoryKeywords {
		for _, w := range set.words {
			if strings.Contains(t, w) {
				return set.category
			}
		}
	}
	return CategoryTangent
}

// subtopicIgnore filters greetings and bare acknowledgements out of subtopic
// extraction.
var subtopicIgnore = map[string]bool{
	"hi": true, "hello": true, "hey": true, "yo": true,
	"thanks": true, "thank you": true, "thx": true,
	"ok": true, "okay": true, "k": true, "kk": true,
	"yes": true, "no": true, "yep": true, "nope": true, "sure": true,
	"cool": true, "great": true, "nice": true, "got it": true,
}

// ExtractSubtopics pulls up to two short labels from the user turns of a
// batch, skipping greetings/acks and anything shorter than two characters.
func ExtractSubtopics(batch []ChatTurn) []string {
	var out []string
	for _, turn := range batch {
		if turn.Role != RoleUser {
			continue
		}
		trimmed := strings.TrimSpace(turn.Content)
		if len(trimmed) <= 1 || subtopicIgnore[strings.ToLower(trimmed)] {
			continue
		}
		out = append(out, truncateSubtopic(trimmed))
		if len(out) == subtopicsPerBatch {
			break
		}
	}
	return out
}

func truncateSubtopic(s string) string {
	runes := []rune(s)
	if len(runes) <= subtopicMaxLen {
		return s
	}
	return string(runes[:subtopicMaxLen]) + "…"
}

// mergeSubtopics unions extra into base preserving order, capped at
// maxSubtopics.
func mergeSubtopics(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	out := make([]string, 0, len(base)+len(extra))
	for _, s := range base {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range extra {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if len(out) > maxSubtopics {
		out = out[:maxSubtopics]
	}
	return out
}
