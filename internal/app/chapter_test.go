package app

import (
	"strings"
	"testing"
)

func TestInferCategory(t *testing.T) {
	tests := []struct {
		title string
		want  Category
	}{
		{"same", CategoryRefinement},
		{"Same", CategoryRefinement},
		{"Brainstorming names", CategoryBrainstorm},
		{"An idea for the API", CategoryBrainstorm},
		{"Decision on storage", CategoryDecision},
		{"Selecting a framework", CategoryDecision},
		{"Refine the draft", CategoryRefinement},
		{"Fix the login bug", CategoryRefinement},
		{"Improve error copy", CategoryRefinement},
		{"Project context", CategoryContext},
		{"Greeting", CategoryContext},
		{"Analyze the logs", CategoryContext},
		{"Cat Facts", CategoryTangent},
	}
	for _, tc := range tests {
		t.Run(tc.title, func(t *testing.T) {
			if got := InferCategory(tc.title); got != tc.want {
				t.Fatalf("InferCategory(%q) = %s, want %s", tc.title, got, tc.want)
			}
		})
	}
}

func TestExtractSubtopics(t *testing.T) {
	long := strings.Repeat("x", 80)
	batch := []ChatTurn{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleModel, Content: "model text is never a subtopic"},
		{Role: RoleUser, Content: "How do I structure the config?"},
		{Role: RoleUser, Content: "ok"},
		{Role: RoleUser, Content: long},
		{Role: RoleUser, Content: "a third qualifying question"},
	}

	got := ExtractSubtopics(batch)
	if len(got) != 2 {
		t.Fatalf("ExtractSubtopics returned %d items, want 2", len(got))
	}
	if got[0] != "How do I structure the config?" {
		t.Fatalf("subtopic[0] = %q", got[0])
	}
	if len([]rune(got[1])) != subtopicMaxLen+1 || !strings.HasSuffix(got[1], "…") {
		t.Fatalf("long subtopic not truncated to %d+ellipsis: %q", subtopicMaxLen, got[1])
	}
}

func TestMergeSubtopicsCapsAtTwelve(t *testing.T) {
	var base []string
	for _, s := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"} {
		base = append(base, s)
	}
	got := mergeSubtopics(base, []string{"b", "l", "m", "n"})
	if len(got) != maxSubtopics {
		t.Fatalf("merged length = %d, want %d", len(got), maxSubtopics)
	}
	if got[11] != "l" {
		t.Fatalf("merged[11] = %q, want first new entry %q (duplicates skipped)", got[11], "l")
	}
}
