package app

import "testing"

func TestSwipeSiblingWrapsAround(t *testing.T) {
	s := forkedFixture(t)

	tests := []struct {
		name    string
		from    string
		dir     SwipeDirection
		wantEnd string
	}{
		{"next from last wraps to first", "D", SwipeNext, "C"},
		{"prev from first wraps to last", "C", SwipePrev, "D"},
		{"next from first moves to second", "C", SwipeNext, "D"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, cancelled := SwipeSibling(s, tc.from, tc.dir, nil)
			if got != tc.wantEnd {
				t.Fatalf("SwipeSibling(%s) = %s, want %s", tc.from, got, tc.wantEnd)
			}
			if cancelled {
				t.Fatalf("SwipeSibling(%s) reported draft cancel without a draft", tc.from)
			}
		})
	}
}

func TestSwipeDescendsToLatestLeaf(t *testing.T) {
	s := forkedFixture(t)
	mustAdd(t, s, "E", "C", AuthorAssistant, "older reply", 30)
	mustAdd(t, s, "F", "C", AuthorAssistant, "newer reply", 40)

	got, _ := SwipeSibling(s, "D", SwipeNext, nil)
	if got != "F" {
		t.Fatalf("swipe to C landed on %s, want latest leaf F", got)
	}
}

func TestSwipeSingletonGroupIsNoop(t *testing.T) {
	s := forkedFixture(t)
	got, _ := SwipeSibling(s, "A", SwipeNext, nil)
	if got != "A" {
		t.Fatalf("swipe in singleton group moved to %s, want A", got)
	}
}

func TestSwipeAwayFromDraftCancels(t *testing.T) {
	s := forkedFixture(t)
	draft := &Draft{ID: "draft-1", AnchorID: "B"}

	got, cancelled := SwipeSibling(s, draft.ID, SwipeNext, draft)
	if !cancelled {
		t.Fatalf("swiping off the placeholder did not cancel the draft")
	}
	// Placeholder is slot 3 of [C D ghost]; next wraps to C's leaf.
	if got != "C" {
		t.Fatalf("swipe from placeholder landed on %s, want C", got)
	}

	got, cancelled = SwipeSibling(s, draft.ID, SwipePrev, draft)
	if !cancelled || got != "D" {
		t.Fatalf("prev swipe from placeholder = (%s, %v), want (D, true)", got, cancelled)
	}
}

func TestResolveToLeaf(t *testing.T) {
	s := forkedFixture(t)
	mustAdd(t, s, "E", "C", AuthorAssistant, "older reply", 30)
	mustAdd(t, s, "F", "C", AuthorAssistant, "newer reply", 40)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"interior node picks most recent descendant leaf", "B", "F"},
		{"node with no descendants resolves to itself", "D", "D"},
		{"subtree target", "C", "F"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveToLeaf(s, tc.target); got != tc.want {
				t.Fatalf("ResolveToLeaf(%s) = %s, want %s", tc.target, got, tc.want)
			}
		})
	}
}

func TestResolveToLeafFromRoot(t *testing.T) {
	s := forkedFixture(t)
	got := ResolveToLeaf(s, s.RootID())
	// Root descends through its first child; A's chain ends at B's latest
	// child, D.
	if got != "D" {
		t.Fatalf("ResolveToLeaf(root) = %s, want D", got)
	}

	empty := NewStore()
	if got := ResolveToLeaf(empty, empty.RootID()); got != empty.RootID() {
		t.Fatalf("ResolveToLeaf(childless root) = %s, want root", got)
	}
}
