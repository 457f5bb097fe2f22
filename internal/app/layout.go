package app

import (
	"strings"
	"unicode"
)

const (
	layoutXSpacing = 240.0
	layoutXOffset  = 40.0
	layoutYSpacing = 110.0
	layoutYOffset  = 40.0

	groupTitleMaxLen   = 35
	previewPlainMaxLen = 78
)

// Position is a 2-D canvas coordinate. User-dragged overrides use the same
// type and are merged on top of computed positions by group id.
type Position struct {
	X float64
	Y float64
}

// GroupedNode is a layout-only view of the forest: a maximal run of messages
// joined by single-child edges, split at branch points. Recomputed from
// scratch whenever messages or chapters change; never stored.
type GroupedNode struct {
	ID               string // id of the run's first message
	MessageIDs       []string
	Title            string
	Preview          string
	Depth            int
	X                float64
	Y                float64
	ChildrenIDs      []string
	InternalChapters []Chapter
}

// GroupMessages collapses the forest into grouped nodes. Starting at the
// root, a group greedily absorbs the chain while its tail has exactly one
// child, then recurses into each child of the tail at depth+1. Groups come
// back in discovery order, root group first.
func GroupMessages(s *Store, chapters []Chapter) []*GroupedNode {
	var out []*GroupedNode
	visited := make(map[string]bool, s.Len())

	var build func(headID string, depth int) *GroupedNode
	build = func(headID string, depth int) *GroupedNode {
		if visited[headID] {
			return nil
		}
		g := &GroupedNode{ID: headID, Depth: depth}
		out = append(out, g)

		cur := headID
		for {
			visited[cur] = true
			g.MessageIDs = append(g.MessageIDs, cur)
			children := s.Children(cur)
			if len(children) != 1 {
				for _, child := range children {
					if sub := build(child.ID, depth+1); sub != nil {
						g.ChildrenIDs = append(g.ChildrenIDs, sub.ID)
					}
				}
				break
			}
			cur = children[0].ID
		}

		g.InternalChapters = chaptersInGroup(chapters, g.MessageIDs)
		g.Title = groupTitle(s, g, chapters)
		g.Preview = groupPreview(s, g.MessageIDs)
		return g
	}

	build(s.RootID(), 0)
	return out
}

func chaptersInGroup(chapters []Chapter, memberIDs []string) []Chapter {
	member := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		member[id] = true
	}
	var out []Chapter
	for _, ch := range chapters {
		if member[ch.StartMessageID] {
			out = append(out, ch)
		}
	}
	return out
}

func groupTitle(s *Store, g *GroupedNode, chapters []Chapter) string {
	if len(g.MessageIDs) > 0 && g.MessageIDs[0] == s.RootID() {
		return "Start"
	}
	if n := len(g.InternalChapters); n > 0 {
		return g.InternalChapters[n-1].Title
	}
	for _, id := range g.MessageIDs {
		m, ok := s.Get(id)
		if !ok || m.Author != AuthorUser {
			continue
		}
		t := strings.TrimSpace(m.Content)
		if t == "" {
			continue
		}
		runes := []rune(t)
		if len(runes) > groupTitleMaxLen {
			return strings.TrimSpace(string(runes[:groupTitleMaxLen])) + "…"
		}
		return t
	}
	return "System"
}

// groupPreview summarizes the last assistant message of a run: a fenced code
// block beats a list beats cleaned plain text, each clipped to its own cap.
func groupPreview(s *Store, memberIDs []string) string {
	var last *Message
	for _, id := range memberIDs {
		if m, ok := s.Get(id); ok && m.Author == AuthorAssistant && m.Content != RootContent && m.Content != "" {
			last = m
		}
	}
	if last == nil {
		return ""
	}
	if snippet := codeSnippet(last.Content); snippet != "" {
		return snippet
	}
	if items := listExcerpt(last.Content); items != "" {
		return items
	}
	return plainExcerpt(last.Content)
}

func codeSnippet(content string) string {
	_, rest, found := strings.Cut(content, "```")
	if !found {
		return ""
	}
	body, _, _ := strings.Cut(rest, "```")
	lines := strings.Split(body, "\n")
	var kept []string
	for i, line := range lines {
		if i == 0 && isFenceInfo(line) {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
		if len(kept) == 3 {
			break
		}
	}
	return strings.Join(kept, "\n")
}

func isFenceInfo(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	for _, r := range line {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '+' {
			return false
		}
	}
	return true
}

func listExcerpt(content string) string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		t := strings.TrimSpace(line)
		if isListItem(t) {
			items = append(items, t)
			if len(items) == 2 {
				break
			}
		}
	}
	return strings.Join(items, "\n")
}

func isListItem(line string) bool {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return true
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')')
}

func plainExcerpt(content string) string {
	cleaned := strings.NewReplacer("**", "", "__", "", "`", "", "#", "").Replace(content)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	runes := []rune(cleaned)
	if len(runes) > previewPlainMaxLen {
		return string(runes[:previewPlainMaxLen]) + "…"
	}
	return cleaned
}

// CalculateGroupLayout assigns canvas coordinates: x is a pure function of
// depth, y comes from recursive subtree centering — leaves take consecutive
// slots and every parent sits at the vertical midpoint of its first and last
// child. Deterministic for a fixed input. overrides (user-dragged positions)
// win over computed coordinates; pass nil for none.
func CalculateGroupLayout(groups []*GroupedNode, overrides map[string]Position) {
	index := make(map[string]*GroupedNode, len(groups))
	for _, g := range groups {
		index[g.ID] = g
	}
	visited := make(map[string]bool, len(groups))

	var layoutSubtree func(g *GroupedNode, startY float64) float64
	layoutSubtree = func(g *GroupedNode, startY float64) float64 {
		if visited[g.ID] {
			return 0
		}
		visited[g.ID] = true

		var children []*GroupedNode
		for _, id := range g.ChildrenIDs {
			if c, ok := index[id]; ok {
				children = append(children, c)
			}
		}
		if len(children) == 0 {
			g.Y = startY
			return 1
		}
		cur := startY
		for _, c := range children {
			cur += layoutSubtree(c, cur)
		}
		g.Y = (children[0].Y + children[len(children)-1].Y) / 2
		return cur - startY
	}

	offset := 0.0
	for _, g := range groups {
		if g.Depth == 0 && !visited[g.ID] {
			offset += layoutSubtree(g, offset)
		}
	}

	for _, g := range groups {
		g.X = float64(g.Depth)*layoutXSpacing + layoutXOffset
		g.Y = g.Y*layoutYSpacing + layoutYOffset
		if p, ok := overrides[g.ID]; ok {
			g.X, g.Y = p.X, p.Y
		}
	}
}
