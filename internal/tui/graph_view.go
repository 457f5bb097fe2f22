package tui

import (
	"strings"

	"arbor/internal/app"
)

const (
	mapNodeWidth = 22
	mapColGap    = 4
	mapRowScale  = 55.0 // canvas y units per terminal row
	// One depth step (240 canvas units) spans one node column, so
	// position overrides shift nodes proportionally.
	mapColScale = 240.0 / (mapNodeWidth + mapColGap)
)

// mapModel tracks selection in the conversation-map pane.
type mapModel struct {
	sel int
}

func (m *mapModel) Move(delta, count int) {
	if count == 0 {
		m.sel = 0
		return
	}
	m.sel = (m.sel + delta%count + count) % count
}

// renderMap projects the laid-out group tree onto a character canvas. Columns
// and rows follow the computed (x, y) coordinates, so dragged overrides move
// nodes on screen; edges are drawn as elbow connectors from each parent to
// its children.
func renderMap(theme Theme, groups []*app.GroupedNode, sel int, headGroupID string, maxWidth, maxHeight int) string {
	if len(groups) == 0 {
		return theme.ChapterSubtopic.Render("empty conversation")
	}

	minX, minY := groups[0].X, groups[0].Y
	for _, g := range groups {
		if g.X < minX {
			minX = g.X
		}
		if g.Y < minY {
			minY = g.Y
		}
	}

	type placed struct {
		g        *app.GroupedNode
		col, row int
	}
	byID := make(map[string]placed, len(groups))
	rows, cols := 0, 0
	nodes := make([]placed, 0, len(groups))
	for _, g := range groups {
		p := placed{
			g:   g,
			col: int((g.X - minX) / mapColScale),
			row: int((g.Y - minY) / mapRowScale),
		}
		byID[g.ID] = p
		nodes = append(nodes, p)
		if p.row > rows {
			rows = p.row
		}
		if p.col+mapNodeWidth > cols {
			cols = p.col + mapNodeWidth
		}
	}

	grid := make([][]rune, rows+1)
	for i := range grid {
		grid[i] = make([]rune, cols)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}
	set := func(row, col int, r rune) {
		if row >= 0 && row < len(grid) && col >= 0 && col < len(grid[row]) && grid[row][col] == ' ' {
			grid[row][col] = r
		}
	}

	// Edges first so labels overwrite them.
	for _, p := range nodes {
		for _, childID := range p.g.ChildrenIDs {
			c, ok := byID[childID]
			if !ok {
				continue
			}
			jointCol := c.col - mapColGap/2 - 1
			for col := p.col + mapNodeWidth; col < jointCol; col++ {
				set(p.row, col, '─')
			}
			lo, hi := p.row, c.row
			if lo > hi {
				lo, hi = hi, lo
			}
			for row := lo; row <= hi; row++ {
				set(row, jointCol, '│')
			}
			for col := jointCol + 1; col < c.col; col++ {
				set(c.row, col, '─')
			}
		}
	}

	// Labels.
	type label struct {
		row, col int
		text     string
		style    int // 0 plain, 1 selected, 2 head
	}
	var labels []label
	for i, p := range nodes {
		text := "▢ " + p.g.Title
		if n := len(p.g.InternalChapters); n > 1 {
			text += " ⋮"
		}
		text = clipLine(text, mapNodeWidth)
		style := 0
		if p.g.ID == headGroupID {
			style = 2
		}
		if i == sel {
			style = 1
		}
		labels = append(labels, label{row: p.row, col: p.col, text: text, style: style})
		for j, r := range []rune(text) {
			if p.col+j < cols {
				grid[p.row][p.col+j] = r
			}
		}
	}

	// Render the grid, styling edge runs and label spans.
	var b strings.Builder
	for row := range grid {
		line := clipLine(strings.TrimRight(string(grid[row]), " "), maxWidth)
		styled := styleMapEdges(theme, line)
		for _, l := range labels {
			if l.row != row || !strings.Contains(line, l.text) {
				continue
			}
			var st = theme.MapNode
			switch l.style {
			case 1:
				st = theme.MapNodeSel
			case 2:
				st = theme.MapNodeHead
			}
			styled = strings.Replace(styled, l.text, st.Render(l.text), 1)
		}
		b.WriteString(styled)
		b.WriteString("\n")
	}
	out := strings.TrimRight(b.String(), "\n")

	lines := strings.Split(out, "\n")
	if maxHeight > 0 && len(lines) > maxHeight {
		// Keep the selected node in view.
		start := 0
		if sel < len(nodes) && nodes[sel].row >= maxHeight {
			start = nodes[sel].row - maxHeight + 1
		}
		end := start + maxHeight
		if end > len(lines) {
			end = len(lines)
		}
		lines = lines[start:end]
	}
	return strings.Join(lines, "\n")
}

// styleMapEdges wraps runs of connector runes in the edge style. Label text
// never contains connector runes, so label replacement downstream still finds
// its spans verbatim.
func styleMapEdges(theme Theme, line string) string {
	if !strings.ContainsAny(line, "─│") {
		return line
	}
	var b strings.Builder
	var run []rune
	flush := func() {
		if len(run) > 0 {
			b.WriteString(theme.MapEdge.Render(string(run)))
			run = run[:0]
		}
	}
	for _, r := range line {
		if r == '─' || r == '│' {
			run = append(run, r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}
