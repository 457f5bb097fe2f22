package tui

import (
	"fmt"
	"strings"

	"arbor/internal/app"
)

// timelineModel tracks selection in the chapter pane. The chapter list
// itself is re-derived from the session on every render.
type timelineModel struct {
	sel int
}

func (m *timelineModel) Move(delta, count int) {
	if count == 0 {
		m.sel = 0
		return
	}
	m.sel += delta
	if m.sel < 0 {
		m.sel = 0
	}
	if m.sel >= count {
		m.sel = count - 1
	}
}

func (m *timelineModel) Clamp(count int) {
	if m.sel >= count {
		m.sel = count - 1
	}
	if m.sel < 0 {
		m.sel = 0
	}
}

func renderTimeline(theme Theme, chapters []app.Chapter, sel int, focused bool, width int) string {
	if len(chapters) == 0 {
		return theme.ChapterSubtopic.Render("no chapters yet")
	}
	var b strings.Builder
	for i, ch := range chapters {
		marker := "  "
		titleStyle := theme.ChapterTitle
		if focused && i == sel {
			marker = "› "
			titleStyle = theme.ChapterSel
		}
		line := fmt.Sprintf("%s%s %s", marker, CategoryGlyph(ch.Category), ch.Title)
		if ch.MessageCount > 0 {
			line += theme.ChapterSubtopic.Render(fmt.Sprintf(" (%d)", ch.MessageCount))
		}
		b.WriteString(titleStyle.Render(clipLine(line, width)))
		b.WriteString("\n")
		for _, sub := range ch.Subtopics {
			b.WriteString(theme.ChapterSubtopic.Render(clipLine("     · "+sub, width)))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func clipLine(s string, width int) string {
	if width <= 1 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
