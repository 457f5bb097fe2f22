package tui

import (
	"fmt"
	"strings"

	"arbor/internal/app"

	"github.com/charmbracelet/lipgloss"
)

func (m *MainModel) refreshChat(gotoBottom bool) {
	if !m.ready {
		return
	}
	m.chatVP.SetContent(m.renderThread())
	if gotoBottom {
		m.chatVP.GotoBottom()
	}
}

func (m *MainModel) renderThread() string {
	thread := m.session.Thread()
	if len(thread) == 0 {
		return m.theme.RoleSys.Render("Start the conversation below.")
	}

	var b strings.Builder
	for i, tm := range thread {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(thread, i, tm))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *MainModel) renderMessage(thread []app.ThreadMessage, idx int, tm app.ThreadMessage) string {
	isGhost := m.session.Draft.IsPlaceholder(tm.ID)

	var head strings.Builder
	if m.focus == focusChat && idx == m.chatSel {
		head.WriteString("▌ ")
	}
	switch {
	case isGhost:
		head.WriteString(m.theme.DraftGhost.Render("you (draft)"))
	case tm.Author == app.AuthorUser:
		head.WriteString(m.theme.RoleYou.Render("you"))
	default:
		head.WriteString(m.theme.RoleAI.Render("arbor"))
	}
	if chrome := fmtSiblingChrome(tm.SiblingIndex, tm.SiblingCount); chrome != "" {
		head.WriteString("  ")
		head.WriteString(m.theme.SiblingChrome.Render(chrome))
	}

	body := tm.Content
	switch {
	case isGhost:
		body = m.theme.DraftGhost.Render("… type your branch and press enter")
	case tm.Author == app.AuthorAssistant:
		if body == "" && m.running && idx == len(thread)-1 {
			body = m.theme.Spinner.Render(spinnerFrames[m.spinnerPos])
		} else {
			body = m.markdown.Render(body)
		}
	}
	return head.String() + "\n" + body
}

func (m *MainModel) View() string {
	if !m.ready {
		return "…"
	}
	if m.showHelp {
		return m.help.View()
	}

	top := m.renderTopBar()
	var main string
	if m.showMap {
		main = m.renderMapPane()
	} else {
		main = m.renderChatRow()
	}
	input := m.renderInput()
	footer := m.renderFooter()
	return lipgloss.JoinVertical(lipgloss.Left, top, main, input, footer)
}

func (m *MainModel) renderTopBar() string {
	title := m.theme.TopBarTitle.Render("arbor")
	badge := ""
	if m.session.Draft != nil {
		badge = m.theme.TopBarBadge.Render(" drafting ")
	}
	meta := m.theme.TopBarMeta.Render(fmt.Sprintf("%d messages · %d chapters", m.session.Store.Len()-1, len(m.session.Chapters)))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", badge, "  ", meta)
}

func (m *MainModel) renderChatRow() string {
	chatW, chatH := m.chatSize()
	chatStyle := m.theme.Pane
	if m.focus == focusChat {
		chatStyle = m.theme.PaneFocused
	}
	chat := chatStyle.Width(chatW + 2).Height(chatH).Render(m.chatVP.View())

	if m.width < 100 {
		return chat
	}

	tlW := timelineWidth(m.width)
	tlStyle := m.theme.Pane
	title := m.theme.PaneTitle
	if m.focus == focusTimeline {
		tlStyle = m.theme.PaneFocused
		title = m.theme.PaneTitleF
	}
	chapters := m.session.ThreadChapters()
	body := title.Render("timeline") + "\n" + renderTimeline(m.theme, chapters, m.timeline.sel, m.focus == focusTimeline, tlW-4)
	tl := tlStyle.Width(tlW).Height(chatH).Render(body)
	return lipgloss.JoinHorizontal(lipgloss.Top, chat, tl)
}

func (m *MainModel) renderMapPane() string {
	_, chatH := m.chatSize()
	style := m.theme.Pane
	title := m.theme.PaneTitle
	if m.focus == focusMap {
		style = m.theme.PaneFocused
		title = m.theme.PaneTitleF
	}
	groups := m.session.Layout()
	headGroup := ""
	for _, g := range groups {
		for _, id := range g.MessageIDs {
			if id == m.session.ActiveHeadID {
				headGroup = g.ID
			}
		}
	}
	canvas := renderMap(m.theme, groups, m.mapView.sel, headGroup, m.width-6, chatH-1)
	return style.Width(m.width - 2).Height(chatH).Render(title.Render("conversation map") + "\n" + canvas)
}

func (m *MainModel) renderInput() string {
	style := m.theme.InputBox
	if m.focus == focusInput {
		style = m.theme.InputBoxF
	}
	return style.Width(m.width - 2).Render(m.input.View())
}

func (m *MainModel) renderFooter() string {
	status := m.statusText
	if m.running {
		status = m.theme.Spinner.Render(spinnerFrames[m.spinnerPos]) + " " + status
	}
	var keys []string
	for _, b := range m.keys.ShortHelp() {
		keys = append(keys, b.Help().Key+" "+b.Help().Desc)
	}
	return m.theme.Footer.Render(status + "  ·  " + strings.Join(keys, " | "))
}
