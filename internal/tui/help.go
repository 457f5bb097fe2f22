package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

type helpModel struct {
	keys  keyMap
	width int
}

func newHelpModel() helpModel {
	return helpModel{keys: defaultKeyMap(), width: 80}
}

func (m *helpModel) SetWidth(width int) {
	m.width = width
}

func (m helpModel) View() string {
	var b strings.Builder

	b.WriteString(helpTitleStyle.Render("arbor help"))
	b.WriteString("\n\n")

	b.WriteString(helpSectionStyle.Render("conversation"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s  send message\n", helpKeyStyle.Render("enter")))
	b.WriteString(fmt.Sprintf("  %s  swipe between sibling branches\n", helpKeyStyle.Render("alt+←/→")))
	b.WriteString(fmt.Sprintf("  %s  fork a new branch at the selected message\n", helpKeyStyle.Render("ctrl+b")))
	b.WriteString(fmt.Sprintf("  %s  cancel draft branch\n", helpKeyStyle.Render("esc")))

	b.WriteString("\n")
	b.WriteString(helpSectionStyle.Render("panes"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s  cycle focus input → chat → timeline\n", helpKeyStyle.Render("tab")))
	b.WriteString(fmt.Sprintf("  %s  toggle conversation map\n", helpKeyStyle.Render("ctrl+g")))
	b.WriteString(fmt.Sprintf("  %s  jump to chapter / map node\n", helpKeyStyle.Render("enter")))
	b.WriteString(fmt.Sprintf("  %s  nudge selected map node\n", helpKeyStyle.Render("H/J/K/L")))

	b.WriteString("\n")
	b.WriteString(helpFooterStyle.Render("ctrl+c quit | tab focus | ctrl+g map | alt+←/→ swipe"))
	return b.String()
}

type keyMap struct {
	Quit      key.Binding
	Enter     key.Binding
	FocusNext key.Binding
	SwipePrev key.Binding
	SwipeNext key.Binding
	Fork      key.Binding
	Cancel    key.Binding
	ToggleMap key.Binding
	Help      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send / select"),
		),
		FocusNext: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle focus"),
		),
		SwipePrev: key.NewBinding(
			key.WithKeys("alt+left"),
			key.WithHelp("alt+←", "previous branch"),
		),
		SwipeNext: key.NewBinding(
			key.WithKeys("alt+right"),
			key.WithHelp("alt+→", "next branch"),
		),
		Fork: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("ctrl+b", "fork branch"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel draft"),
		),
		ToggleMap: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "toggle map"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+_"),
			key.WithHelp("ctrl+/", "help"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.SwipePrev, k.SwipeNext, k.Fork, k.ToggleMap, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Enter, k.SwipePrev, k.SwipeNext, k.Fork},
		{k.FocusNext, k.ToggleMap, k.Cancel, k.Quit},
	}
}

var (
	helpTitleStyle   = lipgloss.NewStyle().Bold(true)
	helpSectionStyle = lipgloss.NewStyle().Bold(true).Faint(true)
	helpKeyStyle     = lipgloss.NewStyle().Bold(true)
	helpFooterStyle  = lipgloss.NewStyle().Faint(true)
)
