package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arbor/internal/app"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusChat
	focusTimeline
	focusMap
)

type chunkMsg struct{ text string }
type streamDoneMsg struct {
	served string
	err    error
}
type classifiedMsg struct {
	batch  *app.PendingBatch
	result string
}
type spinMsg struct{}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type MainModel struct {
	session *app.Session

	theme Theme
	help  helpModel
	keys  keyMap

	width  int
	height int
	ready  bool

	focus    focusArea
	showMap  bool
	showHelp bool

	input  textarea.Model
	chatVP viewport.Model

	markdown *MarkdownRenderer
	timeline timelineModel
	mapView  mapModel

	// chatSel is the selected thread index when the chat pane has focus;
	// forks anchor there.
	chatSel int

	running    bool
	statusText string
	spinnerPos int
	cancel     context.CancelFunc
	chunkCh    chan string
	doneCh     chan streamDoneMsg
}

func NewMainModel(session *app.Session) *MainModel {
	ta := textarea.New()
	ta.Placeholder = "Say something. Enter sends, ctrl+b forks, alt+←/→ swipes."
	ta.Focus()
	ta.CharLimit = 8000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()

	t := NewTheme()
	return &MainModel{
		session:    session,
		theme:      t,
		help:       newHelpModel(),
		keys:       defaultKeyMap(),
		width:      100,
		height:     30,
		focus:      focusInput,
		input:      ta,
		markdown:   NewMarkdownRenderer(t),
		statusText: "Ready",
	}
}

func (m *MainModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetWidth(m.width)
		chatW, chatH := m.chatSize()
		if !m.ready {
			m.chatVP = viewport.New(chatW, chatH)
			m.ready = true
		} else {
			m.chatVP.Width = chatW
			m.chatVP.Height = chatH
		}
		m.input.SetWidth(max(10, m.width-6))
		m.refreshChat(true)
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case chunkMsg:
		m.session.ApplyChunk(msg.text)
		m.refreshChat(true)
		if m.running {
			return m, m.waitStreamMsg()
		}
		return m, nil

	case streamDoneMsg:
		m.running = false
		m.cancel = nil
		m.chunkCh = nil
		m.doneCh = nil
		m.session.FinishStream(msg.served, msg.err)
		if msg.err != nil {
			m.statusText = fmt.Sprintf("error: %v", msg.err)
		} else if m.session.LastProvider != "" {
			m.statusText = "via " + m.session.LastProvider
		} else {
			m.statusText = "Ready"
		}
		m.refreshChat(true)
		return m, m.dispatchClassification()

	case classifiedMsg:
		m.session.ApplyClassification(msg.batch, msg.result)
		m.timeline.Clamp(len(m.session.ThreadChapters()))
		return m, nil

	case spinMsg:
		m.spinnerPos = (m.spinnerPos + 1) % len(spinnerFrames)
		if m.running {
			return m, m.spinTick()
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == focusInput {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.chatVP, cmd = m.chatVP.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *MainModel) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return nil, true

	case key.Matches(msg, m.keys.FocusNext):
		m.cycleFocus()
		return nil, true

	case key.Matches(msg, m.keys.ToggleMap):
		m.showMap = !m.showMap
		if m.showMap {
			m.focus = focusMap
			m.input.Blur()
		} else if m.focus == focusMap {
			m.focus = focusInput
			m.input.Focus()
		}
		return nil, true

	case key.Matches(msg, m.keys.SwipePrev):
		m.session.Swipe(app.SwipePrev)
		m.chatSel = -1
		m.refreshChat(true)
		return m.dispatchClassification(), true

	case key.Matches(msg, m.keys.SwipeNext):
		m.session.Swipe(app.SwipeNext)
		m.chatSel = -1
		m.refreshChat(true)
		return m.dispatchClassification(), true

	case key.Matches(msg, m.keys.Fork):
		m.beginFork()
		return nil, true

	case key.Matches(msg, m.keys.Cancel):
		if m.running && m.cancel != nil {
			m.statusText = "Cancelling…"
			m.cancel()
			return nil, true
		}
		if m.session.Draft != nil {
			m.session.CancelDraft()
			m.statusText = "Draft cancelled"
			m.refreshChat(true)
		}
		return nil, true

	case key.Matches(msg, m.keys.Enter):
		switch m.focus {
		case focusTimeline:
			return m.jumpToChapter(), true
		case focusMap:
			return m.jumpToMapNode(), true
		case focusChat:
			return nil, true
		default:
			return m.onEnter(), true
		}
	}

	switch m.focus {
	case focusChat:
		if msg.Type == tea.KeyUp || msg.Type == tea.KeyDown {
			m.moveChatSel(msg.Type)
			return nil, true
		}
	case focusTimeline:
		if msg.Type == tea.KeyUp {
			m.timeline.Move(-1, len(m.session.ThreadChapters()))
			return nil, true
		}
		if msg.Type == tea.KeyDown {
			m.timeline.Move(1, len(m.session.ThreadChapters()))
			return nil, true
		}
	case focusMap:
		groups := m.session.Layout()
		switch msg.String() {
		case "up", "left":
			m.mapView.Move(-1, len(groups))
			return nil, true
		case "down", "right":
			m.mapView.Move(1, len(groups))
			return nil, true
		case "H", "J", "K", "L":
			m.nudgeSelected(msg.String(), groups)
			return nil, true
		}
	}
	return nil, false
}

func (m *MainModel) onEnter() tea.Cmd {
	val := strings.TrimSpace(m.input.Value())
	if val == "" {
		return nil
	}
	if m.running {
		m.statusText = "Still streaming (esc cancels)."
		return nil
	}
	if _, err := m.session.Send(val); err != nil {
		m.statusText = fmt.Sprintf("error: %v", err)
		return nil
	}
	m.input.Reset()
	m.chatSel = -1
	m.refreshChat(true)

	m.running = true
	m.statusText = "Thinking…"
	m.spinnerPos = 0

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.chunkCh = make(chan string, 256)
	m.doneCh = make(chan streamDoneMsg, 1)

	history := m.session.PendingHistory()
	providers := m.session.Providers
	go func(chunks chan string, done chan streamDoneMsg) {
		served, err := providers.Stream(ctx, history, func(chunk string) {
			chunks <- chunk
		})
		close(chunks)
		done <- streamDoneMsg{served: served, err: err}
	}(m.chunkCh, m.doneCh)

	return tea.Batch(m.waitStreamMsg(), m.spinTick())
}

func (m *MainModel) waitStreamMsg() tea.Cmd {
	chunks := m.chunkCh
	done := m.doneCh
	return func() tea.Msg {
		if chunks == nil || done == nil {
			return nil
		}
		// chunks closes before done is sent, so draining it first cannot
		// drop the tail of a reply.
		if c, ok := <-chunks; ok {
			return chunkMsg{text: c}
		}
		return <-done
	}
}

// dispatchClassification forms the next chapter batch and resolves it off
// the event loop. The segmenter cursor has already advanced by the time the
// classifier runs; the result is folded in when classifiedMsg arrives.
func (m *MainModel) dispatchClassification() tea.Cmd {
	batch := m.session.EvaluateChapters()
	if batch == nil {
		return nil
	}
	session := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return classifiedMsg{batch: batch, result: session.Classify(ctx, batch)}
	}
}

func (m *MainModel) spinTick() tea.Cmd {
	return tea.Tick(90*time.Millisecond, func(_ time.Time) tea.Msg { return spinMsg{} })
}

func (m *MainModel) cycleFocus() {
	order := []focusArea{focusInput, focusChat, focusTimeline}
	if m.showMap {
		order = append(order, focusMap)
	}
	cur := 0
	for i, f := range order {
		if f == m.focus {
			cur = i
			break
		}
	}
	m.focus = order[(cur+1)%len(order)]
	if m.focus == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	if m.focus != focusChat {
		m.chatSel = -1
		m.refreshChat(false)
	}
}

func (m *MainModel) beginFork() {
	if m.running {
		return
	}
	thread := m.session.Thread()
	if len(thread) == 0 {
		return
	}
	anchor := thread[len(thread)-1].ID
	if m.focus == focusChat && m.chatSel >= 0 && m.chatSel < len(thread) {
		anchor = thread[m.chatSel].ID
	}
	if m.session.BeginFork(anchor) {
		m.statusText = "Drafting a new branch (esc cancels)"
		m.focus = focusInput
		m.input.Focus()
		m.refreshChat(true)
	}
}

func (m *MainModel) jumpToChapter() tea.Cmd {
	chapters := m.session.ThreadChapters()
	if m.timeline.sel < 0 || m.timeline.sel >= len(chapters) {
		return nil
	}
	m.session.NavigateTo(chapters[m.timeline.sel].StartMessageID)
	m.refreshChat(true)
	return m.dispatchClassification()
}

func (m *MainModel) jumpToMapNode() tea.Cmd {
	groups := m.session.Layout()
	if m.mapView.sel < 0 || m.mapView.sel >= len(groups) {
		return nil
	}
	g := groups[m.mapView.sel]
	m.session.NavigateTo(g.MessageIDs[len(g.MessageIDs)-1])
	m.refreshChat(true)
	return m.dispatchClassification()
}

func (m *MainModel) nudgeSelected(k string, groups []*app.GroupedNode) {
	if m.mapView.sel < 0 || m.mapView.sel >= len(groups) {
		return
	}
	var dx, dy float64
	switch k {
	case "H":
		dx = -40
	case "L":
		dx = 40
	case "K":
		dy = -55
	case "J":
		dy = 55
	}
	m.session.NudgeGroup(groups[m.mapView.sel].ID, dx, dy)
}

func (m *MainModel) moveChatSel(k tea.KeyType) {
	thread := m.session.Thread()
	if len(thread) == 0 {
		return
	}
	if m.chatSel < 0 {
		m.chatSel = len(thread) - 1
	} else if k == tea.KeyUp && m.chatSel > 0 {
		m.chatSel--
	} else if k == tea.KeyDown && m.chatSel < len(thread)-1 {
		m.chatSel++
	}
	m.refreshChat(false)
}

func (m *MainModel) chatSize() (int, int) {
	w := m.width
	if m.width >= 100 {
		w = m.width - timelineWidth(m.width) - 2
	}
	h := m.height - 8
	if h < 5 {
		h = 5
	}
	return max(20, w-4), h
}

func timelineWidth(total int) int {
	w := total / 4
	if w < 24 {
		w = 24
	}
	if w > 40 {
		w = 40
	}
	return w
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
