package tui

import (
	"context"
	"io"
	"testing"

	"arbor/internal/app"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestModel(t *testing.T) *MainModel {
	t.Helper()
	logger := app.NewLogger(io.Discard)
	chain := app.NewFallbackChain(logger, app.OfflineProvider{})
	session := app.NewSession(chain, app.StaticClassifier{Result: "Cats"}, logger)
	return NewMainModel(session)
}

func TestSwipeDispatchesChapterEvaluation(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.session.Send("tell me about cats"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := m.session.StreamReply(context.Background(), nil); err != nil {
		t.Fatalf("StreamReply: %v", err)
	}

	cmd, handled := m.handleKey(tea.KeyMsg{Type: tea.KeyRight, Alt: true})
	if !handled {
		t.Fatalf("swipe key not handled")
	}
	if cmd == nil {
		t.Fatalf("swipe left the analyzed tail undispatched")
	}

	msg, ok := cmd().(classifiedMsg)
	if !ok {
		t.Fatalf("swipe command produced %T, want classifiedMsg", cmd())
	}
	m.session.ApplyClassification(msg.batch, msg.result)
	if len(m.session.Chapters) != 1 || m.session.Chapters[0].Title != "Cats" {
		t.Fatalf("chapters after fold-in = %+v, want one titled Cats", m.session.Chapters)
	}
}

func TestSwipeWithNothingPendingReturnsNoCommand(t *testing.T) {
	m := newTestModel(t)
	if cmd, _ := m.handleKey(tea.KeyMsg{Type: tea.KeyLeft, Alt: true}); cmd != nil {
		t.Fatalf("empty session swipe dispatched a command")
	}
}
