package main

import (
	"context"
	"strings"
	"testing"

	"arbor/internal/app"
)

func TestNewSessionMockModeIsSelfContained(t *testing.T) {
	session, closeLog, err := newSession(app.DefaultConfig(), true)
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	defer closeLog()
	if session.Providers == nil || session.Classifier == nil {
		t.Fatalf("mock session missing collaborators")
	}
}

func TestNewSessionWiresChapterMinBatch(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.ChapterMinBatch = 3
	session, closeLog, err := newSession(cfg, true)
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	defer closeLog()

	if _, err := session.Send("hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := session.StreamReply(context.Background(), nil); err != nil {
		t.Fatalf("StreamReply: %v", err)
	}
	if batch := session.EvaluateChapters(); batch != nil {
		t.Fatalf("batch of %d dispatched with min batch 3 configured", batch.NewCount)
	}
}

func TestREPLSendsAndQuits(t *testing.T) {
	session, closeLog, err := newSession(app.DefaultConfig(), true)
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	defer closeLog()

	in := strings.NewReader("hello there\n:chapters\n:q\n")
	var out strings.Builder
	if err := runREPL(session, in, &out); err != nil {
		t.Fatalf("runREPL: %v", err)
	}
	if !strings.Contains(out.String(), "offline") {
		t.Fatalf("offline reply not printed:\n%s", out.String())
	}
	thread := session.Thread()
	if len(thread) != 2 {
		t.Fatalf("thread length = %d after one exchange, want 2", len(thread))
	}
}
