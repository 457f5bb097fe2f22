package app

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type scriptedProvider struct {
	name   string
	chunks []string
	err    error
	calls  int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) StreamCompletion(ctx context.Context, history []ChatTurn, onChunk func(string)) error {
	p.calls++
	for _, c := range p.chunks {
		onChunk(c)
	}
	return p.err
}

func newTestSession(provider CompletionProvider, classifier TopicClassifier) *Session {
	chain := NewFallbackChain(nil, provider, OfflineProvider{})
	return NewSession(chain, classifier, NewLogger(nil))
}

func TestSendAndStreamReply(t *testing.T) {
	p := &scriptedProvider{name: "scripted", chunks: []string{"Hello ", "there"}}
	s := newTestSession(p, StaticClassifier{})

	placeholder, err := s.Send("Hi")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !s.Streaming {
		t.Fatalf("Streaming flag not set after Send")
	}
	if err := s.StreamReply(context.Background(), nil); err != nil {
		t.Fatalf("StreamReply: %v", err)
	}
	if s.Streaming {
		t.Fatalf("Streaming flag still set after stream end")
	}
	got, _ := s.Store.Get(placeholder.ID)
	if got.Content != "Hello there" {
		t.Fatalf("placeholder content = %q, want %q", got.Content, "Hello there")
	}
	if s.LastProvider != "scripted" {
		t.Fatalf("LastProvider = %q, want scripted", s.LastProvider)
	}

	thread := s.Thread()
	if len(thread) != 2 {
		t.Fatalf("thread length = %d, want 2", len(thread))
	}
	if thread[0].Author != AuthorUser || thread[1].Author != AuthorAssistant {
		t.Fatalf("thread roles wrong: %+v", thread)
	}
}

func TestStreamReplyFallsBackToOffline(t *testing.T) {
	p := &scriptedProvider{name: "flaky", err: errors.New("boom")}
	s := newTestSession(p, StaticClassifier{})

	placeholder, _ := s.Send("Hi")
	if err := s.StreamReply(context.Background(), nil); err != nil {
		t.Fatalf("StreamReply with fallback: %v", err)
	}
	if s.Streaming {
		t.Fatalf("Streaming flag stuck after fallback")
	}
	if s.LastProvider != "offline" {
		t.Fatalf("LastProvider = %q, want offline", s.LastProvider)
	}
	got, _ := s.Store.Get(placeholder.ID)
	if got.Content == "" {
		t.Fatalf("offline fallback produced no content")
	}
}

func TestForkCreatesEagerChapterOnlyOnGenuineFork(t *testing.T) {
	p := &scriptedProvider{name: "scripted", chunks: []string{"ok"}}
	s := newTestSession(p, StaticClassifier{})

	// Linear continuation: no fork chapter.
	s.Send("Hi")
	s.StreamReply(context.Background(), nil)
	if len(s.Chapters) != 0 {
		t.Fatalf("linear send created %d chapters", len(s.Chapters))
	}

	thread := s.Thread()
	userMsg := thread[0]

	// Drafting under the first user message: it has a child (the reply), so
	// submitting is a genuine fork.
	if !s.BeginFork(userMsg.ID) {
		t.Fatalf("BeginFork refused")
	}
	if !s.Draft.IsPlaceholder(s.ActiveHeadID) {
		t.Fatalf("active head is not the draft placeholder")
	}
	s.Send("Actually, in French please")
	if len(s.Chapters) != 1 {
		t.Fatalf("fork created %d chapters, want 1 eager chapter", len(s.Chapters))
	}
	ch := s.Chapters[0]
	if ch.MessageCount != 0 {
		t.Fatalf("eager chapter MessageCount = %d, want 0", ch.MessageCount)
	}
	forkThread := s.Thread()
	if forkThread[1].ID != ch.StartMessageID {
		t.Fatalf("eager chapter start = %s, want the forked user message", ch.StartMessageID)
	}
	s.StreamReply(context.Background(), nil)

	// Sibling chrome on the forked message.
	if forkThread[1].SiblingCount != 2 {
		t.Fatalf("forked message SiblingCount = %d, want 2", forkThread[1].SiblingCount)
	}
}

func TestForkFromRootIsNotABranchForChapters(t *testing.T) {
	p := &scriptedProvider{name: "scripted", chunks: []string{"ok"}}
	s := newTestSession(p, StaticClassifier{})

	s.Send("Hi")
	s.StreamReply(context.Background(), nil)

	s.BeginFork(s.Store.RootID())
	s.Send("A fresh start")
	if len(s.Chapters) != 0 {
		t.Fatalf("root fork created %d eager chapters, want 0", len(s.Chapters))
	}
	s.StreamReply(context.Background(), nil)
}

func TestCancelDraftRestoresHead(t *testing.T) {
	p := &scriptedProvider{name: "scripted", chunks: []string{"ok"}}
	s := newTestSession(p, StaticClassifier{})
	s.Send("Hi")
	s.StreamReply(context.Background(), nil)
	head := s.ActiveHeadID

	thread := s.Thread()
	s.BeginFork(thread[0].ID)
	s.CancelDraft()
	if s.Draft != nil {
		t.Fatalf("draft still present after cancel")
	}
	if s.ActiveHeadID != head {
		t.Fatalf("head = %s after cancel, want %s", s.ActiveHeadID, head)
	}
}

func TestClassificationRoundTrip(t *testing.T) {
	p := &scriptedProvider{name: "scripted", chunks: []string{"Cats are great."}}
	s := newTestSession(p, StaticClassifier{Result: "Cat Facts"})

	s.Send("Tell me about cats")
	s.StreamReply(context.Background(), nil)

	batch := s.EvaluateChapters()
	if batch == nil {
		t.Fatalf("EvaluateChapters returned nil after a completed turn")
	}
	result := s.Classify(context.Background(), batch)
	s.ApplyClassification(batch, result)

	if len(s.Chapters) != 1 || s.Chapters[0].Title != "Cat Facts" {
		t.Fatalf("chapters = %+v, want one Cat Facts chapter", s.Chapters)
	}
	if s.Chapters[0].MessageCount != 2 {
		t.Fatalf("MessageCount = %d, want 2", s.Chapters[0].MessageCount)
	}

	// A second evaluate with nothing new stays quiet.
	if batch := s.EvaluateChapters(); batch != nil {
		t.Fatalf("EvaluateChapters re-dispatched the same tail: %+v", batch)
	}
}

func TestEvaluateSuppressedWhileStreamingOrDrafting(t *testing.T) {
	p := &scriptedProvider{name: "scripted", chunks: []string{"ok"}}
	s := newTestSession(p, StaticClassifier{})

	s.Send("Hi")
	if batch := s.EvaluateChapters(); batch != nil {
		t.Fatalf("EvaluateChapters dispatched mid-stream")
	}
	s.StreamReply(context.Background(), nil)

	thread := s.Thread()
	s.BeginFork(thread[0].ID)
	if batch := s.EvaluateChapters(); batch != nil {
		t.Fatalf("EvaluateChapters dispatched while drafting")
	}
	s.CancelDraft()
}

func TestStaleClassificationGuardedByMessageExistence(t *testing.T) {
	p := &scriptedProvider{name: "scripted", chunks: []string{"ok"}}
	s := newTestSession(p, StaticClassifier{})

	s.Send("Hi")
	s.StreamReply(context.Background(), nil)

	stale := &PendingBatch{FirstID: "gone", NewCount: 2, Turns: []ChatTurn{{Role: RoleUser, Content: "x"}}}
	s.ApplyClassification(stale, "Ghost Chapter")
	if len(s.Chapters) != 0 {
		t.Fatalf("stale batch with missing first message created chapters: %+v", s.Chapters)
	}
}

func TestSessionSwipeBetweenBranches(t *testing.T) {
	p := &scriptedProvider{name: "scripted", chunks: []string{"ok"}}
	s := newTestSession(p, StaticClassifier{})

	s.Send("Hi")
	s.StreamReply(context.Background(), nil)
	firstHead := s.ActiveHeadID

	thread := s.Thread()
	s.BeginFork(thread[0].ID)
	s.Send("In French please")
	s.StreamReply(context.Background(), nil)
	secondHead := s.ActiveHeadID

	if firstHead == secondHead {
		t.Fatalf("fork did not move the head")
	}

	// The head's parent (the forked user message) has a sibling group of 2;
	// swiping the user message level happens via the assistant head's parent.
	s.ActiveHeadID = secondHead
	thread = s.Thread()
	forked := thread[1]
	if forked.SiblingCount != 2 {
		t.Fatalf("SiblingCount = %d, want 2", forked.SiblingCount)
	}

	s.Swipe(SwipeNext)
	if s.ActiveHeadID == secondHead {
		t.Fatalf("swipe did not move the head")
	}
}

func TestThreadChaptersFiltersByAncestry(t *testing.T) {
	p := &scriptedProvider{name: "scripted", chunks: []string{"ok"}}
	s := newTestSession(p, StaticClassifier{})

	s.Send("Hi")
	s.StreamReply(context.Background(), nil)
	batch := s.EvaluateChapters()
	s.ApplyClassification(batch, "Greeting")

	thread := s.Thread()
	s.BeginFork(thread[0].ID)
	s.Send("branch text")
	s.StreamReply(context.Background(), nil)

	// Both the greeting chapter (on-thread prefix) and the eager fork
	// chapter belong to the active thread.
	got := s.ThreadChapters()
	if len(got) != 2 {
		t.Fatalf("ThreadChapters = %d entries, want 2", len(got))
	}
}

func TestOfflineProviderMentionsPrompt(t *testing.T) {
	var b strings.Builder
	err := OfflineProvider{}.StreamCompletion(context.Background(),
		[]ChatTurn{{Role: RoleUser, Content: "what is a monad"}},
		func(c string) { b.WriteString(c) })
	if err != nil {
		t.Fatalf("offline provider errored: %v", err)
	}
	if !strings.Contains(b.String(), "what is a monad") {
		t.Fatalf("offline reply does not echo the prompt: %q", b.String())
	}
}
