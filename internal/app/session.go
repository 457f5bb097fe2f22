package app

import (
	"context"

	"github.com/google/uuid"
)

// Session is one in-memory conversation: the message forest, the active
// branch pointer, the draft (if any), the chapter list, and its segmenter
// cursor. All mutation happens on discrete events processed to completion;
// there is no parallelism inside a session.
type Session struct {
	ID           string
	Store        *Store
	Chapters     []Chapter
	ActiveHeadID string
	Draft        *Draft

	Segmenter  *Segmenter
	Providers  *FallbackChain
	Classifier TopicClassifier
	Logger     *Logger

	// Streaming is the single in-flight flag; StreamReply guarantees it
	// resets on every path.
	Streaming    bool
	LastProvider string

	ChaptersEnabled bool

	// Overrides holds user-dragged map positions, merged over computed
	// layout by group id.
	Overrides map[string]Position

	streamTarget string
	prevHeadID   string
}

func NewSession(providers *FallbackChain, classifier TopicClassifier, logger *Logger) *Session {
	store := NewStore()
	return &Session{
		ID:              uuid.NewString(),
		Store:           store,
		ActiveHeadID:    store.RootID(),
		Segmenter:       NewSegmenter(logger),
		Providers:       providers,
		Classifier:      classifier,
		Logger:          logger,
		ChaptersEnabled: true,
		Overrides:       make(map[string]Position),
	}
}

// Thread resolves the currently displayed path, draft ghost included.
// Structural corruption is logged and the truncated path rendered anyway.
func (s *Session) Thread() []ThreadMessage {
	thread, err := ResolveThread(s.Store, s.ActiveHeadID, s.Draft)
	if err != nil {
		s.Logger.Error("thread walk truncated", map[string]any{"error": err.Error()})
	}
	return thread
}

// committedThread is the thread with no draft ghost: the messages the
// segmenter is allowed to count.
func (s *Session) committedThread() []ThreadMessage {
	head := s.ActiveHeadID
	if s.Draft.IsPlaceholder(head) {
		head = s.Draft.AnchorID
	}
	thread, err := ResolveThread(s.Store, head, nil)
	if err != nil {
		s.Logger.Error("thread walk truncated", map[string]any{"error": err.Error()})
	}
	return thread
}

// BeginFork starts drafting a new branch under fromID. Nothing enters the
// store until Send; the ghost exists only in resolved views.
func (s *Session) BeginFork(fromID string) bool {
	if _, ok := s.Store.Get(fromID); !ok {
		return false
	}
	if s.Streaming {
		return false
	}
	s.prevHeadID = s.ActiveHeadID
	s.Draft = &Draft{ID: "draft-" + uuid.NewString(), AnchorID: fromID}
	s.ActiveHeadID = s.Draft.ID
	return true
}

func (s *Session) CancelDraft() {
	if s.Draft == nil {
		return
	}
	anchor := s.Draft.AnchorID
	s.Draft = nil
	if s.prevHeadID != "" {
		s.ActiveHeadID = s.prevHeadID
	} else {
		s.ActiveHeadID = ResolveToLeaf(s.Store, anchor)
	}
	s.prevHeadID = ""
}

// Send commits the user's text — as the draft branch if one is open,
// otherwise as a linear continuation of the head — then creates the empty
// assistant placeholder the reply will stream into. A genuine fork (the
// parent already had children and is not the root) eagerly creates an empty
// chapter for the segmenter to enrich once the exchange classifies.
func (s *Session) Send(content string) (*Message, error) {
	parentID := s.ActiveHeadID
	if s.Draft != nil {
		parentID = s.Draft.AnchorID
	}

	genuineFork := s.Draft != nil &&
		parentID != s.Store.RootID() &&
		s.Store.ChildCount(parentID) > 0

	userMsg, err := s.Store.Append(parentID, AuthorUser, content)
	if err != nil {
		return nil, err
	}
	s.Draft = nil
	s.prevHeadID = ""

	if genuineFork && s.ChaptersEnabled {
		ch := NewChapter("New branch", userMsg.ID, 0, nil)
		s.Chapters = append(s.Chapters, ch)
		s.Logger.Info("fork chapter created", map[string]any{"chapter": ch.ID, "start": userMsg.ID})
	}

	placeholder, err := s.Store.Append(userMsg.ID, AuthorAssistant, "")
	if err != nil {
		return nil, err
	}
	s.ActiveHeadID = placeholder.ID
	s.streamTarget = placeholder.ID
	s.Streaming = true
	return placeholder, nil
}

// PendingHistory is the conversation to hand the completion provider: the
// committed thread with the still-empty placeholder trimmed off.
func (s *Session) PendingHistory() []ChatTurn {
	return TurnsFromThread(trimTrailingEmpty(s.committedThread()))
}

// ApplyChunk appends streamed text to the pending placeholder. Chunks must
// arrive in order; each is a plain append.
func (s *Session) ApplyChunk(chunk string) {
	if s.Streaming && s.streamTarget != "" {
		s.Store.AppendContent(s.streamTarget, chunk)
	}
}

// FinishStream resolves the in-flight stream. It runs on every outcome so
// the streaming flag can never stay stuck.
func (s *Session) FinishStream(served string, err error) {
	target := s.streamTarget
	s.Streaming = false
	s.streamTarget = ""
	if served != "" {
		s.LastProvider = served
	}
	if err != nil {
		s.Logger.Error("completion failed", map[string]any{"error": err.Error()})
		if m, ok := s.Store.Get(target); ok && m.Content == "" {
			s.Store.SetContent(target, "(no response)")
		}
	}
}

// StreamReply drives the provider chain for the pending placeholder
// synchronously: chunks are appended in arrival order and onChunk (optional)
// lets the caller repaint per chunk. The TUI uses the ApplyChunk/
// FinishStream pieces directly instead so all mutation stays on its event
// loop.
func (s *Session) StreamReply(ctx context.Context, onChunk func(string)) error {
	if !s.Streaming || s.streamTarget == "" {
		return nil
	}
	served, err := s.Providers.Stream(ctx, s.PendingHistory(), func(chunk string) {
		s.ApplyChunk(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	})
	s.FinishStream(served, err)
	return err
}

func trimTrailingEmpty(thread []ThreadMessage) []ThreadMessage {
	for len(thread) > 0 && thread[len(thread)-1].Content == "" {
		thread = thread[:len(thread)-1]
	}
	return thread
}

// EvaluateChapters forms the next classification batch, if one is due. The
// segmenter cursor advances eagerly here; the returned batch must eventually
// be passed to ApplyClassification with whatever the classifier said.
func (s *Session) EvaluateChapters() *PendingBatch {
	if !s.ChaptersEnabled || s.Streaming || s.Draft != nil {
		return nil
	}
	return s.Segmenter.Evaluate(s.committedThread(), s.Chapters)
}

// Classify resolves a batch against the topic classifier. Failures degrade
// to "same topic" so chapter state never corrupts on a flaky collaborator.
func (s *Session) Classify(ctx context.Context, batch *PendingBatch) string {
	if batch == nil || s.Classifier == nil {
		return TopicSame
	}
	result, err := s.Classifier.Classify(ctx, batch.PreviousTitle, batch.Turns)
	if err != nil {
		s.Logger.Warn("classifier error, keeping topic", map[string]any{"error": err.Error()})
		return TopicSame
	}
	return result
}

// ApplyClassification folds a resolved batch into the chapter list. The
// batch may be stale relative to navigation that happened while the
// classifier ran; it is applied against the live chapter list and guarded on
// its first message still existing.
func (s *Session) ApplyClassification(batch *PendingBatch, result string) {
	if batch == nil {
		return
	}
	if _, ok := s.Store.Get(batch.FirstID); !ok {
		return
	}
	s.Chapters = s.Segmenter.Apply(s.Chapters, s.committedThread(), batch, result)
}

// Swipe moves sideways at the nearest branch point on the active thread:
// the draft ghost if one is open, otherwise the deepest thread node whose
// sibling group has more than one member.
func (s *Session) Swipe(dir SwipeDirection) {
	target := s.swipeTarget()
	if target == "" {
		return
	}
	s.SwipeAt(target, dir)
}

func (s *Session) swipeTarget() string {
	if s.Draft != nil {
		return s.Draft.ID
	}
	cur := s.ActiveHeadID
	for hops := 0; hops < maxThreadHops; hops++ {
		m, ok := s.Store.Get(cur)
		if !ok || m.IsRoot() {
			return ""
		}
		if s.Store.ChildCount(m.ParentID) > 1 {
			return cur
		}
		cur = m.ParentID
	}
	return ""
}

// SwipeAt swipes the sibling group of a specific message, descending to the
// chosen branch's latest leaf. Swiping off the draft ghost cancels the
// draft.
func (s *Session) SwipeAt(id string, dir SwipeDirection) {
	newHead, draftCancelled := SwipeSibling(s.Store, id, dir, s.Draft)
	if draftCancelled {
		s.Draft = nil
		s.prevHeadID = ""
	}
	if newHead == s.ActiveHeadID {
		return
	}
	s.ActiveHeadID = newHead
	s.Segmenter.RelocateCursor(s.committedThread(), s.Chapters)
}

// NavigateTo jumps to an arbitrary node (timeline or map click), resolving
// it to the deepest most-recent leaf of its subtree.
func (s *Session) NavigateTo(targetID string) {
	if s.Draft != nil {
		s.CancelDraft()
	}
	newHead := ResolveToLeaf(s.Store, targetID)
	if newHead == s.ActiveHeadID {
		return
	}
	s.ActiveHeadID = newHead
	s.Segmenter.RelocateCursor(s.committedThread(), s.Chapters)
}

// Layout recomputes the grouped-node view of the whole forest with the
// user's position overrides merged on top.
func (s *Session) Layout() []*GroupedNode {
	groups := GroupMessages(s.Store, s.Chapters)
	CalculateGroupLayout(groups, s.Overrides)
	return groups
}

// NudgeGroup records a user-dragged position override for a group.
func (s *Session) NudgeGroup(groupID string, dx, dy float64) {
	groups := s.Layout()
	for _, g := range groups {
		if g.ID == groupID {
			s.Overrides[groupID] = Position{X: g.X + dx, Y: g.Y + dy}
			return
		}
	}
}

// ThreadChapters filters the chapter list to those belonging to the active
// thread: chapters whose start message is on the thread itself, or on the
// ancestor chain of an offshoot reachable from it.
func (s *Session) ThreadChapters() []Chapter {
	thread := s.committedThread()
	if len(thread) == 0 {
		return nil
	}
	onThread := make(map[string]bool, len(thread))
	for _, tm := range thread {
		onThread[tm.ID] = true
	}
	var out []Chapter
	for _, ch := range s.Chapters {
		if onThread[ch.StartMessageID] || s.offshootOfThread(ch.StartMessageID, onThread) {
			out = append(out, ch)
		}
	}
	return out
}

// offshootOfThread reports whether walking up from id reaches a thread
// member before the root.
func (s *Session) offshootOfThread(id string, onThread map[string]bool) bool {
	cur := id
	for hops := 0; hops < maxThreadHops; hops++ {
		m, ok := s.Store.Get(cur)
		if !ok || m.IsRoot() {
			return false
		}
		if onThread[m.ParentID] {
			return true
		}
		cur = m.ParentID
	}
	return false
}
