package app

// Segmenter is the incremental chaptering state machine. Its single piece of
// state is cursor: how many committed messages of the active thread have
// already been folded into a chapter. The cursor advances eagerly when a
// batch is dispatched, so overlapping classifications never re-scan the same
// messages; their results are folded in against the live chapter list in
// whatever order they resolve (see PendingBatch).
type Segmenter struct {
	cursor   int
	minBatch int
	logger   *Logger
}

func NewSegmenter(logger *Logger) *Segmenter {
	return &Segmenter{minBatch: 1, logger: logger}
}

func (g *Segmenter) Cursor() int { return g.cursor }

// SetMinBatch sets how many new committed messages must accumulate past the
// cursor before Evaluate dispatches a batch. Values below one clamp to one.
func (g *Segmenter) SetMinBatch(n int) {
	if n < 1 {
		n = 1
	}
	g.minBatch = n
}

// PendingBatch captures everything a classification needs at dispatch time.
// The fold-in after the classifier resolves uses only this snapshot plus the
// live chapter list; it never re-reads what "changed" from current state.
type PendingBatch struct {
	FirstID       string
	Turns         []ChatTurn
	NewCount      int
	PreviousTitle string
}

// RelocateCursor repositions the cursor after the active head moved to a
// different thread. The last chapter that starts on the new thread anchors
// the new position; the cursor only ever moves forward from its current
// value unless it has run past the end of a shorter branch.
func (g *Segmenter) RelocateCursor(thread []ThreadMessage, chapters []Chapter) {
	threadLen := len(thread)
	pos := make(map[string]int, threadLen)
	for i, tm := range thread {
		pos[tm.ID] = i
	}

	found := false
	for i := len(chapters) - 1; i >= 0; i-- {
		p, onThread := pos[chapters[i].StartMessageID]
		if !onThread {
			continue
		}
		candidate := p + chapters[i].MessageCount
		if candidate > threadLen {
			candidate = threadLen
		}
		if candidate > g.cursor || g.cursor > threadLen {
			g.cursor = candidate
		}
		found = true
		break
	}
	if !found && threadLen < g.cursor {
		g.cursor = 0
	}
}

// Evaluate inspects the thread tail past the cursor and, if a batch is due,
// returns it with the cursor already advanced to the thread length. A nil
// return means nothing to classify. Callers must not invoke this while a
// response is still streaming; the thread must contain committed messages
// only.
func (g *Segmenter) Evaluate(thread []ThreadMessage, chapters []Chapter) *PendingBatch {
	threadLen := len(thread)
	if g.cursor > threadLen {
		g.cursor = threadLen
	}
	newCount := threadLen - g.cursor
	if newCount < g.minBatch || newCount == 0 {
		return nil
	}

	tail := thread[g.cursor:]
	batch := &PendingBatch{
		FirstID:  tail[0].ID,
		Turns:    TurnsFromThread(tail),
		NewCount: newCount,
	}
	if len(chapters) > 0 {
		batch.PreviousTitle = chapters[len(chapters)-1].Title
	}
	g.cursor = threadLen
	if g.logger != nil {
		g.logger.Info("chapter batch dispatched", map[string]any{"size": newCount, "cursor": g.cursor})
	}
	return batch
}

// Apply folds a classification result into the chapter list. thread is the
// live active thread at resolution time; batch is the snapshot captured at
// dispatch. Three paths, checked in order: patch the eagerly-created fork
// chapter whose start matches the batch head, extend the last chapter on the
// current thread when the topic held, otherwise create.
func (g *Segmenter) Apply(chapters []Chapter, thread []ThreadMessage, batch *PendingBatch, result string) []Chapter {
	if batch == nil || batch.FirstID == "" {
		return chapters
	}
	subtopics := ExtractSubtopics(batch.Turns)

	for i := range chapters {
		if chapters[i].StartMessageID != batch.FirstID {
			continue
		}
		if result != TopicSame {
			chapters[i].Title = result
			chapters[i].Category = InferCategory(result)
		}
		chapters[i].MessageCount += batch.NewCount
		chapters[i].Subtopics = mergeSubtopics(chapters[i].Subtopics, subtopics)
		return chapters
	}

	if result == TopicSame && len(chapters) > 0 {
		onThread := make(map[string]bool, len(thread))
		for _, tm := range thread {
			onThread[tm.ID] = true
		}
		for i := len(chapters) - 1; i >= 0; i-- {
			if !onThread[chapters[i].StartMessageID] {
				continue
			}
			chapters[i].MessageCount += batch.NewCount
			chapters[i].Subtopics = mergeSubtopics(chapters[i].Subtopics, subtopics)
			return chapters
		}
	}

	title := result
	if result == TopicSame && len(chapters) == 0 {
		// First exchange ever and the classifier saw nothing to name.
		title = "Greeting"
	}
	count := batch.NewCount
	if count == 0 {
		count = 1
	}
	return append(chapters, NewChapter(title, batch.FirstID, count, subtopics))
}
