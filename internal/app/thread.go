package app

import "fmt"

// maxThreadHops bounds every parent walk. A well-formed forest is a few
// thousand nodes at most; exceeding the bound means a cycle or a dangling
// parent, which is reported rather than looped on.
const maxThreadHops = 5000

// StructuralError reports a corrupt parent chain detected during a walk.
type StructuralError struct {
	NodeID string
	Hops   int
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error walking ancestry of %s: bound of %d hops exceeded", e.NodeID, e.Hops)
}

// ThreadMessage is a message annotated with its position inside its sibling
// group. Sibling metadata is recomputed from the full store on every resolve;
// nothing here is cached.
type ThreadMessage struct {
	Message
	SiblingIndex  int // 1-based, as shown to the user
	SiblingCount  int
	PrevSiblingID string
	NextSiblingID string
}

// Draft is a branch-in-progress: the user forked at AnchorID but has not
// submitted content yet. It is synthesized into thread and sibling views at
// read time and never enters the store.
type Draft struct {
	ID       string
	AnchorID string
}

// IsPlaceholder reports whether id names the draft's virtual message.
func (d *Draft) IsPlaceholder(id string) bool {
	return d != nil && d.ID == id
}

// ResolveThread reconstructs the linear path from the root to headID, root
// sentinel excluded, each node annotated with sibling navigation metadata.
// If headID is the draft placeholder the path runs to the draft's anchor and
// the placeholder is appended as a virtual last sibling.
//
// On a corrupt chain the walk stops at the hop bound and the truncated path
// is returned together with a *StructuralError; callers log it and render
// what they got.
func ResolveThread(s *Store, headID string, draft *Draft) ([]ThreadMessage, error) {
	var ghost *ThreadMessage
	walkFrom := headID
	if draft.IsPlaceholder(headID) {
		walkFrom = draft.AnchorID
		real := s.Children(draft.AnchorID)
		ghost = &ThreadMessage{
			Message: Message{
				ID:       draft.ID,
				ParentID: draft.AnchorID,
				Author:   AuthorUser,
			},
			// The placeholder joins the real group as the always-last member.
			SiblingIndex: len(real) + 1,
			SiblingCount: len(real) + 1,
		}
		if len(real) > 0 {
			ghost.PrevSiblingID = real[len(real)-1].ID
		}
	}

	var chain []*Message
	var walkErr error
	cur := walkFrom
	for hops := 0; ; hops++ {
		if hops >= maxThreadHops {
			walkErr = &StructuralError{NodeID: headID, Hops: hops}
			break
		}
		m, ok := s.Get(cur)
		if !ok {
			walkErr = &StructuralError{NodeID: cur, Hops: hops}
			break
		}
		if m.IsRoot() {
			break
		}
		chain = append(chain, m)
		cur = m.ParentID
	}

	// Reverse into root-first order and annotate.
	out := make([]ThreadMessage, 0, len(chain)+1)
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, annotateSibling(s, chain[i], draft))
	}
	if ghost != nil {
		out = append(out, *ghost)
	}
	return out, walkErr
}

// annotateSibling recomputes the sibling group of m from the full store. The
// draft placeholder counts toward the visible group size at its anchor but is
// never handed out as a prev/next neighbor of a real sibling.
func annotateSibling(s *Store, m *Message, draft *Draft) ThreadMessage {
	group := s.Children(m.ParentID)
	tm := ThreadMessage{Message: *m}
	for i, sib := range group {
		if sib.ID != m.ID {
			continue
		}
		tm.SiblingIndex = i + 1
		tm.SiblingCount = len(group)
		if i > 0 {
			tm.PrevSiblingID = group[i-1].ID
		}
		if i < len(group)-1 {
			tm.NextSiblingID = group[i+1].ID
		}
		break
	}
	if draft != nil && draft.AnchorID == m.ParentID {
		tm.SiblingCount++
	}
	return tm
}
