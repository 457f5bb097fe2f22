package app

type SwipeDirection int

const (
	SwipePrev SwipeDirection = iota
	SwipeNext
)

// SwipeSibling moves the active head sideways: it resolves currentID's
// sibling group, steps prev/next with wraparound, then descends from the
// chosen sibling to its most recent leaf. When currentID is the draft
// placeholder the group is the anchor's real children plus the placeholder
// itself; landing on any real sibling cancels the draft.
//
// Returns the new head id and whether the draft was consumed by the swipe.
func SwipeSibling(s *Store, currentID string, dir SwipeDirection, draft *Draft) (newHeadID string, draftCancelled bool) {
	if draft.IsPlaceholder(currentID) {
		real := s.Children(draft.AnchorID)
		if len(real) == 0 {
			return currentID, false
		}
		// Placeholder occupies the last slot of a group of len(real)+1.
		idx := wrapIndex(len(real), len(real)+1, dir)
		if idx == len(real) {
			return currentID, false
		}
		return descendToLatestLeaf(s, real[idx].ID), true
	}

	cur, ok := s.Get(currentID)
	if !ok || cur.IsRoot() {
		return currentID, false
	}
	group := s.Children(cur.ParentID)
	pos := -1
	for i, sib := range group {
		if sib.ID == currentID {
			pos = i
			break
		}
	}
	if pos < 0 || len(group) < 2 {
		return currentID, false
	}
	idx := wrapIndex(pos, len(group), dir)
	return descendToLatestLeaf(s, group[idx].ID), false
}

func wrapIndex(pos, size int, dir SwipeDirection) int {
	if dir == SwipeNext {
		return (pos + 1) % size
	}
	return (pos - 1 + size) % size
}

// descendToLatestLeaf follows, at each level, the child with the greatest
// timestamp until a leaf is reached.
func descendToLatestLeaf(s *Store, id string) string {
	cur := id
	for hops := 0; hops < maxThreadHops; hops++ {
		children := s.Children(cur)
		if len(children) == 0 {
			return cur
		}
		cur = children[len(children)-1].ID
	}
	return cur
}

// ResolveToLeaf maps an arbitrary target node to the best head for it: the
// most recent leaf whose ancestry passes through targetID. Targets with no
// descendant leaves resolve to themselves; the root resolves through its
// first child.
func ResolveToLeaf(s *Store, targetID string) string {
	target, ok := s.Get(targetID)
	if !ok {
		return targetID
	}
	if target.IsRoot() {
		children := s.Children(targetID)
		if len(children) == 0 {
			return targetID
		}
		return ResolveToLeaf(s, children[0].ID)
	}

	var best *Message
	for _, leaf := range s.Leaves() {
		if leaf.ID == targetID {
			continue
		}
		if !s.HasAncestor(leaf.ID, targetID) {
			continue
		}
		if best == nil || leaf.Timestamp > best.Timestamp {
			best = leaf
		}
	}
	if best == nil {
		return targetID
	}
	return best.ID
}
