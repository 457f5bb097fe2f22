package app

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

type Category string

const (
	CategoryContext    Category = "context"
	CategoryBrainstorm Category = "brainstorm"
	CategoryDecision   Category = "decision"
	CategoryRefinement Category = "refinement"
	CategoryTangent    Category = "tangent"
)

// RootContent marks the sentinel root node. It is structural and never shown.
const RootContent = "__conversation_root__"

type Message struct {
	ID        string
	ParentID  string // empty only for the root sentinel
	Author    Author
	Content   string
	Timestamp int64
	Category  Category
	BranchID  string
}

func (m *Message) IsRoot() bool { return m.ParentID == "" }

// Store holds the message forest: a flat id-keyed collection rooted at a
// single sentinel. Messages are never deleted; only Content is mutated, and
// only while a response streams into it.
type Store struct {
	messages map[string]*Message
	rootID   string
	clock    int64
}

func NewStore() *Store {
	root := &Message{
		ID:        uuid.NewString(),
		Author:    AuthorAssistant,
		Content:   RootContent,
		Timestamp: 0,
	}
	return &Store{
		messages: map[string]*Message{root.ID: root},
		rootID:   root.ID,
	}
}

func (s *Store) RootID() string { return s.rootID }

func (s *Store) Len() int { return len(s.messages) }

func (s *Store) Get(id string) (*Message, bool) {
	m, ok := s.messages[id]
	return m, ok
}

// Append creates a new message under parentID with the next clock tick and
// inserts it. The clock only moves forward, so sibling order is stable.
func (s *Store) Append(parentID string, author Author, content string) (*Message, error) {
	s.clock++
	m := &Message{
		ID:        uuid.NewString(),
		ParentID:  parentID,
		Author:    author,
		Content:   content,
		Timestamp: s.clock,
	}
	if err := s.Add(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Add inserts a fully-formed message. The parent must already exist; a second
// root is rejected. Used by Append and by tests that handcraft timestamps.
func (s *Store) Add(m *Message) error {
	if m.ID == "" {
		return fmt.Errorf("message has no id")
	}
	if _, dup := s.messages[m.ID]; dup {
		return fmt.Errorf("duplicate message id %s", m.ID)
	}
	if m.ParentID == "" {
		return fmt.Errorf("only the sentinel root may have an empty parent")
	}
	if _, ok := s.messages[m.ParentID]; !ok {
		return fmt.Errorf("parent %s does not exist", m.ParentID)
	}
	if m.Timestamp > s.clock {
		s.clock = m.Timestamp
	}
	s.messages[m.ID] = m
	return nil
}

// Children returns the sibling group under parentID ordered by timestamp
// ascending. Timestamp ties fall back to id so the order is deterministic.
func (s *Store) Children(parentID string) []*Message {
	var out []*Message
	for _, m := range s.messages {
		if m.ParentID == parentID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ChildCount(parentID string) int {
	n := 0
	for _, m := range s.messages {
		if m.ParentID == parentID {
			n++
		}
	}
	return n
}

// Leaves returns every message with no children.
func (s *Store) Leaves() []*Message {
	hasChild := make(map[string]bool, len(s.messages))
	for _, m := range s.messages {
		if m.ParentID != "" {
			hasChild[m.ParentID] = true
		}
	}
	var out []*Message
	for _, m := range s.messages {
		if !hasChild[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// HasAncestor reports whether ancestorID appears on the parent chain of id
// (inclusive of id itself). The walk is bounded like thread resolution.
func (s *Store) HasAncestor(id, ancestorID string) bool {
	cur := id
	for hops := 0; hops <= maxThreadHops; hops++ {
		if cur == ancestorID {
			return true
		}
		m, ok := s.messages[cur]
		if !ok || m.ParentID == "" {
			return false
		}
		cur = m.ParentID
	}
	return false
}

// AppendContent mutates a streaming placeholder in place.
func (s *Store) AppendContent(id, chunk string) {
	if m, ok := s.messages[id]; ok {
		m.Content += chunk
	}
}

func (s *Store) SetContent(id, content string) {
	if m, ok := s.messages[id]; ok {
		m.Content = content
	}
}
