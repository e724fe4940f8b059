package store

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"docchunker/types"
)

type session struct {
	documentID string
	selected   map[int]struct{}
	messages   []types.ChatMessage
}

// SessionStore records, per viewing session, the displayed document, the
// selected chunk ids and the chat log. It is display state only.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

func (s *SessionStore) get(id string) *session {
	ss, ok := s.sessions[id]
	if !ok {
		ss = &session{selected: make(map[int]struct{})}
		s.sessions[id] = ss
	}
	return ss
}

// View switches the session to documentID. The selection is cleared when the
// document changes.
func (s *SessionStore) View(sessionID, documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss := s.get(sessionID)
	if ss.documentID != documentID {
		ss.documentID = documentID
		clear(ss.selected)
	}
}

// Select adds or removes ids from the selection of the viewed document.
func (s *SessionStore) Select(sessionID string, ids []int, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss := s.get(sessionID)
	if ss.documentID == "" {
		return fmt.Errorf("session %q: %w", sessionID, types.ErrNoDocumentView)
	}
	for _, id := range ids {
		if selected {
			ss.selected[id] = struct{}{}
		} else {
			delete(ss.selected, id)
		}
	}
	return nil
}

// SelectAll replaces the selection with ids when selected is true and clears
// it otherwise.
func (s *SessionStore) SelectAll(sessionID string, ids []int, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss := s.get(sessionID)
	if ss.documentID == "" {
		return fmt.Errorf("session %q: %w", sessionID, types.ErrNoDocumentView)
	}
	clear(ss.selected)
	if selected {
		for _, id := range ids {
			ss.selected[id] = struct{}{}
		}
	}
	return nil
}

// Selection returns the viewed document and its selected ids in ascending order.
func (s *SessionStore) Selection(sessionID string) (string, []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss, ok := s.sessions[sessionID]
	if !ok {
		return "", nil
	}
	return ss.documentID, sortedIDs(ss.selected)
}

func (s *SessionStore) Append(sessionID string, msg types.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now().UTC()
	}
	ss := s.get(sessionID)
	ss.messages = append(ss.messages, msg)
}

func (s *SessionStore) History(sessionID string) []types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss, ok := s.sessions[sessionID]
	if !ok {
		return []types.ChatMessage{}
	}
	return slices.Clone(ss.messages)
}

func (s *SessionStore) Snapshot(sessionID string) types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := types.Session{ID: sessionID, Selected: []int{}, Messages: []types.ChatMessage{}}
	if ss, ok := s.sessions[sessionID]; ok {
		snap.DocumentID = ss.documentID
		snap.Selected = sortedIDs(ss.selected)
		snap.Messages = append(snap.Messages, ss.messages...)
	}
	return snap
}

// Forget detaches every session viewing documentID and drops its selection.
func (s *SessionStore) Forget(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ss := range s.sessions {
		if ss.documentID == documentID {
			ss.documentID = ""
			clear(ss.selected)
		}
	}
}

func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
