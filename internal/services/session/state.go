package session

import (
	"github.com/deepgram/catgpt/internal/domain/chat/models"
)

// State is an immutable snapshot of every session and the active one.
// Transitions return a new State and never modify the receiver or the
// message slices it shares with earlier snapshots.
type State struct {
	Sessions []models.Session
	ActiveID string
}

// NewSession appends an empty session with the given id and makes it active
func (s State) NewSession(id string) State {
	sessions := make([]models.Session, len(s.Sessions), len(s.Sessions)+1)
	copy(sessions, s.Sessions)
	sessions = append(sessions, models.Session{ID: id, Messages: []models.Message{}})
	return State{Sessions: sessions, ActiveID: id}
}

// Select makes id active. It reports false, and returns s, when id is unknown.
func (s State) Select(id string) (State, bool) {
	if s.index(id) < 0 {
		return s, false
	}
	return State{Sessions: s.Sessions, ActiveID: id}, true
}

// Append adds msg to the session id, which need not be active
func (s State) Append(id string, msg models.Message) (State, bool) {
	i := s.index(id)
	if i < 0 {
		return s, false
	}

	old := s.Sessions[i].Messages
	messages := make([]models.Message, len(old), len(old)+1)
	copy(messages, old)
	messages = append(messages, msg)

	sessions := make([]models.Session, len(s.Sessions))
	copy(sessions, s.Sessions)
	sessions[i] = models.Session{ID: id, Messages: messages}
	return State{Sessions: sessions, ActiveID: s.ActiveID}, true
}

// Get returns the session with the given id
func (s State) Get(id string) (models.Session, bool) {
	i := s.index(id)
	if i < 0 {
		return models.Session{}, false
	}
	return s.Sessions[i], true
}

// Active returns the active session, if any
func (s State) Active() (models.Session, bool) {
	if s.ActiveID == "" {
		return models.Session{}, false
	}
	return s.Get(s.ActiveID)
}

func (s State) index(id string) int {
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return i
		}
	}
	return -1
}
