// Package state implements the session/message state model as a pure
// reducer: Apply maps (state, action) to a new state with no side effects.
// Persistence mirroring and event publishing are the caller's job, which
// keeps the transition logic testable in isolation.
package state

import (
	"github.com/clearway-ai/chat-gateway/internal/model"
)

// State is the full conversation state. ActiveSessionID is an explicit field
// here rather than ambient selection state; it references an existing session
// or is empty.
type State struct {
	Sessions        []model.Session
	ActiveSessionID string
	Settings        model.Settings
}

// NewState returns the state a fresh store starts with.
func NewState() State {
	return State{
		Settings: model.DefaultSettings(),
	}
}

// ActiveSession returns the active session, or nil if there is none.
func (s State) ActiveSession() *model.Session {
	return s.Session(s.ActiveSessionID)
}

// Session returns the session with the given id, or nil.
func (s State) Session(id string) *model.Session {
	if id == "" {
		return nil
	}
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return &s.Sessions[i]
		}
	}
	return nil
}

// cloneSessions copies the session slice so transitions never mutate the
// previous state's backing array.
func cloneSessions(sessions []model.Session) []model.Session {
	out := make([]model.Session, len(sessions))
	copy(out, sessions)
	return out
}

// cloneMessages copies a message slice for the same reason.
func cloneMessages(messages []model.Message) []model.Message {
	out := make([]model.Message, len(messages))
	copy(out, messages)
	return out
}
