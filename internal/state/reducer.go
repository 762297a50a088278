package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearway-ai/chat-gateway/internal/model"
)

// Apply computes the next state for an action. It never mutates prev; every
// returned state shares nothing mutable with its predecessor.
func Apply(prev State, action Action) State {
	switch a := action.(type) {
	case InitSessions:
		return applyInitSessions(prev, a)
	case CreateSession:
		return applyCreateSession(prev, a)
	case DeleteSession:
		return applyDeleteSession(prev, a)
	case SetActiveSession:
		next := prev
		next.ActiveSessionID = a.ID
		return next
	case AddMessage:
		return applyAddMessage(prev, a)
	case EditMessage:
		return applyEditMessage(prev, a)
	case UpdateSettings:
		next := prev
		next.Settings = a.Patch.Apply(prev.Settings)
		return next
	case UpdateSessionTitle:
		return applyUpdateTitle(prev, a)
	case DeleteAllSessions:
		next := prev
		next.Sessions = nil
		next.ActiveSessionID = ""
		return next
	default:
		return prev
	}
}

func applyInitSessions(prev State, a InitSessions) State {
	next := prev
	next.Sessions = cloneSessions(a.Sessions)
	next.ActiveSessionID = ""
	if len(next.Sessions) > 0 {
		next.ActiveSessionID = next.Sessions[0].ID
	}
	return next
}

func applyCreateSession(prev State, a CreateSession) State {
	sess := a.Session
	if sess.ID == "" {
		sess.ID = uuid.Must(uuid.NewV7()).String()
	}
	if sess.Title == "" {
		sess.Title = model.DefaultTitle
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}

	next := prev
	next.Sessions = append(cloneSessions(prev.Sessions), sess)
	next.ActiveSessionID = sess.ID
	return next
}

func applyDeleteSession(prev State, a DeleteSession) State {
	idx := -1
	for i := range prev.Sessions {
		if prev.Sessions[i].ID == a.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Deletion is idempotent.
		return prev
	}

	remaining := make([]model.Session, 0, len(prev.Sessions)-1)
	remaining = append(remaining, prev.Sessions[:idx]...)
	remaining = append(remaining, prev.Sessions[idx+1:]...)

	next := prev
	next.Sessions = remaining
	if prev.ActiveSessionID == a.ID {
		next.ActiveSessionID = ""
		if len(remaining) > 0 {
			next.ActiveSessionID = remaining[0].ID
		}
	}
	return next
}

func applyAddMessage(prev State, a AddMessage) State {
	idx := sessionIndex(prev, prev.ActiveSessionID)
	if idx < 0 {
		return prev
	}

	msg := a.Message
	if msg.ID == "" {
		msg.ID = uuid.Must(uuid.NewV7()).String()
	}
	if msg.ContextType == "" {
		msg.ContextType = model.DefaultContextType
	}
	if msg.Type == "" {
		msg.Type = model.MessageTypeText
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	sess := prev.Sessions[idx]
	sess.Messages = append(cloneMessages(sess.Messages), msg)

	next := prev
	next.Sessions = cloneSessions(prev.Sessions)
	next.Sessions[idx] = sess
	return next
}

func applyEditMessage(prev State, a EditMessage) State {
	idx := sessionIndex(prev, prev.ActiveSessionID)
	if idx < 0 {
		return prev
	}

	sess := prev.Sessions[idx]
	pos := -1
	for i := range sess.Messages {
		if sess.Messages[i].ID == a.MessageID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return prev
	}

	replacement := a.Replacement
	if replacement.ID == "" {
		replacement.ID = uuid.Must(uuid.NewV7()).String()
	}
	if replacement.ContextType == "" {
		replacement.ContextType = model.DefaultContextType
	}
	if replacement.Type == "" {
		replacement.Type = model.MessageTypeText
	}
	if replacement.Timestamp.IsZero() {
		replacement.Timestamp = time.Now()
	}

	// Everything from the edited message onward is stale context and is
	// discarded; the replacement takes the edited message's position.
	edited := make([]model.Message, 0, pos+1)
	edited = append(edited, sess.Messages[:pos]...)
	edited = append(edited, replacement)
	sess.Messages = edited

	next := prev
	next.Sessions = cloneSessions(prev.Sessions)
	next.Sessions[idx] = sess
	return next
}

func applyUpdateTitle(prev State, a UpdateSessionTitle) State {
	idx := sessionIndex(prev, a.SessionID)
	if idx < 0 {
		return prev
	}

	sess := prev.Sessions[idx]
	sess.Title = a.Title

	next := prev
	next.Sessions = cloneSessions(prev.Sessions)
	next.Sessions[idx] = sess
	return next
}

func sessionIndex(s State, id string) int {
	if id == "" {
		return -1
	}
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return i
		}
	}
	return -1
}
