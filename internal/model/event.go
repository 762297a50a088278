package model

import (
	"time"
)

// EventType represents the type of session event broadcast to consumers.
type EventType string

const (
	EventTypeSessionCreated   EventType = "session_created"
	EventTypeSessionDeleted   EventType = "session_deleted"
	EventTypeSessionsCleared  EventType = "sessions_cleared"
	EventTypeMessageAppended  EventType = "message_appended"
	EventTypeHistoryRewritten EventType = "history_rewritten"
	EventTypeProviderError    EventType = "provider_error"
)

// SessionEvent represents a state change published to the event stream.
type SessionEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      EventType      `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
