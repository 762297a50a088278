// Package model defines data structures for the chat gateway.
package model

import (
	"time"
)

// Session represents one persisted conversation thread. It is the unit of
// persistence and the unit of deletion; messages are owned exclusively by
// their session.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultTitle is assigned to sessions until the title generator renames them.
const DefaultTitle = "New Chat"

// CreateSessionRequest is the request to create a new session.
type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

// UpdateSessionRequest is the request to rename a session.
type UpdateSessionRequest struct {
	Title string `json:"title"`
}

// ListSessionsResponse is the response for listing sessions.
type ListSessionsResponse struct {
	Sessions []Session `json:"sessions"`
	ActiveID string    `json:"active_id,omitempty"`
	Total    int       `json:"total"`
}

// ListMessagesResponse is the response for listing a session's messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}
