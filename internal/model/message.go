package model

import (
	"time"
)

// Role represents the role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageType is the closed set of message kinds. Rendering and history
// shaping branch on this tag; there is no other discriminator.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
	MessageTypeError  MessageType = "error"
)

// Valid reports whether t is one of the declared message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem, MessageTypeError:
		return true
	}
	return false
}

// Message represents one turn in a conversation. For image messages Content
// holds the image URL; for file messages it holds the extracted file text.
type Message struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`

	// ParentMessageID points back at the message that caused this one.
	// Used only for grouping, never for traversal.
	ParentMessageID string `json:"parent_message_id,omitempty"`

	// ContextType tags the turn for continuation grouping ("chat" by default).
	ContextType string `json:"context_type,omitempty"`

	// Turn is the per-session monotonic counter assigned at request issue.
	Turn uint64 `json:"turn,omitempty"`

	// RevisedPrompt is set on image messages when the provider rewrote the prompt.
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// DefaultContextType tags ordinary chat turns.
const DefaultContextType = "chat"

// ChatRequest is the request to send a completion prompt.
type ChatRequest struct {
	Prompt   string         `json:"prompt"`
	Settings *SettingsPatch `json:"settings,omitempty"`
}

// ChatResponse is the completion response.
type ChatResponse struct {
	Content string   `json:"content"`
	Message *Message `json:"message,omitempty"`
}

// EditMessageRequest is the request to rewrite history from a message onward.
type EditMessageRequest struct {
	Prompt string `json:"prompt"`
}

// ImageRequest is the request to generate an image.
type ImageRequest struct {
	Prompt string `json:"prompt"`
}

// ImageResponse is the image generation response.
type ImageResponse struct {
	ImageURL      string `json:"imageUrl"`
	RevisedPrompt string `json:"revisedPrompt,omitempty"`
}

// AnalysisResponse is the document/image analysis response.
type AnalysisResponse struct {
	Analysis string `json:"analysis"`
}

// CredentialRequest is the request to store a provider credential.
type CredentialRequest struct {
	APIKey string `json:"api_key"`
}

// CredentialStatusResponse reports whether a provider credential is stored.
type CredentialStatusResponse struct {
	Configured bool `json:"configured"`
}

// TitleRequest is the request to generate a session title.
type TitleRequest struct {
	Content string `json:"content"`
}

// TitleResponse is the title generation response.
type TitleResponse struct {
	Title string `json:"title"`
}
