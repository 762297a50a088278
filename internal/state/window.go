package state

import (
	"github.com/clearway-ai/chat-gateway/internal/model"
)

// Window returns the most recent n messages in original order. When fewer
// than n exist, all of them are returned. n <= 0 falls back to the default
// context window size.
func Window(messages []model.Message, n int) []model.Message {
	if n <= 0 {
		n = model.DefaultContextWindow
	}
	if len(messages) <= n {
		return cloneMessages(messages)
	}
	return cloneMessages(messages[len(messages)-n:])
}

// WindowForEdit returns the context for a regenerated request after an edit:
// the messages strictly before the edited message's original position,
// bounded to the most recent n. The caller appends the replacement content as
// the final user turn. When editedID is not found, the full window over all
// messages is returned.
func WindowForEdit(messages []model.Message, editedID string, n int) []model.Message {
	for i := range messages {
		if messages[i].ID == editedID {
			return Window(messages[:i], n)
		}
	}
	return Window(messages, n)
}
