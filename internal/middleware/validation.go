package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidatePrompt validates prompt content.
func ValidatePrompt(content string) error {
	if len(content) == 0 {
		return errors.New("prompt cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("prompt exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("prompt must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateMessageID validates a message ID.
func ValidateMessageID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid message ID format")
	}
	return nil
}

// ValidateTitle validates a session title.
func ValidateTitle(title string) error {
	if len(title) > 256 {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}
