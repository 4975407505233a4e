package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateMessageText validates message text.
func ValidateMessageText(text string) error {
	if len(text) == 0 {
		return errors.New("text cannot be empty")
	}
	if len(text) > 100000 { // ~100KB limit
		return errors.New("text exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New("text must be valid UTF-8")
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

// ValidateFileName validates an attachment file name.
func ValidateFileName(name string) error {
	if len(name) == 0 {
		return errors.New("file name cannot be empty")
	}
	if len(name) > 256 {
		return errors.New("file name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("file name must be valid UTF-8")
	}
	return nil
}
