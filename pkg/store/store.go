package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/edulink/supportchat/pkg/model"
)

// ErrUnavailable wraps any failure of the persistence layer. Callers see
// either a fully persisted message or this error, never partial state.
var ErrUnavailable = errors.New("message store unavailable")

// ValidationError rejects a message before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Store is the durable record of every chat message. Create-only, plus a
// single read-state transition; messages are never edited or deleted.
type Store interface {
	// Create persists a new unread message and returns it with its
	// assigned id and timestamp.
	Create(ctx context.Context, sender, receiver, content string) (*model.Message, error)

	// Conversation returns every message exchanged between the two
	// participants, in either direction, oldest first.
	Conversation(ctx context.Context, a, b string) ([]model.Message, error)

	// Inbox returns every message addressed to recipient, newest first.
	Inbox(ctx context.Context, recipient string) ([]model.Message, error)

	// MarkRead transitions every unread message from counterpart to
	// recipient into the read state, stamping ReadAt. Idempotent:
	// re-invoking on an already-read set is a no-op.
	MarkRead(ctx context.Context, recipient, counterpart string) error
}

// ValidateNew checks the fields of a message to be created and returns
// the trimmed content. Shared by every Store implementation so they
// reject identically.
func ValidateNew(sender, receiver, content string) (string, error) {
	if sender == "" {
		return "", &ValidationError{Field: "sender", Reason: "required"}
	}
	if receiver == "" {
		return "", &ValidationError{Field: "receiver", Reason: "required"}
	}
	if sender == receiver {
		return "", &ValidationError{Field: "receiver", Reason: "self-addressed message"}
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", &ValidationError{Field: "content", Reason: "blank"}
	}
	if utf8.RuneCountInString(trimmed) > model.MaxContentLength {
		return "", &ValidationError{
			Field:  "content",
			Reason: fmt.Sprintf("exceeds %d characters", model.MaxContentLength),
		}
	}
	return trimmed, nil
}
