// Package persist provides durable storage for the conversation registry and
// the last-session pointer, behind interchangeable drivers.
package persist

import (
	"context"
	"errors"

	"github.com/chatframe/sessiond/internal/model"
)

// Common errors for persistence operations.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidDriver = errors.New("invalid storage driver")
)

// Store defines the interface for registry persistence.
//
// LoadSummaries never reports missing or corrupt data as an error: both
// recover to an empty list. Errors are reserved for transport failures
// (for example a Redis connection error).
type Store interface {
	// LoadSummaries reads the persisted conversation registry.
	LoadSummaries(ctx context.Context) ([]model.ConversationSummary, error)

	// SaveSummaries writes the full registry, replacing any prior value.
	SaveSummaries(ctx context.Context, summaries []model.ConversationSummary) error

	// LastSessionID returns the stored last-session id, or "" when unset.
	LastSessionID(ctx context.Context) (string, error)

	// SetLastSessionID records the last-session id.
	SetLastSessionID(ctx context.Context, id string) error

	// Close closes the store and releases any resources.
	Close() error
}
