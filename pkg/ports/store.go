package ports

import (
	"context"

	"github.com/aretw0/waypoint/pkg/domain"
)

// SessionStore defines the interface for persisting session contexts.
// Implementations must return copies: callers may mutate what Load returns
// without affecting the stored session until they Save it again.
type SessionStore interface {
	// Save persists the context for a given session ID, replacing any previous value.
	Save(ctx context.Context, sessionID string, session *domain.SessionContext) error

	// Load retrieves the context for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.SessionContext, error)

	// Delete removes the context for a given session ID.
	// Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
