package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// SessionService issues and resolves explicit caller sessions.
type SessionService interface {
	// Create issues a new session for ownerID. A zero ttl uses the default.
	Create(ctx context.Context, ownerID string, ttl time.Duration) (*domain.Session, error)

	// Resolve returns a live session, ErrNotFound or ErrSessionExpired.
	Resolve(ctx context.Context, id string) (*domain.Session, error)

	// Revoke ends a session.
	Revoke(ctx context.Context, id string) error
}
