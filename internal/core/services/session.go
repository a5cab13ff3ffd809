package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// Ensure SessionService implements the interface.
var _ driving.SessionService = (*SessionService)(nil)

// SessionService issues explicit caller sessions. Sessions are only ever
// created by Create; resolving an unknown ID never creates one.
type SessionService struct {
	store      driven.SessionStore
	defaultTTL time.Duration
	now        func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(store driven.SessionStore, settings domain.SessionSettings) *SessionService {
	ttl := settings.TTL
	if ttl <= 0 {
		ttl = domain.DefaultAppSettings().Session.TTL
	}
	return &SessionService{
		store:      store,
		defaultTTL: ttl,
		now:        time.Now,
	}
}

// Create issues a session for ownerID. A non-positive ttl uses the default.
func (s *SessionService) Create(ctx context.Context, ownerID string, ttl time.Duration) (*domain.Session, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.now().UTC()
	session := domain.Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	logger.Debug("Created session for owner %s, expires %s", ownerID, session.ExpiresAt.Format(time.RFC3339))
	return &session, nil
}

// Resolve returns a live session. Expired sessions are removed and
// reported as ErrSessionExpired.
func (s *SessionService) Resolve(ctx context.Context, id string) (*domain.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrNotFound
	}

	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		if err := s.store.Delete(ctx, id); err != nil {
			logger.Debug("Failed to remove expired session: %v", err)
		}
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// Revoke ends a session. Revoking an unknown session is not an error.
func (s *SessionService) Revoke(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
