package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// sessionStore implements driven.SessionStore.
type sessionStore struct {
	store *Store
}

var _ driven.SessionStore = (*sessionStore)(nil)

// Save stores or replaces a session.
func (s *sessionStore) Save(ctx context.Context, session domain.Session) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sessions (id, owner_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			expires_at = excluded.expires_at
	`, session.ID, session.OwnerID, session.CreatedAt.UnixNano(), session.ExpiresAt.UnixNano())
	if err != nil {
		return storeError("saving session", err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *sessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	var createdAt, expiresAt int64
	err := s.store.db.QueryRowContext(ctx, `
		SELECT id, owner_id, created_at, expires_at FROM sessions WHERE id = ?
	`, id).Scan(&session.ID, &session.OwnerID, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storeError("scanning session", err)
	}
	session.CreatedAt = time.Unix(0, createdAt).UTC()
	session.ExpiresAt = time.Unix(0, expiresAt).UTC()
	return &session, nil
}

// Delete removes a session.
func (s *sessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return storeError("deleting session", err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry is at or before now.
func (s *sessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UnixNano())
	if err != nil {
		return 0, storeError("deleting expired sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeError("counting expired sessions", err)
	}
	return int(n), nil
}
