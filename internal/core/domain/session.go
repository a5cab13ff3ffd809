package domain

import "time"

// Session is an explicit caller session. It is created by an explicit
// request and never lazily on first use.
type Session struct {
	// ID is the opaque session token.
	ID string

	// OwnerID is the user the session acts for.
	OwnerID string

	// CreatedAt is when the session was issued.
	CreatedAt time.Time

	// ExpiresAt is when the session stops being accepted.
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
