package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

const headerOwnerID = "X-Owner-ID"

type ownerKey struct{}

// requireOwner resolves the caller's owner id and stores it in the request
// context. Sessions take precedence over the header.
func (s *Server) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := s.resolveOwner(r)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) resolveOwner(r *http.Request) (string, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return "", errUnauthenticated
		}
		session, err := s.ports.Sessions.Resolve(r.Context(), strings.TrimSpace(token))
		switch {
		case errors.Is(err, domain.ErrSessionExpired):
			return "", err
		case errors.Is(err, domain.ErrNotFound):
			logger.Debug("Unknown session token presented")
			return "", errUnauthenticated
		case err != nil:
			return "", err
		}
		return session.OwnerID, nil
	}

	if owner := strings.TrimSpace(r.Header.Get(headerOwnerID)); owner != "" {
		return owner, nil
	}
	return "", errUnauthenticated
}

// ownerFrom returns the owner stored by requireOwner.
func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}
