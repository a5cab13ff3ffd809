package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

type createSessionRequest struct {
	OwnerID    string `json:"owner_id"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type sessionView struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: decoding session body: %w", domain.ErrInvalidInput, err))
		return
	}
	if req.TTLSeconds < 0 {
		writeError(w, fmt.Errorf("%w: ttl_seconds must not be negative", domain.ErrInvalidInput))
		return
	}

	session, err := s.ports.Sessions.Create(r.Context(), req.OwnerID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView{
		ID:        session.ID,
		OwnerID:   session.OwnerID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
}

func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	if err := s.ports.Sessions.Revoke(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
