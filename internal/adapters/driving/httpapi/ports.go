package httpapi

import (
	"errors"

	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
)

// ErrMissingPort is returned when a required service is not provided.
var ErrMissingPort = errors.New("httpapi: ingest, retrieval, documents and sessions services are required")

// Ports aggregates the driving services served over HTTP.
type Ports struct {
	Ingest    driving.IngestService
	Retrieval driving.RetrievalService
	Documents driving.DocumentService
	Sessions  driving.SessionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Ingest == nil || p.Retrieval == nil || p.Documents == nil || p.Sessions == nil {
		return ErrMissingPort
	}
	return nil
}
