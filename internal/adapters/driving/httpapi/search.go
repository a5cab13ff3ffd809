package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// searchRequest is the POST body of /v1/search. GET uses the same names
// as query parameters.
type searchRequest struct {
	Query    string `json:"q"`
	Strategy string `json:"strategy"`
	Size     int    `json:"size"`
	Category string `json:"category"`
}

type searchResultView struct {
	DocumentID   string   `json:"document_id"`
	OwnerID      string   `json:"owner_id"`
	Filename     string   `json:"filename"`
	Category     string   `json:"category,omitempty"`
	ChunkIndex   int      `json:"chunk_index"`
	Content      string   `json:"content"`
	Score        float64  `json:"score"`
	KeywordScore float64  `json:"keyword_score,omitempty"`
	VectorScore  float64  `json:"vector_score,omitempty"`
	Highlights   []string `json:"highlights,omitempty"`
}

type searchResponse struct {
	Strategy       string             `json:"strategy"`
	Results        []searchResultView `json:"results"`
	Count          int                `json:"count"`
	Degraded       bool               `json:"degraded"`
	DegradedReason string             `json:"degraded_reason,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	strategy := domain.Strategy(req.Strategy)
	if strategy == "" {
		strategy = domain.StrategyHybrid
	}
	query := domain.Query{
		Text:     req.Query,
		Strategy: strategy,
		Owner:    domain.OwnerFilter{OwnerID: ownerFrom(r.Context()), IncludeShared: true},
		Size:     req.Size,
		Filters:  domain.SearchFilters{Category: domain.Category(req.Category)},
	}
	if err := query.Validate(); err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.ports.Retrieval.Search(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	out := searchResponse{
		Strategy:       string(resp.Strategy),
		Results:        make([]searchResultView, len(resp.Results)),
		Count:          len(resp.Results),
		Degraded:       resp.Degraded,
		DegradedReason: resp.DegradedReason,
	}
	for i := range resp.Results {
		res := &resp.Results[i]
		out.Results[i] = searchResultView{
			DocumentID:   res.DocumentID,
			OwnerID:      res.OwnerID,
			Filename:     res.Filename,
			Category:     string(res.Category),
			ChunkIndex:   res.ChunkIndex,
			Content:      res.ChunkContent,
			Score:        res.Score,
			KeywordScore: res.KeywordScore,
			VectorScore:  res.VectorScore,
			Highlights:   res.Highlights,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func parseSearchRequest(r *http.Request) (searchRequest, error) {
	var req searchRequest
	if r.Method == http.MethodPost {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("%w: decoding search body: %w", domain.ErrInvalidInput, err)
		}
		return req, nil
	}

	q := r.URL.Query()
	req.Query = q.Get("q")
	req.Strategy = q.Get("strategy")
	req.Category = q.Get("category")
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: size must be an integer", domain.ErrInvalidInput)
		}
		req.Size = n
	}
	return req, nil
}
