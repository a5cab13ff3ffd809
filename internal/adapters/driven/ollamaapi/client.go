// Package ollamaapi is the small slice of the Ollama REST API that the
// embedding and LLM adapters share: JSON POSTs with error decoding and a
// check that a model has been pulled.
package ollamaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// DefaultBaseURL is where a local Ollama listens.
const DefaultBaseURL = "http://localhost:11434"

// ErrModelNotPulled is returned by CheckModel when the server is reachable
// but does not have the model.
var ErrModelNotPulled = errors.New("model not pulled")

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 4096

// Client talks to one Ollama server.
type Client struct {
	http    *http.Client
	baseURL string
}

// New returns a client for baseURL, or DefaultBaseURL when empty.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the server address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post sends in as JSON to path and decodes the reply into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("ollama: encode %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ollama: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// CheckModel confirms the server answers and has model available locally.
// It never runs inference.
func (c *Client) CheckModel(ctx context.Context, model string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: %w", err)
	}

	var tags tagsResponse
	if err := c.do(req, &tags); err != nil {
		return err
	}
	for _, m := range tags.Models {
		if SameModel(m.Name, model) {
			return nil
		}
	}
	return fmt.Errorf("ollama: %w: %s (run 'ollama pull %s')", ErrModelNotPulled, model, model)
}

// SameModel reports whether two model references name the same model.
// Ollama lists untagged models as "<name>:latest".
func SameModel(a, b string) bool {
	return withTag(a) == withTag(b)
}

func withTag(name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	return name + ":latest"
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: %s unreachable: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ollama: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// statusError turns a non-200 reply into an error. Ollama reports
// failures as {"error": "..."}.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return fmt.Errorf("ollama: %w: %s", domain.ErrRateLimited, msg)
	case http.StatusNotFound:
		return fmt.Errorf("ollama: %w: %s", ErrModelNotPulled, msg)
	default:
		return fmt.Errorf("ollama: status %d: %s", resp.StatusCode, msg)
	}
}
