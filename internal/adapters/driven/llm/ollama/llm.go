// Package ollama runs the metadata oracle's chat calls on a local Ollama
// model.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/ollamaapi"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultLLMModel = "llama3.2"

	// DefaultLLMTimeout allows for a cold model load on the first call.
	DefaultLLMTimeout = 120 * time.Second

	// DefaultKeepAlive keeps the model resident between documents of a
	// bulk ingest.
	DefaultKeepAlive = "10m"
)

// ErrTruncated is returned when a JSON reply hit the token limit, so the
// object is incomplete.
var ErrTruncated = errors.New("reply truncated at token limit")

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	BaseURL   string
	Model     string
	Timeout   time.Duration
	KeepAlive string
}

// LLMService calls Ollama's /api/chat endpoint without streaming.
type LLMService struct {
	api       *ollamaapi.Client
	model     string
	keepAlive string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type modelOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []message     `json:"messages"`
	Stream    bool          `json:"stream"`
	Format    string        `json:"format,omitempty"`
	KeepAlive string        `json:"keep_alive,omitempty"`
	Options   *modelOptions `json:"options,omitempty"`
}

type chatResponse struct {
	Message    message `json:"message"`
	DoneReason string  `json:"done_reason"`
}

// NewLLMService creates an Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.KeepAlive == "" {
		cfg.KeepAlive = DefaultKeepAlive
	}
	return &LLMService{
		api:       ollamaapi.New(cfg.BaseURL, cfg.Timeout),
		model:     cfg.Model,
		keepAlive: cfg.KeepAlive,
	}
}

// Chat returns the assistant reply. In JSON mode the temperature defaults
// to zero so repeated extractions of one document agree.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := chatRequest{
		Model:     s.model,
		Messages:  make([]message, len(messages)),
		KeepAlive: s.keepAlive,
		Options:   requestOptions(opts),
	}
	for i, m := range messages {
		req.Messages[i] = message(m)
	}
	if opts.JSONMode {
		req.Format = "json"
	}

	var resp chatResponse
	if err := s.api.Post(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	if opts.JSONMode && resp.DoneReason == "length" {
		return "", fmt.Errorf("ollama: %s: %w (%d tokens)", s.model, ErrTruncated, opts.MaxTokens)
	}
	return resp.Message.Content, nil
}

func requestOptions(opts driven.ChatOptions) *modelOptions {
	o := &modelOptions{NumPredict: opts.MaxTokens}
	switch {
	case opts.Temperature > 0:
		t := opts.Temperature
		o.Temperature = &t
	case opts.JSONMode:
		zero := 0.0
		o.Temperature = &zero
	}
	if o.NumPredict == 0 && o.Temperature == nil {
		return nil
	}
	return o
}

func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks that the server is up and the model has been pulled.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.CheckModel(ctx, s.model)
}

func (s *LLMService) Close() error {
	return nil
}
