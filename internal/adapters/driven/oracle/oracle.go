// Package oracle implements the metadata oracle on top of an LLM service.
//
// Replies must match a strict envelope, {"category": "...", "facts": {...}},
// with fact keys drawn from the category schema. Anything else is rejected
// with ErrMalformedOracleResponse and the raw payload is logged; no attempt
// is made to repair it.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// Ensure Oracle implements the interface.
var _ driven.MetadataOracle = (*Oracle)(nil)

// DefaultMaxTokens bounds the reply size.
const DefaultMaxTokens = 512

// DefaultInstruction is the system instruction used when no prompt store
// is configured or it has no usable override. It takes the category and
// the comma-separated fact keys.
const DefaultInstruction = `You extract facts about a college-admissions document.
The document category is %s.

Reply with one JSON object of the form {"category": "<category>", "facts": {...}}.
Use only these fact keys: %s.
Numbers must be JSON numbers without units or separators.
Omit any key the text gives no evidence for. Never guess.`

// maxLoggedPayload caps how much of a rejected reply is logged.
const maxLoggedPayload = 2000

// Oracle extracts category facts by asking an LLM for a JSON reply.
type Oracle struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// New creates an oracle. llm may be nil, in which case Extract reports
// ErrLLMUnavailable. prompts is optional.
func New(llm driven.LLMService, prompts driven.PromptStore) *Oracle {
	return &Oracle{llm: llm, prompts: prompts}
}

// envelope is the only reply shape accepted from the LLM.
type envelope struct {
	Category string                     `json:"category"`
	Facts    map[string]json.RawMessage `json:"facts"`
}

// Extract returns the facts the LLM found for the category schema.
func (o *Oracle) Extract(ctx context.Context, text string, category domain.Category) (map[string]any, error) {
	if o.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	schema, ok := domain.MetadataSchema(category)
	if !ok {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, category)
	}

	messages := []driven.ChatMessage{
		{Role: "system", Content: o.instruction(category, schema)},
		{Role: "user", Content: text},
	}
	reply, err := o.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens: DefaultMaxTokens,
		JSONMode:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("metadata oracle (%s): %w", o.llm.ModelName(), err)
	}

	facts, err := Parse(reply, category)
	if err != nil {
		logger.Warn("Rejected oracle reply for %s: %v; payload: %s", category, err, truncate(reply, maxLoggedPayload))
		return nil, err
	}
	logger.Debug("Oracle returned %d facts for %s", len(facts), category)
	return facts, nil
}

// Parse validates a raw reply against the category schema. Null and
// blank values are dropped. Strings are returned as string and numbers
// as float64.
func Parse(raw string, category domain.Category) (map[string]any, error) {
	schema, ok := domain.MetadataSchema(category)
	if !ok {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, category)
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedOracleResponse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", domain.ErrMalformedOracleResponse)
	}
	if env.Category != string(category) {
		return nil, fmt.Errorf("%w: category %q, expected %q",
			domain.ErrMalformedOracleResponse, env.Category, category)
	}
	if env.Facts == nil {
		return nil, fmt.Errorf("%w: missing facts object", domain.ErrMalformedOracleResponse)
	}

	facts := make(map[string]any, len(env.Facts))
	for key, value := range env.Facts {
		kind, known := schema[key]
		if !known {
			return nil, fmt.Errorf("%w: unknown key %q for %s", domain.ErrMalformedOracleResponse, key, category)
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			continue
		}

		switch kind {
		case domain.FieldNumber:
			var n float64
			if err := json.Unmarshal(value, &n); err != nil {
				return nil, fmt.Errorf("%w: %q must be a number", domain.ErrMalformedOracleResponse, key)
			}
			facts[key] = n
		default:
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fmt.Errorf("%w: %q must be a string", domain.ErrMalformedOracleResponse, key)
			}
			if s = strings.TrimSpace(s); s != "" {
				facts[key] = s
			}
		}
	}
	return facts, nil
}

func (o *Oracle) instruction(category domain.Category, schema map[string]domain.FieldKind) string {
	template := DefaultInstruction
	if o.prompts != nil {
		if p, err := o.prompts.Load(driven.PromptMetadataExtraction); err == nil {
			template = p
		} else {
			logger.Debug("Using built-in oracle prompt: %v", err)
		}
	}

	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf(template, category, strings.Join(keys, ", "))
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
