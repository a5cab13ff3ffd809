// Package chunker splits extracted text into bounded, semantically
// coherent segments.
//
// Segments follow paragraph boundaries where possible. Paragraphs larger
// than the limit are split on sentence boundaries, and a single sentence
// larger than the limit is truncated. Truncation is the only lossy path:
// the dropped tail is not indexed and the chunk is marked Truncated.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultMaxChars is the default maximum segment size in characters.
const DefaultMaxChars = 8000

const (
	paragraphSeparator = "\n\n"
	sentenceSeparator  = " "
)

var paragraphBreak = regexp.MustCompile(`\n[ \t\f\v\r]*\n`)

// Processor splits text into segments of at most maxChars runes.
type Processor struct {
	maxChars int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChars sets the maximum segment size in characters.
func WithMaxChars(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.maxChars = size
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxChars: DefaultMaxChars,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxChars returns the maximum segment size.
func (p *Processor) MaxChars() int {
	return p.maxChars
}

// Chunk splits text into ordered segments with contiguous indices.
// Adjacent paragraphs are packed into one segment while they fit.
func (p *Processor) Chunk(text string) ([]domain.Chunk, error) {
	if len(text) == 0 {
		return nil, domain.ErrEmptyInput
	}

	b := &builder{limit: p.maxChars}
	for _, para := range splitParagraphs(text) {
		if runeLen(para) <= p.maxChars {
			b.add(para, paragraphSeparator)
			continue
		}

		// Oversized paragraph: start fresh and pack its sentences.
		b.flush()
		for _, sentence := range splitSentences(para) {
			if runeLen(sentence) <= p.maxChars {
				b.add(sentence, sentenceSeparator)
				continue
			}
			b.flush()
			cut := truncate(sentence, p.maxChars)
			logger.Warn("chunker: truncated %d-character sentence to %d characters",
				runeLen(sentence), p.maxChars)
			b.emit(cut, true)
		}
	}
	b.flush()

	// Whitespace-only input has no paragraphs but is still non-empty.
	if len(b.chunks) == 0 {
		b.emit(truncate(text, p.maxChars), runeLen(text) > p.maxChars)
	}

	logger.Debug("chunker: %d characters -> %d segments", runeLen(text), len(b.chunks))
	return b.chunks, nil
}

// builder accumulates pieces into the current segment.
type builder struct {
	limit  int
	cur    strings.Builder
	curLen int
	chunks []domain.Chunk
}

// add appends piece to the current segment, flushing first if it
// would not fit. The caller guarantees piece alone fits.
func (b *builder) add(piece, sep string) {
	n := runeLen(piece)
	if b.curLen > 0 && b.curLen+runeLen(sep)+n > b.limit {
		b.flush()
	}
	if b.curLen > 0 {
		b.cur.WriteString(sep)
		b.curLen += runeLen(sep)
	}
	b.cur.WriteString(piece)
	b.curLen += n
}

func (b *builder) flush() {
	if b.curLen == 0 {
		return
	}
	b.emit(b.cur.String(), false)
	b.cur.Reset()
	b.curLen = 0
}

func (b *builder) emit(content string, truncated bool) {
	b.chunks = append(b.chunks, domain.Chunk{
		Index:     len(b.chunks),
		Content:   content,
		Truncated: truncated,
	})
}

// splitParagraphs splits on blank lines and drops empty paragraphs.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range paragraphBreak.Split(text, -1) {
		if para = strings.TrimSpace(para); para != "" {
			out = append(out, para)
		}
	}
	return out
}

// splitSentences splits a paragraph after terminal punctuation followed
// by whitespace, and at line breaks. Closing quotes and brackets stay
// with their sentence.
func splitSentences(para string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(para)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		end := -1
		switch {
		case r == '\n':
			end = i
		case r == '.' || r == '!' || r == '?':
			j := i + 1
			for j < len(runes) && isCloser(runes[j]) {
				j++
			}
			if j == len(runes) || unicode.IsSpace(runes[j]) {
				end = j
				i = j - 1
			}
		}
		if end < 0 {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’':
		return true
	}
	return false
}

// truncate returns the first limit runes of s.
func truncate(s string, limit int) string {
	if runeLen(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
