package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore reads prompt overrides from a directory, one <name>.txt per
// prompt. Each known prompt has a starter text that is written on first
// use; an override must use the same number of %s placeholders as its
// starter or it is ignored.
//
// A file is re-read when its modification time changes, so edits apply to
// the next extraction without restarting the server.
type PromptStore struct {
	dir      string
	starters map[string]string

	seedOnce sync.Once

	mu    sync.Mutex
	cache map[string]cachedPrompt
}

type cachedPrompt struct {
	text    string
	modTime time.Time
	err     error
}

// NewPromptStore creates a prompt store. If dir is empty, it defaults to
// ~/.admkb/prompts. Nothing touches the disk until the first Load.
func NewPromptStore(dir string, starters map[string]string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".admkb", "prompts")
	}

	return &PromptStore{
		dir:      dir,
		starters: starters,
		cache:    make(map[string]cachedPrompt),
	}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the current text of a prompt. It fails with ErrNotFound for
// a name with no starter, and with ErrInvalidInput when the file on disk
// has the wrong placeholders.
func (s *PromptStore) Load(name string) (string, error) {
	starter, known := s.starters[name]
	if !known {
		return "", fmt.Errorf("%w: prompt %q", domain.ErrNotFound, name)
	}
	s.seedOnce.Do(s.seed)

	path := s.path(name)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("prompt %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache[name]; ok && c.modTime.Equal(info.ModTime()) {
		return c.text, c.err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("prompt %q: %w", name, err)
	}

	c := cachedPrompt{text: strings.TrimSpace(string(data)), modTime: info.ModTime()}
	if err := matchPlaceholders(c.text, countPlaceholders(starter)); err != nil {
		logger.Warn("Ignoring prompt %s: %v", path, err)
		c = cachedPrompt{modTime: info.ModTime(), err: fmt.Errorf("prompt %q: %w", name, err)}
	} else {
		logger.Debug("Loaded prompt %s", path)
	}
	s.cache[name] = c
	return c.text, c.err
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// seed creates the directory, any missing starter files and a README.
// Failures are logged; Load then reports the missing file.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		logger.Debug("Cannot create prompt directory: %v", err)
		return
	}
	for name, text := range s.starters {
		if err := writeIfMissing(s.path(name), text); err != nil {
			logger.Debug("Cannot write starter prompt %s: %v", name, err)
		}
	}
	if err := writeIfMissing(filepath.Join(s.dir, "README.md"), s.readme()); err != nil {
		logger.Debug("Cannot write prompt README: %v", err)
	}
}

func (s *PromptStore) readme() string {
	var b strings.Builder
	b.WriteString("# admkb prompts\n\n")
	b.WriteString("Edit a file to change what the metadata oracle is told. Changes apply\n")
	b.WriteString("to the next document indexed. Delete a file to restore its default.\n\n")
	for name, text := range s.starters {
		fmt.Fprintf(&b, "- `%s.txt` takes %d `%%s` placeholders.\n", name, countPlaceholders(text))
	}
	b.WriteString("\nReplies are validated against the category schema whatever the wording.\n")
	return b.String()
}

func writeIfMissing(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if os.IsExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// countPlaceholders counts %s verbs, skipping escaped %%.
func countPlaceholders(text string) int {
	n := 0
	for i := 0; i < len(text)-1; i++ {
		if text[i] != '%' {
			continue
		}
		if text[i+1] == 's' {
			n++
		}
		i++
	}
	return n
}

// matchPlaceholders requires exactly want %s verbs and no other verb.
func matchPlaceholders(text string, want int) error {
	for i := 0; i < len(text); i++ {
		if text[i] != '%' {
			continue
		}
		if i+1 == len(text) {
			return fmt.Errorf("%w: dangling %%", domain.ErrInvalidInput)
		}
		if next := text[i+1]; next != 's' && next != '%' {
			return fmt.Errorf("%w: unsupported verb %%%c", domain.ErrInvalidInput, next)
		}
		i++
	}
	if got := countPlaceholders(text); got != want {
		return fmt.Errorf("%w: %d %%s placeholders, want %d", domain.ErrInvalidInput, got, want)
	}
	return nil
}
