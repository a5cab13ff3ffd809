// Package watcher ingests files dropped into a directory tree.
//
// Files are indexed under a document ID derived from the owner and the
// absolute path, so editing a file re-indexes the same document and a
// restart does not create duplicates. Removing a file deletes its document.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
	"github.com/custodia-labs/admissions-kb/internal/extractors"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// DefaultDebounce is how long a path must stay quiet before it is indexed.
const DefaultDebounce = 500 * time.Millisecond

// DefaultMaxFileBytes skips files larger than this.
const DefaultMaxFileBytes = 32 << 20

// DefaultExcludes are skipped in addition to hidden files.
var DefaultExcludes = []string{"**/~$*", "**/*.tmp", "**/*.part", "**/*.crdownload"}

// Config controls what is watched and how it is indexed.
type Config struct {
	Dir          string
	OwnerID      string
	Category     domain.Category
	Shareable    bool
	Include      []string // doublestar patterns relative to Dir; empty admits every supported file
	Exclude      []string // doublestar patterns relative to Dir
	Debounce     time.Duration
	MaxFileBytes int64
	InitialScan  bool // index files already present when Run starts
}

// action is what an event asks the watcher to do.
type action int

const (
	actionNone action = iota
	actionIndex
	actionRemove
	actionWatchDir
)

// Watcher indexes files as they appear, change or disappear.
type Watcher struct {
	cfg       Config
	ingest    driving.IngestService
	documents driving.DocumentService

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher. documents is optional; without it removed files
// keep their documents.
func New(cfg Config, ingest driving.IngestService, documents driving.DocumentService) (*Watcher, error) {
	if ingest == nil {
		return nil, errors.New("watcher: ingest service is required")
	}
	if strings.TrimSpace(cfg.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", cfg.Dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, abs)
	}
	for _, p := range append(append([]string{}, cfg.Include...), cfg.Exclude...) {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return nil, fmt.Errorf("%w: bad pattern %q", domain.ErrInvalidInput, p)
		}
	}
	cfg.Dir = abs
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}

	return &Watcher{
		cfg:       cfg,
		ingest:    ingest,
		documents: documents,
		pending:   make(map[string]time.Time),
	}, nil
}

// Run watches the directory tree until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	files, err := w.addTree(fsw, w.cfg.Dir)
	if err != nil {
		return err
	}
	logger.Info("Watching %s for owner %s", w.cfg.Dir, w.cfg.OwnerID)

	if w.cfg.InitialScan {
		for _, path := range files {
			w.IndexFile(ctx, path) //nolint:errcheck // logged inside
		}
	}

	ticker := time.NewTicker(max(w.cfg.Debounce/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			switch w.classify(event) {
			case actionIndex:
				w.schedule(event.Name, time.Now())
			case actionRemove:
				w.unschedule(event.Name)
				w.RemoveFile(ctx, event.Name) //nolint:errcheck // logged inside
			case actionWatchDir:
				added, err := w.addTree(fsw, event.Name)
				if err != nil {
					logger.Warn("Cannot watch %s: %v", event.Name, err)
				}
				for _, path := range added {
					w.schedule(path, time.Now())
				}
			case actionNone:
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case now := <-ticker.C:
			for _, path := range w.due(now) {
				w.IndexFile(ctx, path) //nolint:errcheck // logged inside
			}
		}
	}
}

// IndexFile reads and ingests one file under its stable document ID.
func (w *Watcher) IndexFile(ctx context.Context, path string) (*driving.IngestResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > w.cfg.MaxFileBytes {
		logger.Warn("Skipping %s: %d bytes exceeds limit of %d", path, info.Size(), w.cfg.MaxFileBytes)
		return nil, fmt.Errorf("%w: %s is too large", domain.ErrInvalidInput, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	result, err := w.ingest.Ingest(ctx, driving.IngestRequest{
		Raw: domain.RawDocument{
			OwnerID:  w.cfg.OwnerID,
			Filename: filepath.Base(path),
			MIMEType: extractors.ResolveMIMEType("", path),
			Content:  content,
		},
		DocumentID: w.DocumentID(path),
		Category:   w.cfg.Category,
		Shareable:  w.cfg.Shareable,
	})
	if err != nil {
		logger.Warn("Failed to index %s: %v", path, err)
		return nil, err
	}
	logger.Info("Indexed %s as %s", w.rel(path), result.Document.ID)
	return result, nil
}

// RemoveFile deletes the document indexed for path, if any.
func (w *Watcher) RemoveFile(ctx context.Context, path string) error {
	if w.documents == nil {
		return nil
	}
	err := w.documents.Delete(ctx, w.DocumentID(path), w.cfg.OwnerID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		logger.Warn("Failed to remove document for %s: %v", path, err)
		return err
	}
	logger.Info("Removed %s", w.rel(path))
	return nil
}

// DocumentID derives the stable document ID for a path.
func (w *Watcher) DocumentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	name := "file://" + w.cfg.OwnerID + "/" + filepath.ToSlash(abs)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// classify decides what to do with an event.
func (w *Watcher) classify(event fsnotify.Event) action {
	if isHidden(w.rel(event.Name)) {
		return actionNone
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if w.Accepts(event.Name) {
			return actionRemove
		}
		return actionNone
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return actionNone
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return actionNone
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			return actionWatchDir
		}
		return actionNone
	}
	if !w.Accepts(event.Name) {
		return actionNone
	}
	return actionIndex
}

// Accepts reports whether a file path passes the include and exclude patterns.
func (w *Watcher) Accepts(path string) bool {
	rel := w.rel(path)
	if rel == "" || isHidden(rel) {
		return false
	}
	if matchesAny(rel, DefaultExcludes) || matchesAny(rel, w.cfg.Exclude) {
		return false
	}
	if len(w.cfg.Include) > 0 {
		return matchesAny(rel, w.cfg.Include)
	}
	return extractors.IsSupportedFile(rel)
}

// addTree watches dir and its subdirectories and returns accepted files.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("Skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if path != w.cfg.Dir && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
			return nil
		}
		if w.Accepts(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (w *Watcher) schedule(path string, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = at
}

func (w *Watcher) unschedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pending, path)
}

// due returns the paths that have been quiet for the debounce period.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.cfg.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.cfg.Dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

// isHidden reports whether any path element starts with a dot.
func isHidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}

// matchesAny checks rel and its base name against doublestar patterns.
func matchesAny(rel string, patterns []string) bool {
	base := filepath.Base(rel)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
