package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// DefaultJanitorInterval is how often expired sessions are purged.
const DefaultJanitorInterval = time.Minute

// SessionJanitor periodically removes expired sessions.
// It is a pure core service with no external control API.
type SessionJanitor struct {
	store    driven.SessionStore
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSessionJanitor creates a janitor. A non-positive interval uses
// DefaultJanitorInterval.
func NewSessionJanitor(store driven.SessionStore, interval time.Duration) *SessionJanitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &SessionJanitor{
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// Start begins the purge loop. This method blocks until Stop is called
// or ctx is done.
func (j *SessionJanitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil // Already running
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	stopCh, doneCh := j.stopCh, j.doneCh
	j.mu.Unlock()

	defer close(doneCh)

	j.purge(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			j.purge(ctx)
		}
	}
}

// Stop ends the purge loop and waits for it to return.
func (j *SessionJanitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	close(j.stopCh)
	doneCh := j.doneCh
	j.mu.Unlock()

	<-doneCh
}

func (j *SessionJanitor) purge(ctx context.Context) {
	n, err := j.store.DeleteExpired(ctx, j.now())
	if err != nil {
		logger.Warn("session janitor: %v", err)
		return
	}
	if n > 0 {
		logger.Debug("session janitor: removed %d expired sessions", n)
	}
}
