package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yanani99/reso/internal/shared"
)

// defaultIdleTTL bounds how long an unused session stays cached before the
// sweeper drops it.
const defaultIdleTTL = 2 * time.Hour

// ClientFactory builds and initializes a client for a raw cookie header.
// The default factory authenticates and performs the first token renewal.
type ClientFactory func(ctx context.Context, cookie string) (*SunoClient, error)

type registryEntry struct {
	client   *SunoClient
	lastUsed time.Time
}

// Registry guarantees at most one live session per credential fingerprint.
//
// Entries are evicted after an idle TTL rather than living for the whole
// process; a credential set seen again after eviction simply re-authenticates.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	factory ClientFactory
	idleTTL time.Duration
	now     func() time.Time
}

// NewRegistry creates a Registry around the given factory. A nil factory
// installs the default, which authenticates with the provided logger.
func NewRegistry(factory ClientFactory, logger *log.Logger) *Registry {
	if factory == nil {
		factory = func(ctx context.Context, cookie string) (*SunoClient, error) {
			client := NewSunoClient(cookie, nil, logger)
			if err := client.Authenticate(ctx); err != nil {
				return nil, err
			}
			if err := client.KeepAlive(ctx, false); err != nil {
				return nil, err
			}
			return client, nil
		}
	}
	return &Registry{
		entries: make(map[string]*registryEntry),
		factory: factory,
		idleTTL: defaultIdleTTL,
		now:     time.Now,
	}
}

// Acquire returns the cached client for the cookie's fingerprint, building
// and initializing one on first sight. Racing callers with the same
// fingerprint may each authenticate; the first client stored wins and the
// later duplicates are discarded, so callers always converge on one client.
func (r *Registry) Acquire(ctx context.Context, cookie string) (*SunoClient, error) {
	if cookie == "" {
		return nil, fmt.Errorf("%w: no cookie provided", shared.ErrMissingCredentials)
	}

	fp := shared.CookieFingerprint(cookie)

	r.mu.Lock()
	if entry, ok := r.entries[fp]; ok {
		entry.lastUsed = r.now()
		client := entry.client
		r.mu.Unlock()
		return client, nil
	}
	r.mu.Unlock()

	// Build outside the lock; authentication is slow. A racing caller may
	// build too, first store wins and the loser's client is discarded.
	client, err := r.factory(ctx, cookie)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[fp]; ok {
		entry.lastUsed = r.now()
		return entry.client, nil
	}
	r.entries[fp] = &registryEntry{client: client, lastUsed: r.now()}
	return client, nil
}

// Len returns the number of cached sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EvictIdle removes sessions unused for longer than the idle TTL and
// returns how many were dropped.
func (r *Registry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	evicted := 0
	for fp, entry := range r.entries {
		if entry.lastUsed.Before(cutoff) {
			delete(r.entries, fp)
			evicted++
		}
	}
	return evicted
}

// StartSweeper launches a background eviction loop that runs until ctx is
// cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.EvictIdle()
			}
		}
	}()
}
