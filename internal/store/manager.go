package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pkordes/tabinico/internal/domain"
)

// anonymousKey is the session key shared by every caller without an identity.
const anonymousKey = "anonymous"

// Manager owns one Store per session and evicts stores nobody has used for
// IdleTTL. It must be started with Run.
type Manager struct {
	deps    Deps
	cfg     Settings
	idleTTL time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Store
	closed   bool
	closing  sync.WaitGroup
}

var errManagerClosed = errors.New("store.Manager: closed")

// NewManager returns a Manager. Stores it creates keep their subscriptions
// open until they are evicted or Close is called.
func NewManager(deps Deps, cfg Settings, idleTTL time.Duration) *Manager {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		deps:     deps,
		cfg:      cfg,
		idleTTL:  idleTTL,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Store),
	}
}

// EnsureDemoTrip creates the demo document if it does not exist. An empty
// merge leaves an existing document untouched.
func (m *Manager) EnsureDemoTrip(ctx context.Context) error {
	if err := m.deps.Trips.Merge(ctx, m.cfg.DemoTripID, domain.TripPatch{}); err != nil {
		return fmt.Errorf("store.Manager.EnsureDemoTrip: %w", err)
	}
	return nil
}

// For returns the store for userID ("" for anonymous callers), creating and
// binding it on first use.
func (m *Manager) For(ctx context.Context, userID string) (*Store, error) {
	key := userID
	if key == "" {
		key = anonymousKey
	}

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, errManagerClosed
		}
		s, ok := m.sessions[key]
		if !ok {
			s = newStore(m.ctx, m.deps, m.cfg, userID)
			m.sessions[key] = s
		}
		m.mu.Unlock()

		err := s.open(ctx)

		// EvictIdle may have closed s while it was opening. Touching under
		// m.mu keeps it from being evicted before the caller gets it.
		m.mu.Lock()
		live := m.sessions[key] == s
		if live && err == nil {
			s.touch()
		}
		m.mu.Unlock()

		switch {
		case !live:
			continue
		case err != nil:
			m.drop(key, s)
			return nil, err
		}
		return s, nil
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run evicts idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	interval := m.idleTTL / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.EvictIdle()
		case <-ctx.Done():
			return
		}
	}
}

// EvictIdle closes every unretained store unused for longer than IdleTTL.
func (m *Manager) EvictIdle() int {
	cutoff := m.deps.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var idle []*Store
	for key, s := range m.sessions {
		if s.idleSince(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		m.closeAsync(s)
	}
	if len(idle) > 0 {
		m.deps.Log.Debug("evicted idle sessions", "count", len(idle))
	}
	return len(idle)
}

// Close ends every subscription and waits for pending writes.
func (m *Manager) Close() {
	m.mu.Lock()
	all := make([]*Store, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Store)
	m.closed = true
	m.mu.Unlock()

	for _, s := range all {
		m.closeAsync(s)
	}
	m.closing.Wait()
	m.cancel()
}

func (m *Manager) drop(key string, s *Store) {
	m.mu.Lock()
	if m.sessions[key] == s {
		delete(m.sessions, key)
	}
	m.mu.Unlock()
	m.closeAsync(s)
}

func (m *Manager) closeAsync(s *Store) {
	m.closing.Add(1)
	go func() {
		defer m.closing.Done()
		s.close()
	}()
}
