package wizard

import (
	"context"
	"sync"
	"time"

	"rics-valuation/internal/application/reports"
	"rics-valuation/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultIdleTimeout matches the lifetime of the browser session cookie.
const DefaultIdleTimeout = 24 * time.Hour

// Manager keeps the open wizard sessions of this process. Sessions left
// idle longer than Options.IdleTimeout are dropped without saving; their
// last transition is already in the store.
type Manager struct {
	Store   *reports.Store
	Options Options

	mu       sync.Mutex
	sessions map[string]*Session
	seen     map[string]time.Time
}

func NewManager(store *reports.Store, opts Options) *Manager {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	return &Manager{
		Store:    store,
		Options:  opts,
		sessions: make(map[string]*Session),
		seen:     make(map[string]time.Time),
	}
}

// Start opens a session on a new report. Example comparables are added when
// seed is true or the manager is configured to seed.
func (m *Manager) Start(seed bool) *Session {
	opts := m.Options
	opts.SeedExamples = opts.SeedExamples || seed
	s := Start(m.Store, opts)
	m.register(s)
	log.Info().Str("session", s.ID).Str("report", s.record.ID).Msg("wizard started")
	return s
}

// Open starts a session on an existing report.
func (m *Manager) Open(ctx context.Context, reportID string) (*Session, error) {
	s, err := Open(ctx, m.Store, reportID)
	if err != nil {
		return nil, err
	}
	m.register(s)
	log.Info().Str("session", s.ID).Str("report", reportID).Msg("wizard opened report")
	return s, nil
}

// Get returns an open session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || m.expired(id) {
		m.drop(id)
		return nil, domain.ErrSessionNotFound
	}
	m.seen[id] = m.now()
	return s, nil
}

// Close saves the session's working copy and forgets the session. The
// session is dropped even when the save fails.
func (m *Manager) Close(ctx context.Context, id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	m.Drop(id)
	return s.Save(ctx)
}

// Drop forgets a session without saving.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drop(id)
}

// Len is the number of open sessions that have not gone idle.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	return len(m.sessions)
}

// Sweep drops idle sessions and returns how many went.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweep()
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

func (m *Manager) register(s *Session) {
	s.ID = uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	m.sessions[s.ID] = s
	m.seen[s.ID] = m.now()
}

// sweep and the helpers below expect mu to be held.
func (m *Manager) sweep() int {
	n := 0
	for id := range m.sessions {
		if m.expired(id) {
			m.drop(id)
			n++
		}
	}
	if n > 0 {
		log.Info().Int("dropped", n).Int("open", len(m.sessions)).Msg("idle wizard sessions dropped")
	}
	return n
}

func (m *Manager) expired(id string) bool {
	return m.now().Sub(m.seen[id]) > m.Options.IdleTimeout
}

func (m *Manager) drop(id string) {
	delete(m.sessions, id)
	delete(m.seen, id)
}

func (m *Manager) now() time.Time {
	return nowFunc(m.Options)()
}
