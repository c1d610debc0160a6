package session

import (
	"sync"
	"time"

	"neurovision/pkg/logger"
	"neurovision/pkg/telemetry"
	"neurovision/pkg/timeutil"
)

// Manager owns the live sessions and evicts idle ones.
type Manager struct {
	opts Options
	rnd  *picker

	mu       sync.RWMutex
	sessions map[string]*Session

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewManager(opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		opts:     opts,
		rnd:      &picker{src: opts.Rand},
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}
}

// Create starts a new session.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.stopCh:
		return nil, ErrClosed
	default:
	}
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		return nil, ErrTooManySessions
	}
	s := newSession(&m.opts, m.rnd)
	m.sessions[s.id] = s
	telemetry.SessionsActive.Set(float64(len(m.sessions)))
	logger.Debug("session_created", "session", s.id, "active", len(m.sessions))
	return s, nil
}

// Get returns the session and marks it as recently used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// Discard closes and forgets the session.
func (m *Manager) Discard(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		telemetry.SessionsActive.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	logger.Debug("session_discarded", "session", id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle since before now minus the idle TTL and
// returns how many were removed. A zero TTL disables eviction.
func (m *Manager) Sweep(now time.Time) int {
	if m.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.opts.IdleTTL)
	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	telemetry.SessionsActive.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		telemetry.SessionsExpired.Add(float64(len(expired)))
		logger.Info("sessions_expired", "count", len(expired))
	}
	return len(expired)
}

// StartSweeper runs Sweep every interval until Close.
func (m *Manager) StartSweeper(interval time.Duration) {
	if interval <= 0 || m.opts.IdleTTL <= 0 {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep(timeutil.Now())
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Close stops the sweeper and closes every session.
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	telemetry.SessionsActive.Set(0)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	if len(sessions) > 0 {
		logger.Info("sessions_closed", "count", len(sessions))
	}
}
