package explorer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/metrics"
	"github.com/gyaneshwarpardhi/paperatlas/internal/source"
)

var ErrTooManySessions = errors.New("session limit reached")

// Manager owns the live sessions of one server.
type Manager struct {
	ctx  context.Context
	src  source.Source
	exp  Expander
	conf atomic.Pointer[config.Config]

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewManager creates a Manager. Sessions it starts stop when ctx is done.
func NewManager(ctx context.Context, src source.Source, exp Expander, cfg *config.Config) *Manager {
	m := &Manager{ctx: ctx, src: src, exp: exp, sessions: make(map[string]*Session)}
	m.conf.Store(cfg)
	return m
}

// Create starts a session and loads its initial graph. A failed load
// creates nothing.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	cfg := m.conf.Load()
	m.mu.RLock()
	n := len(m.sessions)
	m.mu.RUnlock()
	if cfg.Server.MaxSessions > 0 && n >= cfg.Server.MaxSessions {
		return nil, ErrTooManySessions
	}

	s := New(uuid.NewString(), m.src, m.exp, cfg, time.Now())
	if err := s.Load(ctx); err != nil {
		s.Close()
		return nil, err
	}

	s.running.Store(true)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	metrics.SessionsActive.Inc()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s.Run(m.ctx, cfg.Server.FrameRate)
		m.forget(s.ID())
	}()
	slog.Info("session created", "session", s.ID(), "nodes", s.Graph().NodeCount())
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove closes and forgets a session.
func (m *Manager) Remove(id string) bool {
	s, ok := m.Get(id)
	if !ok {
		return false
	}
	s.Close()
	m.forget(id)
	return true
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		metrics.SessionsActive.Dec()
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs lists live session ids.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// ApplyConfig pushes cfg to every session and uses it for new ones.
func (m *Manager) ApplyConfig(cfg *config.Config) {
	m.conf.Store(cfg)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if err := s.Post(func() { s.ApplyConfig(cfg) }); err != nil {
			slog.Warn("config push skipped", "session", s.ID(), "err", err)
		}
	}
}

// ReapIdle closes sessions with no input since the idle timeout and returns
// how many it closed.
func (m *Manager) ReapIdle(now time.Time) int {
	timeout := time.Duration(m.conf.Load().Server.IdleTimeoutSec) * time.Second
	if timeout <= 0 {
		return 0
	}
	var idle []string
	m.mu.RLock()
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > timeout {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()
	for _, id := range idle {
		if m.Remove(id) {
			slog.Info("idle session closed", "session", id)
		}
	}
	return len(idle)
}

// Reap runs ReapIdle every interval until ctx is done.
func (m *Manager) Reap(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			m.ReapIdle(now)
		}
	}
}

// Shutdown closes every session and waits for their loops to exit.
func (m *Manager) Shutdown() {
	for _, id := range m.IDs() {
		m.Remove(id)
	}
	m.wg.Wait()
}
