// Package sessionstore provides persistence backends for the session manager.
package sessionstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/ticketremaster/session"
)

var _ session.Store = (*Memory)(nil)

// Memory keeps the session in process memory. It is the default store and
// does not survive a restart.
type Memory struct {
	mu      sync.RWMutex
	session *session.Session
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, nil
	}
	s := m.session.Clone()
	return &s, nil
}

func (m *Memory) Save(_ context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := s.Clone()
	m.session = &c
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
