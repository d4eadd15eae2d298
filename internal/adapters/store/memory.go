// Package store provides SessionStore backends: an in-memory map for the
// default ephemeral mode and a Redis variant for deployments that want
// sessions to survive a restart.
package store

import (
	"context"
	"sync"

	"github.com/larriantoniy/dl_slot_bot/internal/domain"
	"github.com/larriantoniy/dl_slot_bot/internal/ports"
)

type Memory struct {
	mu       sync.RWMutex
	sessions map[int64]domain.Session
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[int64]domain.Session)}
}

func (m *Memory) Get(_ context.Context, userID int64) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return nil, ports.ErrSessionNotFound
	}
	// Copy out so callers never share the stored value.
	out := sess
	return &out, nil
}

func (m *Memory) Set(_ context.Context, sess *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.UserID] = *sess
	return nil
}

func (m *Memory) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}
