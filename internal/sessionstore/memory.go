package sessionstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/models"
)

// In-memory store for single instance deployments and tests
// Expired sessions are removed lazily on Get and by Cleanup
type Memory struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
}

func (m *Memory) Put(_ context.Context, session models.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.ID] = session
	return nil
}

func (m *Memory) Get(_ context.Context, sessionID string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	switch {
	case !ok:
		return models.Session{}, apperrors.ErrSessionNotFound
	case session.Expired(m.now()):
		delete(m.sessions, sessionID)
		return models.Session{}, apperrors.ErrSessionNotFound
	default:
		return session, nil
	}
}

func (m *Memory) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

// Cleanup removes expired sessions every interval until ctx is cancelled
func (m *Memory) Cleanup(ctx context.Context, interval time.Duration) <-chan struct{} {
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.removeExpired()
			}
		}
	}()

	return stopped
}

func (m *Memory) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, id)
		}
	}
}
