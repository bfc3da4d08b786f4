package state

import (
	"context"
	"sync"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
)

type sessionKey struct {
	userID    uint
	sessionID string
}

// MemoryStore keeps conversation state in process. Used for local runs
// and tests; state is lost on restart.
type MemoryStore struct {
	states map[sessionKey]domain.ConversationState
	mu     sync.RWMutex
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[sessionKey]domain.ConversationState),
	}
}

func (m *MemoryStore) GetState(_ context.Context, userID uint, sessionID string) (*domain.ConversationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, exists := m.states[sessionKey{userID, sessionID}]
	if !exists {
		return nil, nil
	}
	return &state, nil
}

func (m *MemoryStore) SaveState(_ context.Context, state *domain.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{state.UserID, state.SessionID}
	now := time.Now().UTC()
	if prev, ok := m.states[key]; ok {
		state.CreatedAt = prev.CreatedAt
	} else if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now

	stored := *state
	stored.Slots = append([]byte(nil), state.Slots...)
	m.states[key] = stored
	return nil
}

// Len reports how many sessions are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
