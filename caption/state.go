package caption

import (
	"context"
	"sync"
	"time"
)

// State is what the key pool persists between calls: when each quarantined key becomes usable
// again (by key fingerprint) and where the next round-robin scan starts.
type State struct {
	Quarantine map[string]time.Time
	Cursor     int
}

func (s State) clone() State {
	out := State{Cursor: s.Cursor, Quarantine: make(map[string]time.Time, len(s.Quarantine))}
	for k, v := range s.Quarantine {
		out.Quarantine[k] = v
	}
	return out
}

// StateStore loads and persists the key pool state
type StateStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// MemoryStateStore keeps the state in process memory
type MemoryStateStore struct {
	mu    sync.Mutex
	state State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{state: State{Quarantine: map[string]time.Time{}}}
}

func (m *MemoryStateStore) Load(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone(), nil
}

func (m *MemoryStateStore) Save(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.clone()
	return nil
}
