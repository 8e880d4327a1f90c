package checkpoint

import "sync"

// MemoryStore is an in-memory checkpoint store for tests and demos.
// Data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*threadLog
	closed  bool
}

// threadLog holds one thread's checkpoints in write order.
type threadLog struct {
	order []*Checkpoint
	byID  map[string]*Checkpoint
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string]*threadLog)}
}

// Put implements Store.
func (m *MemoryStore) Put(cp *Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	log, ok := m.threads[cp.ThreadID]
	if !ok {
		log = &threadLog{byID: make(map[string]*Checkpoint)}
		m.threads[cp.ThreadID] = log
	}

	if _, exists := log.byID[cp.ID]; exists {
		return ErrConflict
	}

	stored := cp.clone()
	log.byID[stored.ID] = stored
	log.order = append(log.order, stored)
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(threadID, checkpointID string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	log, ok := m.threads[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	cp, ok := log.byID[checkpointID]
	if !ok {
		return nil, ErrNotFound
	}
	return cp.clone(), nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(threadID string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	log, ok := m.threads[threadID]
	if !ok || len(log.order) == 0 {
		return nil, ErrNotFound
	}
	return log.order[len(log.order)-1].clone(), nil
}

// History implements Store.
func (m *MemoryStore) History(threadID string) ([]*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	log, ok := m.threads[threadID]
	if !ok {
		return nil, nil
	}

	out := make([]*Checkpoint, 0, len(log.order))
	for i := len(log.order) - 1; i >= 0; i-- {
		out = append(out, log.order[i].clone())
	}
	return out, nil
}

// DeleteThread implements Store.
func (m *MemoryStore) DeleteThread(threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.threads, threadID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.threads = nil
	return nil
}

// Len returns the total number of checkpoints across all threads.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, log := range m.threads {
		count += len(log.order)
	}
	return count
}
