package store

import (
	"sync"

	"github.com/vango-dev/draftform/pkg/record"
)

// MemoryStore keeps one draft per screen id for the lifetime of the process.
// Values are copied on the way in and out, so callers never share maps.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]record.Draft
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]record.Draft)}
}

// Get returns a copy of the draft for screenID.
func (m *MemoryStore) Get(screenID string) (record.Draft, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[screenID]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// Set replaces the draft for screenID.
func (m *MemoryStore) Set(screenID string, draft record.Draft) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[screenID] = draft.Clone()
}

// Reset forgets the draft for screenID.
func (m *MemoryStore) Reset(screenID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, screenID)
}

// Screens returns the ids that currently hold a draft.
func (m *MemoryStore) Screens() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.drafts))
	for id := range m.drafts {
		ids = append(ids, id)
	}
	return ids
}
