package persist

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store. Entries do not survive a restart;
// use SQLStore, RedisStore or S3Store for that.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	closed  bool
	done    chan struct{}
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStoreOption configures MemoryStore behavior.
type MemoryStoreOption func(*memoryStoreConfig)

type memoryStoreConfig struct {
	cleanupInterval time.Duration
	now             func() time.Time
}

// WithCleanupInterval sets how often expired entries are removed.
// Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		c.cleanupInterval = d
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		c.now = now
	}
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	cfg := &memoryStoreConfig{
		cleanupInterval: time.Minute,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &MemoryStore{
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
		now:     cfg.now,
	}
	go m.cleanupLoop(cfg.cleanupInterval)
	return m
}

// Save stores a copy of data until expiresAt.
func (m *MemoryStore) Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.entries[key] = memoryEntry{data: cloneBytes(data), expiresAt: expiresAt}
	return nil
}

// Load returns a copy of the data stored under key.
func (m *MemoryStore) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, nil
	}
	return cloneBytes(e.data), nil
}

// Delete removes key.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.entries, key)
	return nil
}

// Close stops the cleanup loop and drops all entries.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	m.entries = nil
	return nil
}

// Len returns the number of entries, expired ones included until the next
// cleanup.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.done:
			return
		}
	}
}

func (m *MemoryStore) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	now := m.now()
	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, key)
		}
	}
}
