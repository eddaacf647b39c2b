package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/draftform/pkg/persist"
	"github.com/vango-dev/draftform/pkg/record"
)

// PersistentStore is a write-behind DraftStore. The in-memory copy is
// updated synchronously and is what Get reads; the backend only restores
// drafts the process has not seen yet, such as after a restart.
//
// Backend writes run on a single background worker. Pending writes for the
// same screen coalesce, so the backend always ends at the latest state.
// Backend failures are logged and otherwise ignored. Close flushes pending
// writes before closing the backend.
type PersistentStore struct {
	mem     *MemoryStore
	backend persist.Store
	ttl     time.Duration
	prefix  string
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu      sync.Mutex
	idle    *sync.Cond
	pending map[string]pendingWrite
	removed map[string]struct{}
	busy    bool
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

// pendingWrite is the latest backend operation queued for a screen.
type pendingWrite struct {
	data      []byte
	expiresAt time.Time
	remove    bool
}

// Option configures a PersistentStore.
type Option func(*PersistentStore)

// WithTTL sets how long a saved draft stays loadable. Default: 24 hours.
func WithTTL(d time.Duration) Option {
	return func(p *PersistentStore) {
		if d > 0 {
			p.ttl = d
		}
	}
}

// WithPrefix sets a prefix added to every backend key.
func WithPrefix(prefix string) Option {
	return func(p *PersistentStore) {
		p.prefix = prefix
	}
}

// WithTimeout bounds each backend call. Default: 2 seconds.
func WithTimeout(d time.Duration) Option {
	return func(p *PersistentStore) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *PersistentStore) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPersistentStore wraps backend.
func NewPersistentStore(backend persist.Store, opts ...Option) *PersistentStore {
	p := &PersistentStore{
		mem:     NewMemoryStore(),
		backend: backend,
		ttl:     24 * time.Hour,
		timeout: 2 * time.Second,
		now:     time.Now,
		logger:  slog.Default(),
		pending: make(map[string]pendingWrite),
		removed: make(map[string]struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.idle = sync.NewCond(&p.mu)
	p.logger = p.logger.With("component", "drafts")
	go p.run()
	return p
}

func (p *PersistentStore) key(screenID string) string {
	return p.prefix + screenID
}

func (p *PersistentStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), p.timeout)
}

// Get returns the in-memory draft, falling back to the backend.
func (p *PersistentStore) Get(screenID string) (record.Draft, bool) {
	if d, ok := p.mem.Get(screenID); ok {
		return d, true
	}
	p.mu.Lock()
	_, gone := p.removed[screenID]
	p.mu.Unlock()
	if gone {
		return nil, false
	}

	ctx, cancel := p.ctx()
	defer cancel()

	data, err := p.backend.Load(ctx, p.key(screenID))
	if err != nil {
		p.logger.Warn("draft restore failed", "screen", screenID, "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	env, err := persist.DecodeDraft(data)
	if err != nil {
		p.logger.Warn("discarding unreadable draft", "screen", screenID, "error", err)
		return nil, false
	}
	if env.Screen != screenID {
		p.logger.Warn("discarding draft of another screen", "screen", screenID, "stored", env.Screen)
		return nil, false
	}

	p.mem.Set(screenID, env.Values)
	p.logger.Debug("draft restored", "screen", screenID, "savedAt", env.SavedAt)
	return env.Values.Clone(), true
}

// Set updates memory and queues the backend write.
func (p *PersistentStore) Set(screenID string, draft record.Draft) {
	p.mem.Set(screenID, draft)

	now := p.now()
	data, err := persist.EncodeDraft(screenID, draft, now)
	if err != nil {
		p.logger.Warn("draft encode failed", "screen", screenID, "error", err)
		return
	}
	p.enqueue(screenID, pendingWrite{data: data, expiresAt: now.Add(p.ttl)})
}

// Reset removes the draft from memory and queues the backend delete.
func (p *PersistentStore) Reset(screenID string) {
	p.mem.Reset(screenID)
	p.enqueue(screenID, pendingWrite{remove: true})
}

func (p *PersistentStore) enqueue(screenID string, w pendingWrite) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w.remove {
		p.removed[screenID] = struct{}{}
	} else {
		delete(p.removed, screenID)
	}
	if p.closed {
		p.logger.Warn("draft write after close dropped", "screen", screenID)
		return
	}
	p.pending[screenID] = w
	p.busy = true
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *PersistentStore) run() {
	defer close(p.done)
	for range p.wake {
		p.drain()
	}
	p.drain()
}

// drain writes queued operations until none are left.
func (p *PersistentStore) drain() {
	for {
		p.mu.Lock()
		if len(p.pending) == 0 {
			p.busy = false
			p.idle.Broadcast()
			p.mu.Unlock()
			return
		}
		batch := p.pending
		p.pending = make(map[string]pendingWrite)
		p.mu.Unlock()

		for screenID, w := range batch {
			p.write(screenID, w)
		}
	}
}

func (p *PersistentStore) write(screenID string, w pendingWrite) {
	ctx, cancel := p.ctx()
	defer cancel()
	if w.remove {
		if err := p.backend.Delete(ctx, p.key(screenID)); err != nil {
			p.logger.Warn("draft delete failed", "screen", screenID, "error", err)
		}
		return
	}
	if err := p.backend.Save(ctx, p.key(screenID), w.data, w.expiresAt); err != nil {
		p.logger.Warn("draft save failed", "screen", screenID, "error", err)
	}
}

// Flush blocks until every queued backend write has finished.
func (p *PersistentStore) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.busy {
		p.idle.Wait()
	}
}

// Close flushes pending writes, stops the worker and closes the backend.
func (p *PersistentStore) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.wake)
	}
	p.mu.Unlock()
	<-p.done
	return p.backend.Close()
}
