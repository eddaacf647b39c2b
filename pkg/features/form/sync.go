package form

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/vango-dev/draftform/pkg/record"
)

// ErrNotSeeded is returned by Apply before the first snapshot was observed.
var ErrNotSeeded = errors.New("form: session not seeded")

// ErrDetached is returned by Apply after the screen let go of its session.
var ErrDetached = errors.New("form: session detached")

// DraftStore holds the last known record of a screen across navigation.
// Implementations must be safe for concurrent use; see package store.
type DraftStore interface {
	Get(screenID string) (record.Draft, bool)
	Set(screenID string, draft record.Draft)
	Reset(screenID string)
}

// Synchronizer owns the single live Session of a screen and mirrors it into a
// DraftStore. Only two events change the session: a snapshot with a new
// identity (re-seed) and a field apply.
//
// Listeners registered with Subscribe run synchronously while the change is
// still being processed and must not call back into the Synchronizer.
type Synchronizer struct {
	screenID string
	seeder   Seeder
	drafts   DraftStore
	actor    Actor
	observer Observer
	logger   *slog.Logger

	mu         sync.Mutex
	session    Session
	seeded     bool
	detached   bool
	key        string
	generation uint64

	listeners    map[uint64]func(Session)
	nextListener uint64
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithActor sets the identity handed to computed fields on every seed.
func WithActor(actor Actor) SyncOption {
	return func(s *Synchronizer) {
		s.actor = actor
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) SyncOption {
	return func(s *Synchronizer) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) SyncOption {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSynchronizer creates the synchronizer for screenID. drafts may be nil,
// in which case nothing survives navigation.
func NewSynchronizer(screenID string, seeder Seeder, drafts DraftStore, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		screenID:  screenID,
		seeder:    seeder,
		drafts:    drafts,
		observer:  nopObserver{},
		logger:    slog.Default(),
		listeners: make(map[uint64]func(Session)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "form", "screen", screenID)
	return s
}

// ScreenID returns the screen identifier the synchronizer is bound to.
func (s *Synchronizer) ScreenID() string {
	return s.screenID
}

// Observe reports the current upstream snapshot. The session is re-seeded
// when nothing was seeded yet, the screen was detached, or snap.Key differs
// from the last seeded key. It returns true if a re-seed happened.
func (s *Synchronizer) Observe(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seeded && !s.detached && snap.Key == s.key {
		return false
	}

	var shared record.Draft
	if s.drafts != nil {
		if d, ok := s.drafts.Get(s.screenID); ok {
			shared = d
		}
	}

	s.session = s.seeder.Seed(snap, shared, s.actor)
	s.seeded = true
	s.detached = false
	s.key = snap.Key
	s.generation++

	s.logger.Debug("session seeded", "key", snap.Key, "resumed", len(shared) > 0, "generation", s.generation)
	s.publishLocked()
	return true
}

// Apply sets one field on the live session and mirrors the result into the
// draft store before returning.
func (s *Synchronizer) Apply(field string, value any) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		return Session{}, ErrNotSeeded
	}
	if s.detached {
		return Session{}, ErrDetached
	}

	s.session = s.seeder.Apply(s.session, field, value)
	s.publishLocked()
	return s.session.Clone(), nil
}

// Session returns a copy of the live session.
func (s *Synchronizer) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

// Seeded reports whether a snapshot has been observed.
func (s *Synchronizer) Seeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded
}

// Generation increases on every seed and every detach. A submit result is
// applied only if the generation it started with is still current.
func (s *Synchronizer) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Detach marks the session as no longer consumed by a screen. Late submit
// results are dropped and Apply fails until the next Observe.
// The draft store is left alone; resetting it is the caller's decision.
func (s *Synchronizer) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}
	s.detached = true
	s.generation++
	s.logger.Debug("session detached")
}

// Subscribe registers fn to receive a copy of the session after every change.
// The returned function removes the subscription.
func (s *Synchronizer) Subscribe(fn func(Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextListener++
	id := s.nextListener
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// checkout returns the session a submit works on, together with its
// generation. ok is false when there is no live session.
func (s *Synchronizer) checkout() (Session, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seeded || s.detached {
		return Session{}, 0, false
	}
	return s.session.Clone(), s.generation, true
}

// overlayErrors places server-reported field errors over the current result.
// It reports false, and changes nothing, if gen is stale.
func (s *Synchronizer) overlayErrors(gen uint64, fieldErrors map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached || gen != s.generation {
		return false
	}
	if len(fieldErrors) > 0 {
		s.session.Errors = s.session.Errors.Overlay(fieldErrors)
	}
	s.notifyLocked()
	return true
}

// current reports whether gen still names the live session.
func (s *Synchronizer) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.detached && gen == s.generation
}

// publishLocked writes the draft store and notifies listeners.
func (s *Synchronizer) publishLocked() {
	if s.drafts != nil {
		s.drafts.Set(s.screenID, s.session.Values.Clone())
		s.observer.ObserveDraftWrite(s.screenID)
	}
	s.notifyLocked()
}

func (s *Synchronizer) notifyLocked() {
	if len(s.listeners) == 0 {
		return
	}
	for _, fn := range s.listeners {
		fn(s.session.Clone())
	}
}
