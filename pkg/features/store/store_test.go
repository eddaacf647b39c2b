package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/draftform/pkg/features/form"
	"github.com/vango-dev/draftform/pkg/persist"
	"github.com/vango-dev/draftform/pkg/record"
)

var (
	_ form.DraftStore = (*MemoryStore)(nil)
	_ form.DraftStore = (*PersistentStore)(nil)
)

func TestMemoryStoreCopies(t *testing.T) {
	s := NewMemoryStore()
	in := record.Draft{"name": "Kim"}
	s.Set("admin:users", in)

	in["name"] = "changed"
	got, ok := s.Get("admin:users")
	if !ok || got["name"] != "Kim" {
		t.Fatalf("Get = %v, %v; writes must be copied", got, ok)
	}

	got["name"] = "changed again"
	again, _ := s.Get("admin:users")
	if again["name"] != "Kim" {
		t.Error("reads must be copied")
	}
}

func TestMemoryStoreScreensAreIndependent(t *testing.T) {
	s := NewMemoryStore()
	s.Set("a:users", record.Draft{"name": "A"})
	s.Set("b:users", record.Draft{"name": "B"})
	s.Reset("a:users")

	if _, ok := s.Get("a:users"); ok {
		t.Error("Reset left the draft behind")
	}
	if d, _ := s.Get("b:users"); d["name"] != "B" {
		t.Error("Reset of one screen touched another")
	}

	ids := s.Screens()
	sort.Strings(ids)
	if diff := cmp.Diff([]string{"b:users"}, ids); diff != "" {
		t.Errorf("Screens (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreConcurrent(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set("admin:users", record.Draft{"n": j})
				s.Get("admin:users")
			}
		}(i)
	}
	wg.Wait()
	if _, ok := s.Get("admin:users"); !ok {
		t.Error("draft lost under concurrent writes")
	}
}

func TestPersistentStoreRestoresAfterRestart(t *testing.T) {
	backend := persist.NewMemoryStore()
	defer backend.Close()

	first := NewPersistentStore(backend, WithPrefix("t:"))
	first.Set("admin:users", record.Draft{"name": "Kim Dealer", "deptIdx": 3})
	first.Flush()

	// A fresh store over the same backend starts with an empty memory.
	second := NewPersistentStore(backend, WithPrefix("t:"))
	got, ok := second.Get("admin:users")
	if !ok {
		t.Fatal("draft not restored from backend")
	}
	if !got.Equal(record.Draft{"name": "Kim Dealer", "deptIdx": 3}) {
		t.Errorf("restored draft = %v", got)
	}

	second.Reset("admin:users")
	second.Flush()
	third := NewPersistentStore(backend, WithPrefix("t:"))
	if _, ok := third.Get("admin:users"); ok {
		t.Error("Reset did not remove the backend copy")
	}
}

func TestPersistentStoreIgnoresForeignEnvelope(t *testing.T) {
	backend := persist.NewMemoryStore()
	defer backend.Close()

	data, _ := persist.EncodeDraft("other:users", record.Draft{"name": "Lee"}, time.Now())
	backend.Save(context.Background(), "admin:users", data, time.Now().Add(time.Hour))

	if _, ok := NewPersistentStore(backend).Get("admin:users"); ok {
		t.Error("draft saved for another screen must not be restored")
	}
}

// failingBackend fails every call.
type failingBackend struct {
	mu    sync.Mutex
	calls int
}

func (f *failingBackend) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("disk full")
}

func (f *failingBackend) Save(context.Context, string, []byte, time.Time) error { return f.fail() }

func (f *failingBackend) Load(context.Context, string) ([]byte, error) { return nil, f.fail() }

func (f *failingBackend) Delete(context.Context, string) error { return f.fail() }

func (f *failingBackend) Close() error { return nil }

func TestPersistentStoreSurvivesBackendFailure(t *testing.T) {
	backend := &failingBackend{}
	s := NewPersistentStore(backend)
	defer s.Close()

	s.Set("admin:users", record.Draft{"name": "Kim"})
	got, ok := s.Get("admin:users")
	if !ok || got["name"] != "Kim" {
		t.Errorf("memory copy must serve reads when the backend fails, got %v", got)
	}

	s.Reset("admin:users")
	if _, ok := s.Get("admin:users"); ok {
		t.Error("a reset draft must report a miss")
	}
	if _, ok := s.Get("admin:other"); ok {
		t.Error("failed restore must report a miss")
	}
	s.Flush()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	// Save and Delete may coalesce into the Delete alone.
	if backend.calls < 2 || backend.calls > 3 {
		t.Errorf("backend calls = %d, want 2 or 3", backend.calls)
	}
}

// blockingBackend holds every Save until release is closed.
type blockingBackend struct {
	*persist.MemoryStore
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingBackend) Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.MemoryStore.Save(ctx, key, data, expiresAt)
}

func TestPersistentStoreSetDoesNotWaitForBackend(t *testing.T) {
	backend := &blockingBackend{
		MemoryStore: persist.NewMemoryStore(),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	s := NewPersistentStore(backend)

	s.Set("admin:users", record.Draft{"name": "K"})
	<-backend.started

	// The worker is stuck in Save; further writes must still return at once.
	returned := make(chan struct{})
	go func() {
		s.Set("admin:users", record.Draft{"name": "Ki"})
		s.Set("admin:users", record.Draft{"name": "Kim"})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Set blocked on a slow backend")
	}
	if got, _ := s.Get("admin:users"); got["name"] != "Kim" {
		t.Errorf("memory copy = %v, want the latest write", got)
	}

	close(backend.release)
	s.Flush()

	data, err := backend.MemoryStore.Load(context.Background(), "admin:users")
	if err != nil || data == nil {
		t.Fatalf("Load() = %v, %v", data, err)
	}
	env, err := persist.DecodeDraft(data)
	if err != nil {
		t.Fatalf("DecodeDraft() error: %v", err)
	}
	if env.Values["name"] != "Kim" {
		t.Errorf("backend ended at %v, want the latest write", env.Values)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

// countingBackend counts saves that reached the backend.
type countingBackend struct {
	*persist.MemoryStore
	mu    sync.Mutex
	saves int
}

func (c *countingBackend) Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.MemoryStore.Save(ctx, key, data, expiresAt)
}

func TestPersistentStoreCloseFlushes(t *testing.T) {
	backend := &countingBackend{MemoryStore: persist.NewMemoryStore()}
	s := NewPersistentStore(backend)
	s.Set("admin:users", record.Draft{"name": "Kim"})

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.saves != 1 {
		t.Errorf("saves = %d, want the pending draft written before close", backend.saves)
	}

	s.Set("admin:users", record.Draft{"name": "Lee"})
	if backend.saves != 1 {
		t.Error("writes after Close must not reach the backend")
	}
}

func TestPersistentStoreBacksSynchronizer(t *testing.T) {
	backend := persist.NewMemoryStore()
	defer backend.Close()

	seeder := form.Seeder{
		Schema: form.NewSchema().Field("name", form.Required("required")),
	}

	drafts := NewPersistentStore(backend)
	syncer := form.NewSynchronizer("admin:users", seeder, drafts)
	syncer.Observe(form.Snapshot{})
	syncer.Apply("name", "Kim")
	drafts.Flush()

	// Simulate a restart: new memory, same backend.
	restarted := form.NewSynchronizer("admin:users", seeder, NewPersistentStore(backend))
	restarted.Observe(form.Snapshot{})
	if got := restarted.Session().Values["name"]; got != "Kim" {
		t.Errorf("resumed name = %v, want Kim", got)
	}
}
