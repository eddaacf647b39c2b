package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/draftform/pkg/record"
)

// fakeCreator records every call and answers with resp/err.
type fakeCreator struct {
	mu    sync.Mutex
	calls []record.Draft
	resp  Response
	err   error

	// gate, when set, blocks Create until closed.
	gate chan struct{}
	// started is signalled when Create is entered.
	started chan struct{}
}

func (f *fakeCreator) Create(ctx context.Context, wire record.Draft) (Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, wire.Clone())
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.resp, f.err
}

func (f *fakeCreator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// countingObserver counts submit outcomes.
type countingObserver struct {
	mu       sync.Mutex
	outcomes []OutcomeStatus
	writes   int
}

func (o *countingObserver) ObserveDraftWrite(string) {
	o.mu.Lock()
	o.writes++
	o.mu.Unlock()
}

func (o *countingObserver) ObserveSubmit(_ string, s OutcomeStatus, _ time.Duration) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, s)
	o.mu.Unlock()
}

func fillValid(t *testing.T, s *Synchronizer) {
	t.Helper()
	for _, kv := range []struct {
		field string
		value any
	}{
		{"name", "Kim Dealer"},
		{"phoneNumber", "010-1234-5678"},
		{"userId", "kim01"},
		{"deptIdx", 3},
		{"passwordUpdate", "1"},
	} {
		if _, err := s.Apply(kv.field, kv.value); err != nil {
			t.Fatalf("Apply(%s): %v", kv.field, err)
		}
	}
}

func newTestController(creator Creator, opts ...ControllerOption) (*Synchronizer, *Controller) {
	syncer := NewSynchronizer("users:create", testSeeder(), newRecordingDrafts(), WithActor(testActor))
	syncer.Observe(Snapshot{})
	opts = append([]ControllerOption{WithPipeline(testPipeline())}, opts...)
	return syncer, NewController(syncer, creator, opts...)
}

func TestSubmitSkippedWhenInvalid(t *testing.T) {
	creator := &fakeCreator{resp: Response{StatusCode: 200}}
	syncer, ctrl := newTestController(creator)

	syncer.Apply("name", "A")

	s := syncer.Session()
	if s.Errors["name"] != "name min" || s.Valid() {
		t.Fatalf("expected min-length error on name, got %v", s.Errors)
	}

	out := ctrl.Submit(context.Background())
	if out.Status != OutcomeSkipped {
		t.Errorf("Status = %v, want skipped", out.Status)
	}
	if creator.count() != 0 {
		t.Errorf("create called %d times for an invalid session", creator.count())
	}
	if ctrl.Busy() {
		t.Error("blocked submit must not show a busy state")
	}
}

func TestSubmitSkippedWhenPristine(t *testing.T) {
	creator := &fakeCreator{resp: Response{StatusCode: 200}}
	_, ctrl := newTestController(creator)

	if out := ctrl.Submit(context.Background()); out.Status != OutcomeSkipped {
		t.Errorf("Status = %v, want skipped", out.Status)
	}
	if creator.count() != 0 {
		t.Error("pristine session must not be sent")
	}
}

func TestSubmitNeverSendsInvalidDrafts(t *testing.T) {
	// Each case breaks exactly one rule of an otherwise valid record.
	broken := []struct {
		field string
		value any
	}{
		{"name", ""},
		{"name", "A"},
		{"name", "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"},
		{"phoneNumber", ""},
		{"phoneNumber", "010-abc"},
		{"userId", "  "},
		{"userId", nil},
		{"deptIdx", 0},
		{"deptIdx", "0"},
		{"deptIdx", nil},
	}

	for _, tc := range broken {
		t.Run(fmt.Sprintf("%s=%v", tc.field, tc.value), func(t *testing.T) {
			creator := &fakeCreator{resp: Response{StatusCode: 200}}
			syncer, ctrl := newTestController(creator)
			fillValid(t, syncer)
			syncer.Apply(tc.field, tc.value)

			if out := ctrl.Submit(context.Background()); out.Status != OutcomeSkipped {
				t.Errorf("Status = %v, want skipped", out.Status)
			}
			if creator.count() != 0 {
				t.Error("create must not be called")
			}
		})
	}
}

func TestSubmitSuccess(t *testing.T) {
	creator := &fakeCreator{resp: Response{StatusCode: 200}}
	var refreshed atomic.Int32
	syncer, ctrl := newTestController(creator, OnSuccess(func(context.Context, Outcome) {
		refreshed.Add(1)
	}))

	fillValid(t, syncer)
	syncer.Apply("meta", map[string]any{"tab": "basic"})

	out := ctrl.Submit(context.Background())
	if out.Status != OutcomeSucceeded {
		t.Fatalf("Status = %v (%v), want succeeded", out.Status, out.Err)
	}
	if creator.count() != 1 {
		t.Fatalf("create called %d times, want 1", creator.count())
	}
	if refreshed.Load() != 1 {
		t.Error("success callback not invoked")
	}

	wire := creator.calls[0]
	if _, ok := wire["meta"]; ok {
		t.Error("meta must never be transmitted")
	}
	want := record.Draft{
		"name":              "Kim Dealer",
		"phoneNumber":       "010-1234-5678",
		"userId":            "kim01",
		"deptIdx":           3,
		"passwordUpdate":    "1",
		"delYn":             "N",
		"dealerCd":          "D001",
		"birthDate":         nil,
		"joiningDate":       nil,
		"regDt":             nil,
		"passwordChangedAt": nil,
	}
	if diff := cmp.Diff(want, wire); diff != "" {
		t.Errorf("wire draft mismatch (-want +got):\n%s", diff)
	}

	s := syncer.Session()
	if !s.Dirty || s.Values["name"] != "Kim Dealer" {
		t.Error("success must not reset the session")
	}
	if _, ok := s.Values["birthDate"]; ok {
		t.Error("transform leaked into the live session")
	}
	if ctrl.State() != StateIdle {
		t.Errorf("State after success = %v, want idle", ctrl.State())
	}
}

func TestSubmitRejectedOverlaysServerErrors(t *testing.T) {
	creator := &fakeCreator{resp: Response{
		StatusCode:  409,
		FieldErrors: map[string]string{"userId": "duplicate"},
	}}
	syncer, ctrl := newTestController(creator)
	fillValid(t, syncer)

	out := ctrl.Submit(context.Background())
	if out.Status != OutcomeRejected || out.Dropped {
		t.Fatalf("Status = %v dropped=%v, want rejected", out.Status, out.Dropped)
	}

	s := syncer.Session()
	if s.Errors["userId"] != "duplicate" {
		t.Errorf("userId error = %q, want duplicate", s.Errors["userId"])
	}
	if ctrl.Busy() {
		t.Error("Submitting must be cleared after rejection")
	}

	// The form stays editable and the next edit recomputes client errors.
	s, err := syncer.Apply("userId", "kim02")
	if err != nil {
		t.Fatalf("Apply after rejection: %v", err)
	}
	if !s.Valid() {
		t.Errorf("server error should be overwritten by the next edit, got %v", s.Errors)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	creator := &fakeCreator{err: errors.New("connection refused")}
	syncer, ctrl := newTestController(creator)
	fillValid(t, syncer)

	out := ctrl.Submit(context.Background())
	if out.Status != OutcomeFailed || out.Err == nil {
		t.Fatalf("Status = %v err=%v, want failed", out.Status, out.Err)
	}
	if ctrl.State() != StateIdle {
		t.Error("controller stuck after transport failure")
	}
	if !syncer.Session().Valid() {
		t.Error("transport failure must not invent field errors")
	}
}

func TestSubmitRecoversPanic(t *testing.T) {
	creator := CreatorFunc(func(context.Context, record.Draft) (Response, error) {
		panic("boom")
	})
	syncer, ctrl := newTestController(creator)
	fillValid(t, syncer)

	out := ctrl.Submit(context.Background())
	if out.Status != OutcomeFailed {
		t.Fatalf("Status = %v, want failed", out.Status)
	}
	if ctrl.Busy() {
		t.Error("Submitting must be cleared after a panic")
	}
}

func TestSubmitRejectsConcurrentSubmit(t *testing.T) {
	creator := &fakeCreator{
		resp:    Response{StatusCode: 200},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	syncer, ctrl := newTestController(creator)
	fillValid(t, syncer)

	done := make(chan Outcome)
	go func() { done <- ctrl.Submit(context.Background()) }()
	<-creator.started

	if !ctrl.Busy() || ctrl.State() != StateSubmitting {
		t.Errorf("State during call = %v, want submitting", ctrl.State())
	}

	var wg sync.WaitGroup
	var busy atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ctrl.Submit(context.Background()).Status == OutcomeBusy {
				busy.Add(1)
			}
		}()
	}
	wg.Wait()
	close(creator.gate)

	if out := <-done; out.Status != OutcomeSucceeded {
		t.Errorf("first submit = %v, want succeeded", out.Status)
	}
	if busy.Load() != 8 {
		t.Errorf("%d of 8 rapid submits were rejected as busy", busy.Load())
	}
	if creator.count() != 1 {
		t.Errorf("create called %d times, want exactly 1", creator.count())
	}
}

func TestSubmitResultDroppedAfterDetach(t *testing.T) {
	creator := &fakeCreator{
		resp:    Response{StatusCode: 400, FieldErrors: map[string]string{"userId": "duplicate"}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	var refreshed atomic.Int32
	syncer, ctrl := newTestController(creator, OnSuccess(func(context.Context, Outcome) { refreshed.Add(1) }))
	fillValid(t, syncer)

	done := make(chan Outcome)
	go func() { done <- ctrl.Submit(context.Background()) }()
	<-creator.started

	syncer.Detach()
	close(creator.gate)

	out := <-done
	if !out.Dropped {
		t.Error("result for a detached session must be dropped")
	}
	if syncer.Session().Errors["userId"] != "" {
		t.Error("dropped result must not touch the session")
	}
	if ctrl.Busy() {
		t.Error("controller stuck after dropped result")
	}
}

func TestSubmitCustomSuccessStatusAndObserver(t *testing.T) {
	obs := &countingObserver{}
	creator := &fakeCreator{resp: Response{StatusCode: 201}}
	syncer, ctrl := newTestController(creator,
		WithSuccessStatus(func(code int) bool { return code >= 200 && code < 300 }),
		WithSubmitObserver(obs),
	)
	fillValid(t, syncer)

	if out := ctrl.Submit(context.Background()); out.Status != OutcomeSucceeded {
		t.Errorf("Status = %v, want succeeded for 201", out.Status)
	}
	if diff := cmp.Diff([]OutcomeStatus{OutcomeSucceeded}, obs.outcomes); diff != "" {
		t.Errorf("observed outcomes (-want +got):\n%s", diff)
	}
	if got := ctrl.Last().StatusCode; got != 201 {
		t.Errorf("Last().StatusCode = %d", got)
	}
}

func TestSubmitStateTransitions(t *testing.T) {
	creator := &fakeCreator{resp: Response{StatusCode: 500}}
	syncer, ctrl := newTestController(creator)
	fillValid(t, syncer)

	var states []State
	ctrl.Subscribe(func(s State) { states = append(states, s) })
	ctrl.Submit(context.Background())

	want := []State{StateSubmitting, StateFailed, StateIdle}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("transitions (-want +got):\n%s", diff)
	}
}
