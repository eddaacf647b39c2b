package form

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/draftform/pkg/record"
)

const tracerName = "github.com/vango-dev/draftform/pkg/features/form"

// State is the submission state of a Controller.
type State int32

const (
	// StateIdle accepts a new submit.
	StateIdle State = iota

	// StateSubmitting indicates a create call is in flight.
	StateSubmitting

	// StateSucceeded is held while success handling runs.
	StateSucceeded

	// StateFailed is held while failure handling runs.
	StateFailed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OutcomeStatus classifies the result of a Submit call.
type OutcomeStatus int

const (
	// OutcomeSkipped means the gate (dirty and valid) did not pass, or there
	// is no live session. Nothing was sent.
	OutcomeSkipped OutcomeStatus = iota

	// OutcomeBusy means another submit for the same session was in flight.
	OutcomeBusy

	// OutcomeSucceeded means the create call returned a success status.
	OutcomeSucceeded

	// OutcomeRejected means the create call returned a non-success status.
	OutcomeRejected

	// OutcomeFailed means the create call returned an error or panicked.
	OutcomeFailed
)

// String returns a human-readable name for the status.
func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeBusy:
		return "busy"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Response is what the entity-creation collaborator reports back.
type Response struct {
	StatusCode  int
	FieldErrors map[string]string
	Message     string
}

// Creator transmits a wire draft. An error means the call itself failed
// (network, decoding); a rejection is a Response with a non-success status.
type Creator interface {
	Create(ctx context.Context, wire record.Draft) (Response, error)
}

// CreatorFunc adapts a function to Creator.
type CreatorFunc func(ctx context.Context, wire record.Draft) (Response, error)

func (f CreatorFunc) Create(ctx context.Context, wire record.Draft) (Response, error) {
	return f(ctx, wire)
}

// Outcome describes one Submit call.
type Outcome struct {
	Status      OutcomeStatus
	StatusCode  int
	FieldErrors map[string]string
	Message     string
	Err         error

	// Wire is the draft that was transmitted, nil if nothing was sent.
	Wire record.Draft

	// Dropped is set when the session was detached or re-seeded while the
	// call was in flight; the result was not applied to any session.
	Dropped bool
}

// Controller gates, transforms and transmits the session of one Synchronizer.
// At most one submit is in flight at a time.
type Controller struct {
	sync     *Synchronizer
	creator  Creator
	pipeline Pipeline
	strip    []string
	success  func(statusCode int) bool

	onSuccess func(ctx context.Context, out Outcome)

	observer Observer
	logger   *slog.Logger
	tracer   trace.Tracer

	state atomic.Int32

	mu        sync.Mutex
	last      Outcome
	listeners map[uint64]func(State)
	nextID    uint64
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPipeline sets the transforms applied to the wire draft.
func WithPipeline(p Pipeline) ControllerOption {
	return func(c *Controller) {
		c.pipeline = p
	}
}

// WithStripFields names presentation-only fields that are never transmitted.
// Default: "meta".
func WithStripFields(fields ...string) ControllerOption {
	return func(c *Controller) {
		c.strip = fields
	}
}

// WithSuccessStatus overrides the success predicate. Default: 200 only.
func WithSuccessStatus(fn func(statusCode int) bool) ControllerOption {
	return func(c *Controller) {
		if fn != nil {
			c.success = fn
		}
	}
}

// OnSuccess registers the refresh/notify callback run after a successful
// create on a still-live session.
func OnSuccess(fn func(ctx context.Context, out Outcome)) ControllerOption {
	return func(c *Controller) {
		c.onSuccess = fn
	}
}

// WithSubmitObserver sets the metrics observer.
func WithSubmitObserver(o Observer) ControllerOption {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithSubmitLogger sets the logger. Default: slog.Default().
func WithSubmitLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer. Default: the global OpenTelemetry provider.
func WithTracer(t trace.Tracer) ControllerOption {
	return func(c *Controller) {
		if t != nil {
			c.tracer = t
		}
	}
}

// NewController creates a Controller for syncer that transmits through creator.
func NewController(syncer *Synchronizer, creator Creator, opts ...ControllerOption) *Controller {
	c := &Controller{
		sync:      syncer,
		creator:   creator,
		strip:     []string{"meta"},
		success:   func(code int) bool { return code == http.StatusOK },
		observer:  nopObserver{},
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		listeners: make(map[uint64]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "submit", "screen", syncer.ScreenID())
	return c
}

// State returns the current submission state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Busy reports whether a submit is in flight. UIs use it as the busy indicator.
func (c *Controller) Busy() bool {
	return c.State() != StateIdle
}

// Last returns the outcome of the most recent submit that reached the
// create call.
func (c *Controller) Last() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Subscribe registers fn to be told about every state transition.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Submit commits the live session if it is dirty and valid.
//
// A blocked gate returns OutcomeSkipped without touching any state. A second
// call while one is in flight returns OutcomeBusy. Otherwise the create call
// runs once and the controller is back in StateIdle when Submit returns,
// whatever happened.
func (c *Controller) Submit(ctx context.Context) (out Outcome) {
	session, gen, ok := c.sync.checkout()
	if !ok {
		return Outcome{Status: OutcomeSkipped, Message: "no live session"}
	}
	if !session.Dirty || !session.Valid() {
		return Outcome{Status: OutcomeSkipped}
	}
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateSubmitting)) {
		return Outcome{Status: OutcomeBusy}
	}
	c.notify(StateSubmitting)

	screenID := c.sync.ScreenID()
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "form.submit", trace.WithAttributes(
		attribute.String("form.screen", screenID),
		attribute.Int64("form.generation", int64(gen)),
	))

	defer func() {
		c.state.Store(int32(StateIdle))
		c.notify(StateIdle)

		c.mu.Lock()
		c.last = out
		c.mu.Unlock()

		c.observer.ObserveSubmit(screenID, out.Status, time.Since(start))
		span.SetAttributes(
			attribute.String("form.outcome", out.Status.String()),
			attribute.Bool("form.dropped", out.Dropped),
		)
		if out.Status == OutcomeFailed {
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, out.Err.Error())
		}
		span.End()
	}()

	wire := c.pipeline.Transform(session.Values.Without(c.strip...))
	resp, err := c.call(ctx, wire)

	if err != nil {
		c.transition(StateFailed)
		out = Outcome{Status: OutcomeFailed, Err: err, Message: err.Error(), Wire: wire}
		out.Dropped = !c.sync.current(gen)
		c.logger.Error("create call failed", "error", err, "dropped", out.Dropped)
		return out
	}

	out = Outcome{
		StatusCode:  resp.StatusCode,
		FieldErrors: resp.FieldErrors,
		Message:     resp.Message,
		Wire:        wire,
	}

	if c.success(resp.StatusCode) {
		c.transition(StateSucceeded)
		out.Status = OutcomeSucceeded
		if !c.sync.current(gen) {
			out.Dropped = true
			c.logger.Info("create succeeded for detached session", "status", resp.StatusCode)
			return out
		}
		c.logger.Info("create succeeded", "status", resp.StatusCode)
		if c.onSuccess != nil {
			c.onSuccess(ctx, out)
		}
		return out
	}

	c.transition(StateFailed)
	out.Status = OutcomeRejected
	out.Dropped = !c.sync.overlayErrors(gen, resp.FieldErrors)
	c.logger.Warn("create rejected",
		"status", resp.StatusCode,
		"fields", len(resp.FieldErrors),
		"dropped", out.Dropped,
	)
	return out
}

// call invokes the creator and turns a panic into an error.
func (c *Controller) call(ctx context.Context, wire record.Draft) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("form: create call panicked: %v", r)
		}
	}()
	if c.creator == nil {
		return Response{}, fmt.Errorf("form: no creator configured")
	}
	return c.creator.Create(ctx, wire)
}

func (c *Controller) transition(s State) {
	c.state.Store(int32(s))
	c.notify(s)
}

func (c *Controller) notify(s State) {
	c.mu.Lock()
	fns := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
