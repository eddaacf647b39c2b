package admin

import (
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/draftform/pkg/auth"
	"github.com/vango-dev/draftform/pkg/features/form"
	"github.com/vango-dev/draftform/pkg/telemetry"
	"github.com/vango-dev/draftform/pkg/users"
)

// BuildFunc creates the live screen for screenID operated by actor.
type BuildFunc func(screenID string, actor auth.Actor) *users.Screen

// kind is a registered screen name.
type kind struct {
	resource string
	build    BuildFunc
}

// Server exposes admin screens over HTTP.
//
// Every actor gets its own instance of a screen, keyed by actor ID and screen
// name, so two operators never edit the same session.
type Server struct {
	drafts   form.DraftStore
	kinds    map[string]kind
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
	tracing  []telemetry.TracingOption
	traced   bool

	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	mu      sync.Mutex
	entries map[string]*entry

	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithScreen registers a screen under name. resource is the permission
// resource checked before a submit.
func WithScreen(name, resource string, build BuildFunc) Option {
	return func(s *Server) {
		s.kinds[name] = kind{resource: resource, build: build}
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records HTTP metrics and serves gatherer on /metrics.
func WithMetrics(m *telemetry.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithTracing starts a server span for every request.
func WithTracing(opts ...telemetry.TracingOption) Option {
	return func(s *Server) {
		s.traced = true
		s.tracing = opts
	}
}

// WithCheckOrigin overrides the websocket origin check. The default accepts
// same-origin requests and requests without an Origin header.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// WithWriteTimeout sets the deadline for each live-update write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// New creates a server backed by drafts.
func New(drafts form.DraftStore, opts ...Option) *Server {
	s := &Server{
		drafts:       drafts,
		kinds:        make(map[string]kind),
		logger:       slog.Default(),
		entries:      make(map[string]*entry),
		writeTimeout: 10 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOriginCheck,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "admin")
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.traced {
		r.Use(telemetry.Tracing(s.tracing...))
	}
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/screens/{screen}", func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/form", s.handleGetForm)
		r.Put("/snapshot", s.handlePutSnapshot)
		r.Patch("/form", s.handlePatchForm)
		r.Post("/submit", s.handleSubmit)
		r.Delete("/draft", s.handleDeleteDraft)
		r.Get("/live", s.handleLive)
	})
	return r
}

// Close detaches every live screen and disconnects live clients. Shared
// drafts are kept so a restarted server can resume them.
func (s *Server) Close() {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range entries {
		e.close()
	}
}

// Screens returns the number of live screen instances.
func (s *Server) Screens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func screenKey(actorID, screen string) string {
	return actorID + ":" + screen
}

// lookup returns the live entry of the actor's screen, creating it on first
// use.
func (s *Server) lookup(actor auth.Actor, name string) (*entry, kind, bool) {
	k, ok := s.kinds[name]
	if !ok {
		return nil, kind{}, false
	}
	key := screenKey(actor.ID, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e, k, true
	}
	e := newEntry(k.build(key, actor))
	s.entries[key] = e
	s.logger.Debug("screen opened", "screen", key)
	return e, k, true
}

// leave removes the actor's screen. It reports false if none was live.
func (s *Server) leave(actor auth.Actor, name string) (*entry, bool) {
	key := screenKey(actor.ID, name)
	s.mu.Lock()
	e, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()
	return e, ok
}

// sameOriginCheck accepts requests whose Origin host matches the request host.
func sameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && u.Host == r.Host
}
