package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/draftform/pkg/features/form"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(WithRegistry(prometheus.NewRegistry()))
}

func TestObserveSubmit(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveSubmit("admin:users:create", form.OutcomeSucceeded, 20*time.Millisecond)
	m.ObserveSubmit("admin:users:create", form.OutcomeRejected, 10*time.Millisecond)
	m.ObserveSubmit("admin:users:create", form.OutcomeSkipped, 0)
	m.ObserveSubmit("admin:users:create", form.OutcomeBusy, 0)

	for _, status := range []form.OutcomeStatus{form.OutcomeSucceeded, form.OutcomeRejected, form.OutcomeSkipped, form.OutcomeBusy} {
		got := metricCounterValue(t, m.submissions.WithLabelValues("create", status.String()))
		if got != 1 {
			t.Errorf("submissions{outcome=%s} = %v, want 1", status, got)
		}
	}
	if got := metricHistogramCount(t, m.submitDuration.WithLabelValues("create")); got != 2 {
		t.Errorf("submit duration samples = %d, want 2 (skipped and busy never call create)", got)
	}
}

func TestObserveDraftWrite(t *testing.T) {
	m := newTestMetrics(t)
	m.ObserveDraftWrite("users")
	m.ObserveDraftWrite("admin:users")

	if got := metricCounterValue(t, m.draftWrites.WithLabelValues("users")); got != 2 {
		t.Errorf("draft writes = %v, want 2", got)
	}
}

func TestNamespaceAndConstLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(
		WithRegistry(reg),
		WithNamespace("acme"),
		WithSubsystem("forms"),
		WithConstLabels(prometheus.Labels{"env": "test"}),
		WithBuckets([]float64{0.1, 1}),
	)
	m.ObserveDraftWrite("users")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() != "acme_forms_draft_writes_total" {
			continue
		}
		found = true
		labels := f.GetMetric()[0].GetLabel()
		var env string
		for _, l := range labels {
			if l.GetName() == "env" {
				env = l.GetValue()
			}
		}
		if env != "test" {
			t.Errorf("const label env = %q, want test", env)
		}
	}
	if !found {
		t.Error("acme_forms_draft_writes_total not registered")
	}
}

func TestLiveConnected(t *testing.T) {
	m := newTestMetrics(t)
	done1 := m.LiveConnected()
	done2 := m.LiveConnected()
	done1()

	if got := metricGaugeValue(t, m.liveClients); got != 1 {
		t.Errorf("live clients = %v, want 1", got)
	}
	done2()
	if got := metricGaugeValue(t, m.liveClients); got != 0 {
		t.Errorf("live clients = %v, want 0", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := newTestMetrics(t)
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/screens/{screen}/form", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/screens/users/form", "/screens/roles/form", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := metricCounterValue(t, m.requests.WithLabelValues("/screens/{screen}/form", "GET", "418")); got != 2 {
		t.Errorf("requests for pattern = %v, want 2", got)
	}
	if got := metricCounterValue(t, m.requests.WithLabelValues("unmatched", "GET", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
	if got := metricHistogramCount(t, m.requestDuration.WithLabelValues("/screens/{screen}/form")); got != 2 {
		t.Errorf("duration samples = %d, want 2", got)
	}
}

func TestMiddlewareAllowsWebsocketUpgrade(t *testing.T) {
	m := newTestMetrics(t)
	upgrader := websocket.Upgrader{}

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/live", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("hello"))
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	if string(msg) != "hello" {
		t.Errorf("message = %q, want hello", msg)
	}
}

func TestScreenLabel(t *testing.T) {
	cases := map[string]string{
		"users":              "users",
		"admin:users":        "users",
		"admin:users:create": "create",
		"":                   "",
	}
	for in, want := range cases {
		if got := screenLabel(in); got != want {
			t.Errorf("screenLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
