package telemetry

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/draftform/pkg/auth"
)

// Default tracer name for draftform services.
const defaultTracerName = "draftform"

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "draftform").
	TracerName string

	// IncludeActor includes the actor ID in traces if available.
	// May contain sensitive information - disabled by default.
	IncludeActor bool

	// Filter determines which requests to trace.
	// Return true to trace the request, false to skip.
	// If nil, all requests are traced.
	Filter func(r *http.Request) bool

	// AttributeExtractor extracts custom attributes from the request.
	AttributeExtractor func(r *http.Request) []attribute.KeyValue

	// Provider overrides the global tracer provider.
	Provider trace.TracerProvider

	// Propagator overrides the global text map propagator.
	Propagator propagation.TextMapPropagator
}

// TracingOption configures the tracing middleware.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithIncludeActor enables including the actor ID in traces.
func WithIncludeActor(include bool) TracingOption {
	return func(c *TracingConfig) {
		c.IncludeActor = include
	}
}

// WithRequestFilter sets a filter function for requests.
func WithRequestFilter(filter func(r *http.Request) bool) TracingOption {
	return func(c *TracingConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(r *http.Request) []attribute.KeyValue) TracingOption {
	return func(c *TracingConfig) {
		c.AttributeExtractor = extractor
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.Provider = tp
	}
}

// WithPropagator sets the propagator used to extract incoming trace context.
func WithPropagator(p propagation.TextMapPropagator) TracingOption {
	return func(c *TracingConfig) {
		c.Propagator = p
	}
}

// Tracer returns the tracer that submit spans should use.
func Tracer(opts ...TracingOption) trace.Tracer {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	return config.tracer()
}

func (c TracingConfig) tracer() trace.Tracer {
	if c.Provider != nil {
		return c.Provider.Tracer(c.TracerName)
	}
	return otel.Tracer(c.TracerName)
}

// Tracing creates middleware that starts a server span for every request.
//
// Incoming trace context is extracted with the global propagator, so a
// browser or gateway that sends traceparent joins the same trace. Responses
// with a 5xx status mark the span as an error.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in main() before serving.
func Tracing(opts ...TracingOption) func(http.Handler) http.Handler {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	tracer := config.tracer()
	propagator := config.Propagator
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Filter != nil && !config.Filter(r) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, fmt.Sprintf("HTTP %s", r.Method),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
				),
			)
			defer span.End()

			if config.IncludeActor {
				if actor, ok := auth.FromContext(r.Context()); ok {
					span.SetAttributes(attribute.String("draftform.actor_id", actor.ID))
				}
			}
			if config.AttributeExtractor != nil {
				span.SetAttributes(config.AttributeExtractor(r)...)
			}

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			route := routePattern(r)
			span.SetName(fmt.Sprintf("HTTP %s %s", r.Method, route))
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", rec.status),
			)
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
		})
	}
}
