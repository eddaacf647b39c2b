// Package api is the HTTP client for the entity-creation service. Client
// implements form.Creator.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/draftform/pkg/features/form"
	"github.com/vango-dev/draftform/pkg/record"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 1 << 20

// IdempotencyHeader carries a fresh key for every create call.
const IdempotencyHeader = "Idempotency-Key"

// ErrNoBaseURL is returned by New when baseURL is empty.
var ErrNoBaseURL = errors.New("api: base URL is required")

// Client posts wire drafts to {baseURL}/{resource}.
type Client struct {
	baseURL  string
	resource string
	http     *http.Client
	token    string
	headers  http.Header
	newKey   func() string
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Default: a client with a
// 10 second timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http = &http.Client{Timeout: d}
		}
	}
}

// WithToken sends "Authorization: Bearer <token>" on every call.
func WithToken(token string) Option {
	return func(cl *Client) {
		cl.token = token
	}
}

// WithHeader adds a static header to every call.
func WithHeader(key, value string) Option {
	return func(cl *Client) {
		cl.headers.Add(key, value)
	}
}

// WithIdempotencyKeys overrides the key generator. Default: uuid.NewString.
func WithIdempotencyKeys(fn func() string) Option {
	return func(cl *Client) {
		if fn != nil {
			cl.newKey = fn
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// New creates a client for resource under baseURL, for example
// New("https://admin.example.com/api", "users").
func New(baseURL, resource string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrNoBaseURL
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		resource: strings.Trim(resource, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		headers:  make(http.Header),
		newKey:   uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api", "resource", c.resource)
	return c, nil
}

// URL returns the endpoint create calls are sent to.
func (c *Client) URL() string {
	if c.resource == "" {
		return c.baseURL
	}
	return c.baseURL + "/" + c.resource
}

// Create posts wire as JSON. Any HTTP response is returned as a Response,
// even a non-2xx one; only transport and encoding failures are errors.
func (c *Client) Create(ctx context.Context, wire record.Draft) (form.Response, error) {
	body, err := json.Marshal(wire)
	if err != nil {
		return form.Response{}, fmt.Errorf("api: encode draft: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(body))
	if err != nil {
		return form.Response{}, fmt.Errorf("api: build request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	key := c.newKey()
	req.Header.Set(IdempotencyHeader, key)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return form.Response{}, fmt.Errorf("api: post %s: %w", c.URL(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return form.Response{}, fmt.Errorf("api: read response: %w", err)
	}

	out := decodeResponse(resp.StatusCode, data)
	c.logger.Debug("create call finished",
		"http_status", resp.StatusCode,
		"status", out.StatusCode,
		"idempotency_key", key,
		"field_errors", len(out.FieldErrors),
	)
	return out, nil
}

// responseBody covers both error shapes the service emits.
type responseBody struct {
	StatusCode  *int              `json:"statusCode"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors"`
	Errors      []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

// decodeResponse maps a body onto form.Response. A statusCode in the body
// takes precedence over the HTTP status; unparseable bodies keep the HTTP
// status and surface the text as the message.
func decodeResponse(httpStatus int, data []byte) form.Response {
	out := form.Response{StatusCode: httpStatus}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return out
	}

	var body responseBody
	if err := json.Unmarshal(trimmed, &body); err != nil {
		if httpStatus >= 300 {
			out.Message = string(trimmed)
		}
		return out
	}

	if body.StatusCode != nil {
		out.StatusCode = *body.StatusCode
	}
	out.Message = body.Message

	fieldErrors := make(map[string]string, len(body.FieldErrors)+len(body.Errors))
	for f, msg := range body.FieldErrors {
		if f != "" {
			fieldErrors[f] = msg
		}
	}
	for _, e := range body.Errors {
		if e.Field == "" {
			if out.Message == "" {
				out.Message = e.Message
			}
			continue
		}
		if _, dup := fieldErrors[e.Field]; !dup {
			fieldErrors[e.Field] = e.Message
		}
	}
	if len(fieldErrors) > 0 {
		out.FieldErrors = fieldErrors
	}
	return out
}
