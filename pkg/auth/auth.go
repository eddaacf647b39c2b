package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vango-dev/draftform/pkg/features/form"
)

// ErrUnauthorized is returned when no actor could be resolved.
// This typically triggers a 401 response.
var ErrUnauthorized = errors.New("unauthorized: authentication required")

// ErrForbidden is returned when the actor lacks a permission.
// This typically triggers a 403 response.
var ErrForbidden = errors.New("forbidden: insufficient permissions")

// Operation is one column of the CRUD permission matrix.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Actor is the operator of an admin screen.
//
// Permissions hold "<resource>:<operation>" grants. "<resource>:*" grants
// every operation on a resource, "*" grants everything.
type Actor struct {
	ID          string
	OrgCode     string
	OrgName     string
	Permissions []string
}

// Can reports whether the actor may perform op on resource.
func (a Actor) Can(resource string, op Operation) bool {
	want := resource + ":" + string(op)
	wildcard := resource + ":*"
	for _, p := range a.Permissions {
		switch p {
		case "*", want, wildcard:
			return true
		}
	}
	return false
}

// CanCreate reports whether the actor may create resource. A screen shown to
// an actor without it is read-only.
func (a Actor) CanCreate(resource string) bool {
	return a.Can(resource, OpCreate)
}

// FormActor returns the identity handed to computed form fields.
func (a Actor) FormActor() form.Actor {
	return form.Actor{ID: a.ID, OrgCode: a.OrgCode, OrgName: a.OrgName}
}

type ctxKey struct{}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the actor stored by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}

// Require returns the actor or ErrUnauthorized.
func Require(ctx context.Context) (Actor, error) {
	a, ok := FromContext(ctx)
	if !ok {
		return Actor{}, ErrUnauthorized
	}
	return a, nil
}

// RequirePermission returns the actor if it may perform op on resource.
func RequirePermission(ctx context.Context, resource string, op Operation) (Actor, error) {
	a, err := Require(ctx)
	if err != nil {
		return Actor{}, err
	}
	if !a.Can(resource, op) {
		return a, ErrForbidden
	}
	return a, nil
}

// StatusCode returns the HTTP status code for an auth error.
// Returns (statusCode, true) for auth errors, (0, false) otherwise.
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, true
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, true
	default:
		return 0, false
	}
}

// IsAuthError returns true if the error is an authentication or authorization error.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
