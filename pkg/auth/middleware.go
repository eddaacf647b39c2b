package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// Header names resolved by FromHeaders. They are expected to be set by an
// authenticating proxy in front of the admin server.
const (
	HeaderActorID     = "X-Actor-ID"
	HeaderOrgCode     = "X-Org-Code"
	HeaderOrgName     = "X-Org-Name"
	HeaderPermissions = "X-Actor-Permissions"
)

// FromHeaders resolves the actor from request headers.
func FromHeaders(h http.Header) (Actor, error) {
	id := strings.TrimSpace(h.Get(HeaderActorID))
	if id == "" {
		return Actor{}, ErrUnauthorized
	}
	return Actor{
		ID:          id,
		OrgCode:     strings.TrimSpace(h.Get(HeaderOrgCode)),
		OrgName:     strings.TrimSpace(h.Get(HeaderOrgName)),
		Permissions: splitList(h.Get(HeaderPermissions)),
	}, nil
}

// Middleware resolves the actor of every request and rejects anonymous ones
// with 401.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := FromHeaders(r.Header)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireCreate returns middleware that answers 403 unless the actor may
// create resource. It must run after Middleware.
func RequireCreate(resource string) func(http.Handler) http.Handler {
	return RequireOperation(resource, OpCreate)
}

// RequireOperation returns middleware that answers 403 unless the actor may
// perform op on resource.
func RequireOperation(resource string, op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := RequirePermission(r.Context(), resource, op); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, ok := StatusCode(err)
	if !ok {
		code = http.StatusInternalServerError
	}
	slog.Default().Debug("request rejected", "component", "auth", "path", r.URL.Path, "status", code)
	http.Error(w, http.StatusText(code), code)
}
