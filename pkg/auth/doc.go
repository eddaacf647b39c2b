// Package auth resolves the actor operating an admin screen and checks its
// CRUD permissions.
//
// Authentication itself happens upstream. An authenticating proxy forwards the
// actor as headers, and Middleware turns them into an Actor on the request
// context:
//
//	r := chi.NewRouter()
//	r.Use(auth.Middleware)
//	r.With(auth.RequireCreate("users")).Post("/screens/users/submit", submit)
//
// Handlers read the actor back with FromContext or Require. A screen shown to
// an actor without the create permission is read-only; submits from such an
// actor are answered with 403.
//
// Errors map to status codes with StatusCode:
//
//	if code, ok := auth.StatusCode(err); ok {
//	    w.WriteHeader(code)
//	}
package auth
