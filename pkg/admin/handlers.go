package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/draftform/pkg/auth"
	"github.com/vango-dev/draftform/pkg/features/form"
	"github.com/vango-dev/draftform/pkg/record"
	"github.com/vango-dev/draftform/pkg/toast"
)

type snapshotRequest struct {
	Key    string       `json:"key"`
	Values record.Draft `json:"values"`
}

type snapshotResponse struct {
	Reseeded bool     `json:"reseeded"`
	Form     formView `json:"form"`
}

type change struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type patchRequest struct {
	Field   string   `json:"field"`
	Value   any      `json:"value"`
	Changes []change `json:"changes"`
}

func (p patchRequest) list() []change {
	if len(p.Changes) > 0 {
		return p.Changes
	}
	if p.Field == "" {
		return nil
	}
	return []change{{Field: p.Field, Value: p.Value}}
}

// resolve finds the actor and its screen entry, writing the error response
// itself when either is missing.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (auth.Actor, *entry, kind, bool) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
		return auth.Actor{}, nil, kind{}, false
	}
	name := chi.URLParam(r, "screen")
	e, k, ok := s.lookup(actor, name)
	if !ok {
		writeError(w, http.StatusNotFound, "UNKNOWN_SCREEN", "unknown screen: "+name)
		return auth.Actor{}, nil, kind{}, false
	}
	return actor, e, k, true
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	_, e, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.view())
}

func (s *Server) handlePutSnapshot(w http.ResponseWriter, r *http.Request) {
	_, e, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	var req snapshotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	reseeded := e.screen.Sync.Observe(form.Snapshot{Key: req.Key, Values: req.Values})
	writeJSON(w, http.StatusOK, snapshotResponse{Reseeded: reseeded, Form: e.view()})
}

func (s *Server) handlePatchForm(w http.ResponseWriter, r *http.Request) {
	_, e, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	var req patchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	changes := req.list()
	if len(changes) == 0 {
		writeError(w, http.StatusBadRequest, "NO_CHANGES", "field or changes is required")
		return
	}
	for _, c := range changes {
		if c.Field == "" {
			writeError(w, http.StatusBadRequest, "INVALID_FIELD", "change without a field name")
			return
		}
	}

	for _, c := range changes {
		if _, err := e.screen.Sync.Apply(c.Field, c.Value); err != nil {
			switch {
			case errors.Is(err, form.ErrNotSeeded):
				writeError(w, http.StatusConflict, "NOT_SEEDED", "no snapshot was assigned to this screen")
			case errors.Is(err, form.ErrDetached):
				writeError(w, http.StatusGone, "DETACHED", "screen was left")
			default:
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
			}
			return
		}
	}
	writeJSON(w, http.StatusOK, e.view())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	_, e, k, ok := s.resolve(w, r)
	if !ok {
		return
	}
	if _, err := auth.RequirePermission(r.Context(), k.resource, auth.OpCreate); err != nil {
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
		return
	}

	// The create call outlives the request: leaving the page must not cancel
	// a record that may already be on its way.
	out := e.screen.Submit.Submit(context.WithoutCancel(r.Context()))
	view := outcomeOf(out, e.view())
	e.broadcast(liveMessage{Type: "submitted", Outcome: &view})
	toast.Notify(e, out)

	s.logger.Info("submit",
		"screen", e.screen.ID,
		"outcome", out.Status.String(),
		"status", out.StatusCode,
		"dropped", out.Dropped,
	)
	writeJSON(w, submitStatus(out.Status), view)
}

func submitStatus(status form.OutcomeStatus) int {
	switch status {
	case form.OutcomeSucceeded:
		return http.StatusOK
	case form.OutcomeBusy:
		return http.StatusConflict
	case form.OutcomeSkipped, form.OutcomeRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// handleDeleteDraft is the screen exit: the session is detached first so no
// apply can write the draft back after it was reset.
func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
		return
	}
	name := chi.URLParam(r, "screen")
	if _, ok := s.kinds[name]; !ok {
		writeError(w, http.StatusNotFound, "UNKNOWN_SCREEN", "unknown screen: "+name)
		return
	}

	if e, ok := s.leave(actor, name); ok {
		e.close()
	}
	if s.drafts != nil {
		s.drafts.Reset(screenKey(actor.ID, name))
	}
	s.logger.Debug("screen left", "screen", screenKey(actor.ID, name))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	_, e, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c, ok := e.join()
	if !ok {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "screen closed"))
		return
	}
	defer e.leave(c)
	if s.metrics != nil {
		defer s.metrics.LiveConnected()()
	}

	v := e.view()
	e.broadcastTo(c, liveMessage{Type: "state", Form: &v})

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
					websocket.CloseNormalClosure) {
					s.logger.Debug("live read error", "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "screen closed"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-readerDone:
			return
		}
	}
}
