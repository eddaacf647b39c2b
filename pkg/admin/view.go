package admin

import (
	"github.com/vango-dev/draftform/pkg/features/form"
	"github.com/vango-dev/draftform/pkg/record"
	"github.com/vango-dev/draftform/pkg/toast"
	"github.com/vango-dev/draftform/pkg/users"
)

// formView is the JSON shape of a screen's state.
type formView struct {
	Values record.Draft `json:"values"`
	Errors form.Result  `json:"errors"`
	Dirty  bool         `json:"dirty"`
	Valid  bool         `json:"valid"`
	Seeded bool         `json:"seeded"`
	State  string       `json:"state"`
	Header string       `json:"header,omitempty"`
}

func viewOf(s form.Session, seeded bool, state form.State) formView {
	values := s.Values
	if values == nil {
		values = record.Draft{}
	}
	errs := s.Errors
	if errs == nil {
		errs = form.Result{}
	}
	return formView{
		Values: values,
		Errors: errs,
		Dirty:  s.Dirty,
		Valid:  s.Valid(),
		Seeded: seeded,
		State:  state.String(),
		Header: users.SummaryOf(values).Header(),
	}
}

// outcomeView is the JSON shape of a submit result.
type outcomeView struct {
	Status      string            `json:"status"`
	StatusCode  int               `json:"statusCode,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Message     string            `json:"message,omitempty"`
	Dropped     bool              `json:"dropped,omitempty"`
	Wire        record.Draft      `json:"wire,omitempty"`
	Form        formView          `json:"form"`
}

func outcomeOf(out form.Outcome, view formView) outcomeView {
	return outcomeView{
		Status:      out.Status.String(),
		StatusCode:  out.StatusCode,
		FieldErrors: out.FieldErrors,
		Message:     out.Message,
		Dropped:     out.Dropped,
		Wire:        out.Wire,
		Form:        view,
	}
}

// liveMessage is pushed to websocket clients.
type liveMessage struct {
	Type    string       `json:"type"`
	Form    *formView    `json:"form,omitempty"`
	Outcome *outcomeView `json:"outcome,omitempty"`
	Toast   *toast.Toast `json:"toast,omitempty"`
}
