package toast

import (
	"net/http"

	"github.com/vango-dev/draftform/pkg/features/form"
)

// EventName is the live message type carrying a toast.
const EventName = "toast"

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Messages shown after a submit.
const (
	MsgCreated  = "신규 등록 성공."
	MsgRejected = "입력 내용을 확인해 주세요."
	MsgFailed   = "등록 중 오류가 발생했습니다."
	MsgBusy     = "등록이 이미 진행 중입니다."
)

// Emitter delivers an event to whoever watches a screen.
type Emitter interface {
	Emit(name string, data any)
}

// Toast is the payload of a toast event.
type Toast struct {
	Level   Type   `json:"level"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// Show emits a toast with the given level.
func Show(e Emitter, level Type, message string) {
	e.Emit(EventName, Toast{Level: level, Message: message})
}

// Success shows a success toast.
//
//	toast.Success(e, toast.MsgCreated)
func Success(e Emitter, message string) {
	Show(e, TypeSuccess, message)
}

// Error shows an error toast.
func Error(e Emitter, message string) {
	Show(e, TypeError, message)
}

// Warning shows a warning toast.
func Warning(e Emitter, message string) {
	Show(e, TypeWarning, message)
}

// Info shows an info toast.
func Info(e Emitter, message string) {
	Show(e, TypeInfo, message)
}

// WithTitle shows a toast with a title and message.
func WithTitle(e Emitter, level Type, title, message string) {
	e.Emit(EventName, Toast{Level: level, Title: title, Message: message})
}

// ForOutcome returns the toast describing a submit result. Skipped and
// dropped results produce none.
func ForOutcome(out form.Outcome) (Toast, bool) {
	if out.Dropped {
		return Toast{}, false
	}
	switch out.Status {
	case form.OutcomeSucceeded:
		return Toast{Level: TypeSuccess, Message: MsgCreated}, true
	case form.OutcomeBusy:
		return Toast{Level: TypeInfo, Message: MsgBusy}, true
	case form.OutcomeRejected:
		msg := out.Message
		if msg == "" {
			msg = MsgRejected
		}
		t := Toast{Level: TypeWarning, Message: msg}
		if out.StatusCode >= http.StatusInternalServerError {
			t.Level = TypeError
		}
		return t, true
	case form.OutcomeFailed:
		return Toast{Level: TypeError, Message: MsgFailed}, true
	}
	return Toast{}, false
}

// Notify emits the toast for out, if any.
func Notify(e Emitter, out form.Outcome) {
	if t, ok := ForOutcome(out); ok {
		e.Emit(EventName, t)
	}
}
