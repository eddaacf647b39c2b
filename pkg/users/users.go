// Package users defines the "Settings / Users / Create" admin screen: its
// validation schema, seed layers, wire transforms and wiring.
package users

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/draftform/pkg/features/form"
	"github.com/vango-dev/draftform/pkg/record"
)

// Resource is the permission and API resource name of the screen.
const Resource = "users"

// Field names referenced by the screen.
const (
	FieldUserIdx              = "userIdx"
	FieldName                 = "name"
	FieldPhoneNumber          = "phoneNumber"
	FieldUserID               = "userId"
	FieldDeptIdx              = "deptIdx"
	FieldPasswordUpdate       = "passwordUpdate"
	FieldManagementDepartment = "managementDepartment"
	FieldViewPermission       = "viewPermission"
	FieldDelYn                = "delYn"
	FieldOutYn                = "outYn"
	FieldDealerCd             = "dealerCd"
	FieldDealerNm             = "dealerNm"
	FieldMeta                 = "meta"

	FieldBirthDate         = "birthDate"
	FieldJoiningDate       = "joiningDate"
	FieldOutDt             = "outDt"
	FieldResignationDate   = "resignationDate"
	FieldDelDt             = "delDt"
	FieldModDt             = "modDt"
	FieldRegDt             = "regDt"
	FieldPasswordChangedAt = "passwordChangedAt"
)

// Validation messages.
const (
	MsgNameRequired  = "사용자 이름은 필수 입니다."
	MsgNameMin       = "사용자 이름은 최소 2 글자입니다."
	MsgNameMax       = "사용자 이름은 최대 50 글자입니다."
	MsgPhoneRequired = "핸드폰 번호는 필수 입니다."
	MsgPhoneFormat   = "올바른 핸드폰 번호 형식이 아닙니다."
	MsgUserIDMissing = "사용자 ID는 필수 입니다."
	MsgDeptRequired  = "조직 선택은 필수입니다."
)

// Schema returns the validation schema of the create screen.
func Schema() *form.Schema {
	return form.NewSchema().
		Field(FieldName,
			form.Required(MsgNameRequired),
			form.MinLength(2, MsgNameMin),
			form.MaxLength(50, MsgNameMax),
		).
		Field(FieldPhoneNumber,
			form.Required(MsgPhoneRequired),
			form.Pattern(`^[\d\s-]+$`, MsgPhoneFormat),
		).
		Field(FieldUserID, form.Required(MsgUserIDMissing)).
		Field(FieldDeptIdx,
			form.Required(MsgDeptRequired),
			form.IsNumber(MsgDeptRequired),
			form.NotOneOf([]float64{0}, MsgDeptRequired),
		)
}

// Seeder returns the seed layers of the create screen.
func Seeder() form.Seeder {
	return form.Seeder{
		Defaults: record.Draft{FieldPasswordUpdate: "0"},
		Presets: record.Draft{
			FieldPasswordUpdate:       "1",
			FieldManagementDepartment: "None",
			FieldViewPermission:       "None",
			FieldDeptIdx:              0,
		},
		Computed: []form.Computed{
			{Field: FieldDelYn, Fn: flag(FieldDelDt)},
			{Field: FieldOutYn, Fn: flag(FieldOutDt)},
			{Field: FieldDealerCd, Fn: func(_ record.Draft, a form.Actor) any { return a.OrgCode }},
			{Field: FieldDealerNm, Fn: func(_ record.Draft, a form.Actor) any { return a.OrgName }},
		},
		IdentityField: FieldUserIdx,
		Schema:        Schema(),
	}
}

// flag yields "Y" when field holds a value and "N" otherwise.
func flag(field string) func(record.Draft, form.Actor) any {
	return func(m record.Draft, _ form.Actor) any {
		if v, ok := m[field]; ok && !record.IsEmpty(v) {
			return "Y"
		}
		return "N"
	}
}

// Pipeline returns the transforms applied before a create call.
func Pipeline() form.Pipeline {
	return form.Pipeline{
		form.DateField(FieldBirthDate),
		form.DateTimeField(FieldDelDt),
		form.DateField(FieldJoiningDate),
		form.DateTimeField(FieldModDt),
		form.DateField(FieldOutDt),
		form.DateTimeField(FieldRegDt),
		form.DateField(FieldResignationDate),
		form.DateTimeField(FieldPasswordChangedAt),
	}
}

// Deps are the collaborators of a screen.
type Deps struct {
	Drafts    form.DraftStore
	Creator   form.Creator
	Actor     form.Actor
	Observer  form.Observer
	Logger    *slog.Logger
	Tracer    trace.Tracer
	OnSuccess func(ctx context.Context, out form.Outcome)
}

// Screen is one live instance of the create screen.
type Screen struct {
	ID     string
	Sync   *form.Synchronizer
	Submit *form.Controller
}

// NewScreen wires a synchronizer and a submit controller for screenID.
func NewScreen(screenID string, deps Deps) *Screen {
	syncer := form.NewSynchronizer(screenID, Seeder(), deps.Drafts,
		form.WithActor(deps.Actor),
		form.WithObserver(deps.Observer),
		form.WithLogger(deps.Logger),
	)
	opts := []form.ControllerOption{
		form.WithPipeline(Pipeline()),
		form.WithStripFields(FieldMeta),
		form.WithSubmitObserver(deps.Observer),
		form.WithSubmitLogger(deps.Logger),
	}
	if deps.Tracer != nil {
		opts = append(opts, form.WithTracer(deps.Tracer))
	}
	if deps.OnSuccess != nil {
		opts = append(opts, form.OnSuccess(deps.OnSuccess))
	}
	return &Screen{
		ID:     screenID,
		Sync:   syncer,
		Submit: form.NewController(syncer, deps.Creator, opts...),
	}
}

// Summary returns the typed view of the live record.
func (s *Screen) Summary() Summary {
	return SummaryOf(s.Sync.Session().Values)
}
