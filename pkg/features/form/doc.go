// Package form implements draft-backed record forms for admin screens.
//
// # Overview
//
// A screen edits one record at a time. Three copies of that record exist:
// the canonical upstream Snapshot, the shared draft kept in a DraftStore so
// an edit survives navigation, and the live Session the user is typing into.
// A Synchronizer reconciles them; a Controller commits the result.
//
// # Basic Usage
//
//	schema := form.NewSchema().
//	    Field("name", form.Required("name is required"), form.MinLength(2, ""), form.MaxLength(50, "")).
//	    Field("deptIdx", form.Required(""), form.NotOneOf([]float64{0}, "pick a department"))
//
//	syncer := form.NewSynchronizer("users:create", form.Seeder{
//	    Defaults: record.Draft{"passwordUpdate": "0"},
//	    Schema:   schema,
//	}, drafts)
//
//	syncer.Observe(form.Snapshot{})       // mount: seed from snapshot + draft
//	syncer.Apply("name", "Kim Dealer")    // edit: revalidate, mirror to drafts
//
//	ctrl := form.NewController(syncer, api,
//	    form.WithPipeline(form.Pipeline{form.DateField("birthDate")}),
//	)
//	out := ctrl.Submit(ctx)               // gated on dirty && valid
//
// # Validation
//
// A Schema is an ordered list of rules. Validate checks every field in one
// pass and keeps, per field, the message of the first failing rule:
//
//   - Required: non-empty value
//   - MinLength/MaxLength: string length constraints
//   - Pattern: regular expression matching
//   - NotOneOf: numeric exclusion set
//   - IsNumber: value readable as a number
//
// # Submission
//
// Submit is a no-op unless the session is dirty and valid. The wire draft is
// the session record minus presentation-only fields, passed through the
// Pipeline. A non-success response overlays its field errors on the session
// until the next edit. A panic or error from the Creator becomes
// OutcomeFailed, and the controller always returns to StateIdle.
package form
