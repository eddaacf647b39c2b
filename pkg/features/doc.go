// Package features groups the building blocks of a draft-backed form screen.
//
//   - form: validation schema, seeding, draft sync and submission
//   - store: session-scoped shared drafts, optionally backed by a durable store
//
// Each subsystem is in its own sub-package:
//
//	import "github.com/vango-dev/draftform/pkg/features/form"
//	import "github.com/vango-dev/draftform/pkg/features/store"
package features
