package form

import (
	"github.com/vango-dev/draftform/pkg/record"
)

// Session is the live editing state of one screen: the record under edit, its
// current errors and whether the user has touched it since the last seed.
type Session struct {
	Values record.Draft
	Errors Result
	Dirty  bool
}

// Valid reports whether the session has no failing fields.
func (s Session) Valid() bool {
	return s.Errors.Valid()
}

// Clone returns a deep enough copy that callers can keep it across edits.
func (s Session) Clone() Session {
	return Session{
		Values: s.Values.Clone(),
		Errors: s.Errors.Clone(),
		Dirty:  s.Dirty,
	}
}

// Snapshot is the canonical upstream entity for a screen. Key identifies the
// snapshot; a synchronizer re-seeds only when Key changes.
type Snapshot struct {
	Key    string
	Values record.Draft
}

// Actor is the identity of the user operating the screen. It is read-only
// input to computed fields.
type Actor struct {
	ID      string
	OrgCode string
	OrgName string
}

// Computed derives one field from the merged seed values.
type Computed struct {
	Field string
	Fn    func(merged record.Draft, actor Actor) any
}

// Seeder builds a fresh Session from an upstream snapshot and a shared draft.
//
// Layers merge in increasing precedence:
//
//	Defaults -> upstream snapshot -> Presets -> shared draft -> Computed
//
// Presets are values a screen imposes on every upstream snapshot (for example a
// "none selected" sentinel). They rank below the shared draft so that an edit
// in progress for the same entity is not silently discarded on re-seed.
type Seeder struct {
	Defaults record.Draft
	Presets  record.Draft
	Computed []Computed

	// IdentityField names the primary-key field. A shared draft is only
	// merged when its identity matches the upstream snapshot's. Both being
	// absent, as in a create flow, counts as a match.
	IdentityField string

	Schema *Schema
}

// Seed replaces the whole record. The result is never dirty.
func (sd Seeder) Seed(upstream Snapshot, shared record.Draft, actor Actor) Session {
	layers := []record.Draft{sd.Defaults, upstream.Values, sd.Presets}
	if len(shared) > 0 && sd.sameEntity(upstream.Values, shared) {
		layers = append(layers, shared)
	}
	values := record.Merge(layers...)

	// Computed fields all read the same merged base.
	base := values.Clone()
	for _, c := range sd.Computed {
		if c.Fn == nil {
			continue
		}
		values[c.Field] = c.Fn(base, actor)
	}

	return Session{
		Values: values,
		Errors: sd.Schema.Validate(values),
		Dirty:  false,
	}
}

// Apply sets one field on a copy of s and revalidates. It always marks the
// session dirty, even when value equals the current one.
func (sd Seeder) Apply(s Session, field string, value any) Session {
	values := s.Values.Clone()
	values[field] = value
	return Session{
		Values: values,
		Errors: sd.Schema.Validate(values),
		Dirty:  true,
	}
}

func (sd Seeder) sameEntity(upstream, shared record.Draft) bool {
	if sd.IdentityField == "" {
		return true
	}
	up, upOK := upstream[sd.IdentityField]
	sh, shOK := shared[sd.IdentityField]
	upMissing := !upOK || record.IsEmpty(up)
	shMissing := !shOK || record.IsEmpty(sh)
	if upMissing || shMissing {
		return upMissing && shMissing
	}
	return record.ValuesEqual(up, sh)
}
