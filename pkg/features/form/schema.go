package form

import (
	"errors"
	"sort"

	"github.com/vango-dev/draftform/pkg/record"
)

// Result maps a field to its current error message. A field without an entry
// is valid.
type Result map[string]string

// Valid reports whether no field is failing.
func (r Result) Valid() bool {
	return len(r) == 0
}

// Clone returns a copy of r.
func (r Result) Clone() Result {
	out := make(Result, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Overlay returns a copy of r where every entry of other replaces the entry
// for the same field.
func (r Result) Overlay(other map[string]string) Result {
	out := r.Clone()
	for k, v := range other {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// Fields returns the failing field names in sorted order.
func (r Result) Fields() []string {
	fields := make([]string, 0, len(r))
	for f := range r {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Rule binds a validator to a field.
type Rule struct {
	Field     string
	Validator Validator
}

// Schema is an ordered, declarative rule set.
//
//	users := form.NewSchema().
//	    Field("name", form.Required("name is required"), form.MinLength(2, "too short")).
//	    Field("deptIdx", form.NotOneOf([]float64{0}, "pick a department"))
type Schema struct {
	rules  []Rule
	fields []string
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{}
}

// Field appends validators for name. Validators for one field run in the
// order they were added across all calls.
func (s *Schema) Field(name string, validators ...Validator) *Schema {
	seen := false
	for _, f := range s.fields {
		if f == name {
			seen = true
			break
		}
	}
	if !seen {
		s.fields = append(s.fields, name)
	}
	for _, v := range validators {
		if v == nil {
			continue
		}
		s.rules = append(s.rules, Rule{Field: name, Validator: v})
	}
	return s
}

// Fields returns the names of all fields with at least one rule, in
// declaration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Rules returns a copy of the rule list.
func (s *Schema) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Validate runs every rule against draft and reports each failing field.
// All fields are checked in one pass. Within a field the first failing rule
// in declaration order supplies the message.
func (s *Schema) Validate(draft record.Draft) Result {
	result := make(Result)
	if s == nil {
		return result
	}
	for _, rule := range s.rules {
		err := rule.Validator.Validate(draft[rule.Field])
		if err == nil {
			continue
		}
		if _, failed := result[rule.Field]; !failed {
			result[rule.Field] = messageOf(err)
		}
	}
	return result
}

func messageOf(err error) string {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}
