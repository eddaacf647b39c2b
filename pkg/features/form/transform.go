package form

import (
	"strings"
	"time"

	"github.com/vango-dev/draftform/pkg/record"
)

// Wire layouts for date-like fields.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// inputLayouts are the editing representations accepted by date transforms,
// tried in order.
var inputLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	DateTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	DateLayout,
}

// FieldTransform rewrites one field into its wire representation.
// Fn receives the raw value (nil when absent) and must be a fixed point on
// its own output.
type FieldTransform struct {
	Field string
	Fn    func(value any) any
}

// Pipeline is an ordered list of field transforms applied at submit time.
type Pipeline []FieldTransform

// Transform returns the wire form of draft. draft itself is not modified.
// Fields without a transform pass through unchanged.
func (p Pipeline) Transform(draft record.Draft) record.Draft {
	out := draft.Clone()
	for _, ft := range p {
		if ft.Fn == nil {
			continue
		}
		out[ft.Field] = ft.Fn(draft[ft.Field])
	}
	return out
}

// Fields lists the names the pipeline rewrites.
func (p Pipeline) Fields() []string {
	out := make([]string, 0, len(p))
	for _, ft := range p {
		out = append(out, ft.Field)
	}
	return out
}

// DateField formats field as DateLayout. Absent, blank and unparseable values
// become nil.
func DateField(field string) FieldTransform {
	return FieldTransform{Field: field, Fn: formatTime(DateLayout)}
}

// DateTimeField formats field as DateTimeLayout. Absent, blank and unparseable
// values become nil.
func DateTimeField(field string) FieldTransform {
	return FieldTransform{Field: field, Fn: formatTime(DateTimeLayout)}
}

func formatTime(layout string) func(any) any {
	return func(value any) any {
		t, ok := ParseTime(value)
		if !ok {
			return nil
		}
		return t.Format(layout)
	}
}

// ParseTime reads a date-like editing value. Times keep their location;
// strings without an offset are read as UTC.
func ParseTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v, true
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range inputLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
