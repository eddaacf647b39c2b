package form

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/draftform/pkg/record"
)

func testPipeline() Pipeline {
	return Pipeline{
		DateField("birthDate"),
		DateField("joiningDate"),
		DateTimeField("regDt"),
		DateTimeField("passwordChangedAt"),
	}
}

func TestTransformFormatsDateFields(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	draft := record.Draft{
		"name":        "Kim Dealer",
		"birthDate":   time.Date(1990, 5, 17, 23, 30, 0, 0, seoul),
		"joiningDate": "2024-03-01T10:00:00+09:00",
		"regDt":       "2024-03-01",
		"deptIdx":     3,
	}

	got := testPipeline().Transform(draft)
	want := record.Draft{
		"name":              "Kim Dealer",
		"birthDate":         "1990-05-17",
		"joiningDate":       "2024-03-01",
		"regDt":             "2024-03-01 00:00:00",
		"passwordChangedAt": nil,
		"deptIdx":           3,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Transform mismatch (-want +got):\n%s", diff)
	}
	if _, ok := draft["passwordChangedAt"]; ok {
		t.Error("Transform must not modify its input")
	}
}

func TestTransformEmptyMarker(t *testing.T) {
	got := testPipeline().Transform(record.Draft{
		"birthDate":   "",
		"joiningDate": "not a date",
		"regDt":       nil,
	})
	for _, f := range testPipeline().Fields() {
		if v, ok := got[f]; !ok || v != nil {
			t.Errorf("%s = %#v, want explicit nil", f, v)
		}
	}
}

func TestTransformIdempotent(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	drafts := []record.Draft{
		{},
		{"birthDate": now, "regDt": now, "meta": "x"},
		{"birthDate": "2025-01-02 03:04:05", "regDt": "2025-01-02T03:04:05Z"},
		{"joiningDate": &now, "unknown": 7},
		{"birthDate": "garbage"},
	}

	p := testPipeline()
	for i, d := range drafts {
		once := p.Transform(d)
		twice := p.Transform(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("draft %d: transform not idempotent (-once +twice):\n%s", i, diff)
		}
	}
}

func TestParseTime(t *testing.T) {
	cases := map[string]bool{
		"2024-03-01":                true,
		"2024-03-01 10:11:12":       true,
		"2024-03-01T10:11:12":       true,
		"2024-03-01T10:11":          true,
		"2024-03-01T10:11:12+09:00": true,
		"":                          false,
		"03/01/2024":                false,
	}
	for in, ok := range cases {
		if _, got := ParseTime(in); got != ok {
			t.Errorf("ParseTime(%q) ok = %v, want %v", in, got, ok)
		}
	}
	if _, ok := ParseTime(time.Time{}); ok {
		t.Error("zero time should be treated as absent")
	}
	var nilTime *time.Time
	if _, ok := ParseTime(nilTime); ok {
		t.Error("nil *time.Time should be treated as absent")
	}
}
