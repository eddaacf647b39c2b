package form

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/draftform/pkg/record"
)

func testSchema() *Schema {
	return NewSchema().
		Field("name", Required("name required"), MinLength(2, "name min"), MaxLength(50, "name max")).
		Field("phoneNumber", Required("phone required"), Pattern(`^[\d\s-]+$`, "phone format")).
		Field("userId", Required("userId required")).
		Field("deptIdx", Required("dept required"), NotOneOf([]float64{0}, "dept required"))
}

func TestSchemaValidateReportsEveryField(t *testing.T) {
	got := testSchema().Validate(record.Draft{"name": "A", "phoneNumber": "abc", "deptIdx": 0})
	want := Result{
		"name":        "name min",
		"phoneNumber": "phone format",
		"userId":      "userId required",
		"deptIdx":     "dept required",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Validate mismatch (-want +got):\n%s", diff)
	}
	if got.Valid() {
		t.Error("Result with errors must not be valid")
	}
}

func TestSchemaFirstFailingRuleWins(t *testing.T) {
	s := NewSchema().
		Field("code", ValidatorFunc(func(any) error { return errors.New("first") })).
		Field("code", ValidatorFunc(func(any) error { return errors.New("second") }))

	if got := s.Validate(record.Draft{})["code"]; got != "first" {
		t.Errorf("Expected 'first', got %q", got)
	}
}

func TestSchemaValidateDeterministic(t *testing.T) {
	s := testSchema()
	draft := record.Draft{"name": "Kim Dealer", "phoneNumber": "x", "userId": "", "deptIdx": "0"}

	first := s.Validate(draft)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, s.Validate(draft)); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
	if _, ok := draft["name"]; !ok || len(draft) != 4 {
		t.Error("Validate must not mutate the draft")
	}
}

func TestSchemaValidCompleteDraft(t *testing.T) {
	got := testSchema().Validate(record.Draft{
		"name":           "Kim Dealer",
		"phoneNumber":    "010-1234-5678",
		"userId":         "kim01",
		"deptIdx":        3,
		"passwordUpdate": "1",
	})
	if !got.Valid() {
		t.Errorf("Expected valid draft, got %v", got)
	}
}

func TestSchemaFields(t *testing.T) {
	got := testSchema().Fields()
	want := []string{"name", "phoneNumber", "userId", "deptIdx"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fields mismatch (-want +got):\n%s", diff)
	}
}

func TestNilSchemaIsAlwaysValid(t *testing.T) {
	var s *Schema
	if !s.Validate(record.Draft{"x": 1}).Valid() {
		t.Error("nil schema should report no errors")
	}
}

func TestResultOverlay(t *testing.T) {
	client := Result{"name": "name min", "userId": "userId required"}
	got := client.Overlay(map[string]string{"userId": "duplicate", "": "ignored"})

	want := Result{"name": "name min", "userId": "duplicate"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Overlay mismatch (-want +got):\n%s", diff)
	}
	if client["userId"] != "userId required" {
		t.Error("Overlay must not mutate the receiver")
	}
}
