package record

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDraftClone(t *testing.T) {
	d := Draft{"name": "Kim", "deptIdx": 3}
	c := d.Clone()
	c["name"] = "Lee"

	if d["name"] != "Kim" {
		t.Errorf("Clone shares storage: original name = %v", d["name"])
	}

	var nilDraft Draft
	if got := nilDraft.Clone(); got == nil || len(got) != 0 {
		t.Errorf("nil Clone = %#v, want empty non-nil draft", got)
	}
}

func TestMergePrecedence(t *testing.T) {
	defaults := Draft{"passwordUpdate": "0", "name": ""}
	upstream := Draft{"name": "Kim", "userIdx": 7}
	shared := Draft{"name": "Kim Dealer"}

	got := Merge(defaults, upstream, shared)
	want := Draft{"passwordUpdate": "0", "name": "Kim Dealer", "userIdx": 7}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestDraftWithout(t *testing.T) {
	d := Draft{"meta": map[string]any{"x": 1}, "name": "Kim"}
	got := d.Without("meta")

	if _, ok := got["meta"]; ok {
		t.Error("meta should be removed")
	}
	if _, ok := d["meta"]; !ok {
		t.Error("Without must not mutate the receiver")
	}
}

func TestDraftAccessors(t *testing.T) {
	d := Draft{"deptIdx": "3", "count": 2, "ratio": 1.5, "blank": "  ", "none": nil}

	if n, ok := d.Number("deptIdx"); !ok || n != 3 {
		t.Errorf("Number(deptIdx) = %v, %v", n, ok)
	}
	if n, ok := d.Number("count"); !ok || n != 2 {
		t.Errorf("Number(count) = %v, %v", n, ok)
	}
	if _, ok := d.Number("missing"); ok {
		t.Error("Number(missing) should not be ok")
	}
	if got := d.String("ratio"); got != "1.5" {
		t.Errorf("String(ratio) = %q", got)
	}
	if d.Has("blank") || d.Has("none") || d.Has("missing") {
		t.Error("blank, nil and missing fields should not count as present")
	}
	if !d.Has("count") {
		t.Error("numeric zero-like values are present")
	}
}

func TestDraftEqual(t *testing.T) {
	a := Draft{"deptIdx": 3, "name": "Kim"}
	b := Draft{"deptIdx": float64(3), "name": "Kim"}
	if !a.Equal(b) {
		t.Error("numbers of different Go types should compare equal")
	}

	c := Draft{"deptIdx": 3, "name": nil}
	d := Draft{"deptIdx": 3, "name": ""}
	if c.Equal(d) {
		t.Error("nil and empty string are distinct values")
	}
}

func TestDraftKeysSorted(t *testing.T) {
	d := Draft{"b": 1, "a": 2, "c": 3}
	if diff := cmp.Diff([]string{"a", "b", "c"}, d.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}
