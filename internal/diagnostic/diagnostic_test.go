package diagnostic

import "testing"

func TestSort(t *testing.T) {
	diags := []Diagnostic{
		{Rule: "b", Start: 4, End: 6},
		{Rule: "b", Start: 0, End: 3},
		{Rule: "a", Start: 0, End: 3},
		{Rule: "a", Start: 0, End: 2},
	}
	Sort(diags)
	want := []struct {
		rule       string
		start, end int
	}{{"a", 0, 2}, {"a", 0, 3}, {"b", 0, 3}, {"b", 4, 6}}
	for i, w := range want {
		d := diags[i]
		if d.Rule != w.rule || d.Start != w.start || d.End != w.end {
			t.Errorf("%d: got %s [%d,%d)", i, d.Rule, d.Start, d.End)
		}
	}
}

func TestShift(t *testing.T) {
	// Local [0,3) lives at 10, local [3,6) at 20.
	start := func(i int) int {
		if i < 3 {
			return 10 + i
		}
		return 17 + i
	}
	end := func(i int) int {
		if i <= 3 {
			return 10 + i
		}
		return 17 + i
	}
	d := Diagnostic{
		Start: 0,
		End:   3,
		Fixes: []Fix{
			Replace("置換", 0, 3, "x"),
			{Title: "挿入", Edits: []Edit{{Start: 3, End: 3, NewText: "y"}}},
		},
	}
	got := d.Shift(start, end)
	if got.Start != 10 || got.End != 13 {
		t.Errorf("range [%d,%d)", got.Start, got.End)
	}
	if e := got.Fixes[0].Edits[0]; e.Start != 10 || e.End != 13 || e.NewText != "x" {
		t.Errorf("replace edit %+v", e)
	}
	// An insertion stays empty and follows the start mapping.
	if e := got.Fixes[1].Edits[0]; e.Start != 20 || e.End != 20 {
		t.Errorf("insert edit %+v", e)
	}
	if d.Fixes[0].Edits[0].Start != 0 {
		t.Error("shift modified the original fixes")
	}
}

func TestSeverityString(t *testing.T) {
	for s, want := range map[Severity]string{
		Error:       "error",
		Warning:     "warning",
		Information: "info",
		Hint:        "hint",
		Severity(0): "unknown",
	} {
		if s.String() != want {
			t.Errorf("%d = %q, want %q", s, s.String(), want)
		}
	}
}
