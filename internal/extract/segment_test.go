package extract

import (
	"testing"

	"mozuku/internal/diagnostic"
)

func TestRebase(t *testing.T) {
	// "ab" at 10 and "cd" at 20, joined as "abcd".
	var seg Segment
	seg.Append(10, 2)
	seg.Append(20, 2)
	seg.Text = "abcd"

	d := diagnostic.Diagnostic{
		Rule:  "r",
		Start: 1,
		End:   3,
		Fixes: []diagnostic.Fix{
			diagnostic.Replace("across", 1, 3, "x"),
			diagnostic.Replace("inside", 2, 4, "y"),
		},
	}
	got := seg.Rebase(d)
	if got.Start != 11 || got.End != 21 {
		t.Errorf("range [%d,%d)", got.Start, got.End)
	}
	if len(got.Fixes) != 1 || got.Fixes[0].Title != "inside" {
		t.Fatalf("fixes %+v", got.Fixes)
	}
	if e := got.Fixes[0].Edits[0]; e.Start != 20 || e.End != 22 {
		t.Errorf("edit %+v", e)
	}
	if len(d.Fixes) != 2 {
		t.Error("rebase modified its argument")
	}
}

func TestRebaseEndsAtHole(t *testing.T) {
	var seg Segment
	seg.Append(0, 3)
	seg.Append(10, 3)
	got := seg.Rebase(diagnostic.Diagnostic{Start: 0, End: 3})
	if got.End != 3 {
		t.Errorf("end %d should stop before the gap", got.End)
	}
}
