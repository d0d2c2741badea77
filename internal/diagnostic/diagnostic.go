// Package diagnostic holds the value types produced by the grammar rules and
// the augmentation path before they are mapped to protocol coordinates.
package diagnostic

import (
	"cmp"
	"slices"
)

type Severity int

const (
	Error Severity = iota + 1
	Warning
	Information
	Hint
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Information:
		return "info"
	case Hint:
		return "hint"
	}
	return "unknown"
}

// Edit replaces the bytes [Start, End) with NewText.
type Edit struct {
	Start   int
	End     int
	NewText string
}

// Fix is one quick fix offered for a diagnostic.
type Fix struct {
	Title string
	Edits []Edit
}

// Diagnostic is a finding over a half-open byte range. Whether the offsets
// are segment-local or document offsets depends on the pipeline stage.
type Diagnostic struct {
	Rule     string
	Severity Severity
	Message  string
	Start    int
	End      int
	Fixes    []Fix
}

// Replace builds the common single-edit fix.
func Replace(title string, start, end int, text string) Fix {
	return Fix{Title: title, Edits: []Edit{{Start: start, End: end, NewText: text}}}
}

// Sort orders diagnostics by start, end and rule so that output is stable.
func Sort(diags []Diagnostic) {
	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Start, b.Start),
			cmp.Compare(a.End, b.End),
			cmp.Compare(a.Rule, b.Rule),
		)
	})
}

// Shift returns d with all offsets translated by fn.
func (d Diagnostic) Shift(start, end func(int) int) Diagnostic {
	out := d
	out.Start, out.End = start(d.Start), end(d.End)
	if len(d.Fixes) > 0 {
		out.Fixes = make([]Fix, len(d.Fixes))
		for i, f := range d.Fixes {
			edits := make([]Edit, len(f.Edits))
			for j, e := range f.Edits {
				s := start(e.Start)
				if e.Start == e.End {
					edits[j] = Edit{Start: s, End: s, NewText: e.NewText}
					continue
				}
				edits[j] = Edit{Start: s, End: end(e.End), NewText: e.NewText}
			}
			out.Fixes[i] = Fix{Title: f.Title, Edits: edits}
		}
	}
	return out
}
