package extract

import (
	"slices"

	"mozuku/internal/parser"
)

type span struct {
	start, end int
}

// markdownStrategy keeps the text of paragraphs, headings, list items and
// table cells. Code blocks, HTML blocks, front matter and link definitions
// never produce inline nodes and are therefore skipped.
type markdownStrategy struct {
	backend Backend
}

func (s markdownStrategy) Extract(text string) ([]Segment, error) {
	nodes, err := s.backend.Nodes([]byte(text))
	if err != nil {
		return nil, err
	}

	var holes []span
	var prose []span
	var inline []parser.Node
	for _, n := range nodes {
		if n.Capture == parser.InlineCapture {
			inline = append(inline, n)
			continue
		}
		switch n.Kind {
		case "block_continuation":
			holes = append(holes, span{n.Start, n.End})
		case "inline", "pipe_table_cell":
			if k := len(prose); k > 0 && n.Start < prose[k-1].end {
				continue
			}
			prose = append(prose, span{n.Start, n.End})
		}
	}

	cut := append(inlineExclusions(inline), holes...)
	b := newBuilder(text)
	for _, p := range prose {
		var excluded []span
		for _, h := range cut {
			if h.start < p.end && h.end > p.start {
				excluded = append(excluded, span{max(h.start, p.start), min(h.end, p.end)})
			}
		}
		for _, keep := range complement(p, excluded) {
			b.add(keep.start, keep.end)
		}
		b.flush()
	}
	return b.segments(), nil
}

// complement returns the parts of whole not covered by excluded.
func complement(whole span, excluded []span) []span {
	slices.SortFunc(excluded, func(a, b span) int { return a.start - b.start })
	var out []span
	pos := whole.start
	for _, e := range excluded {
		if e.start > pos {
			out = append(out, span{pos, e.start})
		}
		pos = max(pos, e.end)
	}
	if pos < whole.end {
		out = append(out, span{pos, whole.end})
	}
	return out
}

// Inline nodes dropped as a whole.
var markupKinds = map[string]bool{
	"code_span":          true,
	"uri_autolink":       true,
	"email_autolink":     true,
	"html_tag":           true,
	"emphasis_delimiter": true,
	"latex_block":        true,
}

// Links keep their text and lose brackets, destination, title and label.
var linkKinds = map[string]bool{
	"inline_link":              true,
	"image":                    true,
	"full_reference_link":      true,
	"collapsed_reference_link": true,
	"shortcut_link":            true,
}

// inlineExclusions turns the nodes of the inline trees into the spans of
// markup: code spans, autolinks, raw HTML, emphasis delimiters, the
// backslash of escapes and everything of a link except its text.
func inlineExclusions(nodes []parser.Node) []span {
	var out []span
	for i, n := range nodes {
		switch {
		case markupKinds[n.Kind]:
			out = append(out, span{n.Start, n.End})
		case n.Kind == "backslash_escape":
			out = append(out, span{n.Start, n.Start + 1})
		case linkKinds[n.Kind]:
			label, ok := linkText(nodes[i+1:], n)
			if !ok {
				out = append(out, span{n.Start, n.End})
				continue
			}
			out = append(out, span{n.Start, label.Start}, span{label.End, n.End})
		}
	}
	return out
}

// linkText finds the direct link_text or image_description child of link
// among the nodes that follow it.
func linkText(after []parser.Node, link parser.Node) (parser.Node, bool) {
	for _, c := range after {
		if c.Depth <= link.Depth || c.Start >= link.End {
			break
		}
		if c.Depth == link.Depth+1 && (c.Kind == "link_text" || c.Kind == "image_description") {
			return c, true
		}
	}
	return parser.Node{}, false
}
