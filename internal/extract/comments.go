package extract

import (
	"slices"
	"strings"

	"mozuku/internal/parser"
)

// commentStrategy keeps comment bodies of source files. Consecutive line
// comments form one segment until a blank line, code or an empty comment
// line separates them.
type commentStrategy struct {
	backend Backend
}

func (s commentStrategy) Extract(text string) ([]Segment, error) {
	nodes, err := s.backend.Nodes([]byte(text))
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(nodes, func(a, b parser.Node) int { return a.Start - b.Start })

	b := newBuilder(text)
	prevLineEnd := -1 // end of the previous line comment, -1 if none
	for _, n := range nodes {
		raw := text[n.Start:n.End]
		switch {
		case n.Capture == "docstring":
			b.flush()
			prevLineEnd = -1
			addDocstring(b, text, n.Start, n.End)
			b.flush()
		case strings.HasPrefix(raw, "/*"):
			b.flush()
			prevLineEnd = -1
			addBlockComment(b, text, n.Start, n.End)
			b.flush()
		default:
			start, end := lineCommentBody(text, n.Start, n.End)
			if start == end {
				b.flush()
				prevLineEnd = -1
				continue
			}
			if prevLineEnd >= 0 {
				gap := text[prevLineEnd:n.Start]
				if isBlank(gap) && strings.Count(gap, "\n") == 1 {
					nl := strings.IndexByte(gap, '\n')
					b.add(prevLineEnd, prevLineEnd+nl+1)
				} else {
					b.flush()
				}
			}
			b.add(start, end)
			prevLineEnd = n.End
			for prevLineEnd > end && (text[prevLineEnd-1] == '\n' || text[prevLineEnd-1] == '\r') {
				prevLineEnd--
			}
		}
	}
	return b.segments(), nil
}

// lineCommentBody strips the marker of a line comment ("//", "///", "//!",
// "#") and one following space. The newline is never part of the body.
func lineCommentBody(text string, start, end int) (int, int) {
	for end > start && (text[end-1] == '\n' || text[end-1] == '\r') {
		end--
	}
	raw := text[start:end]
	skip := 0
	switch {
	case strings.HasPrefix(raw, "//"):
		skip = 2
		if len(raw) > 2 && (raw[2] == '/' || raw[2] == '!') {
			skip = 3
		}
	case strings.HasPrefix(raw, "#"):
		for skip < len(raw) && raw[skip] == '#' {
			skip++
		}
	}
	if skip < len(raw) && raw[skip] == ' ' {
		skip++
	}
	start += skip
	for end > start && (text[end-1] == ' ' || text[end-1] == '\t') {
		end--
	}
	return start, end
}

// addBlockComment adds the lines of a /* */ comment without the delimiters
// and without the leading " * " decoration of each line.
func addBlockComment(b *builder, text string, start, end int) {
	bodyStart, bodyEnd := start+2, end
	if strings.HasSuffix(text[start:end], "*/") && end-2 >= bodyStart {
		bodyEnd = end - 2
	}
	if bodyStart < bodyEnd && (text[bodyStart] == '*' || text[bodyStart] == '!') {
		bodyStart++
	}
	addLines(b, text, bodyStart, bodyEnd, true)
}

// addDocstring adds the inside of a Python string literal.
func addDocstring(b *builder, text string, start, end int) {
	raw := text[start:end]
	prefix := 0
	for prefix < len(raw) && strings.IndexByte("rRuUbBfF", raw[prefix]) >= 0 {
		prefix++
	}
	quote := ""
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(raw[prefix:], q) {
			quote = q
			break
		}
	}
	bodyStart := start + prefix + len(quote)
	bodyEnd := end
	if quote != "" && strings.HasSuffix(raw, quote) && end-len(quote) >= bodyStart {
		bodyEnd = end - len(quote)
	}
	addLines(b, text, bodyStart, bodyEnd, false)
}

// addLines adds text[start:end] line by line, dropping indentation and, when
// stars is set, a leading '*' decoration. Blank lines split segments.
func addLines(b *builder, text string, start, end int, stars bool) {
	pos := start
	for pos < end {
		lineEnd := end
		if i := strings.IndexByte(text[pos:end], '\n'); i >= 0 {
			lineEnd = pos + i + 1
		}
		s := pos
		for s < lineEnd && (text[s] == ' ' || text[s] == '\t') {
			s++
		}
		if stars && s < lineEnd && text[s] == '*' {
			s++
			if s < lineEnd && text[s] == ' ' {
				s++
			}
		}
		if isBlank(text[s:lineEnd]) {
			b.flush()
		} else {
			b.add(s, lineEnd)
		}
		pos = lineEnd
	}
}
