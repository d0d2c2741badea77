package extract

import "strings"

// plainStrategy splits text into paragraphs at blank lines.
type plainStrategy struct{}

func (plainStrategy) Extract(text string) ([]Segment, error) {
	b := newBuilder(text)
	paragraphs(b, text, 0, len(text))
	return b.segments(), nil
}

// paragraphs adds the lines of text[start:end] to b, flushing at every
// blank line. Line terminators inside a paragraph are kept so that every
// piece is a verbatim document run.
func paragraphs(b *builder, text string, start, end int) {
	pos := start
	for pos < end {
		next := strings.IndexAny(text[pos:end], "\r\n")
		lineEnd := end
		if next >= 0 {
			lineEnd = pos + next + 1
			if text[lineEnd-1] == '\r' && lineEnd < end && text[lineEnd] == '\n' {
				lineEnd++
			}
		}
		line := text[pos:lineEnd]
		if isBlank(line) {
			b.flush()
		} else {
			b.add(pos, lineEnd)
		}
		pos = lineEnd
	}
	b.flush()
}
