package extract

import (
	"encoding/hex"
	"strings"

	"mozuku/internal/diagnostic"
	"mozuku/internal/position"

	"github.com/zeebo/blake3"
)

// Segment is a prose span of a document. Its text is the concatenation of
// the document runs listed in the embedded table.
type Segment struct {
	position.Table
	Text string
	Hash [32]byte
}

// Key is the hex form of the content hash.
func (s *Segment) Key() string {
	return hex.EncodeToString(s.Hash[:])
}

// Rebase moves a segment-local diagnostic onto document offsets. Fixes
// whose edits span a hole in the segment cannot be expressed as a document
// edit and are dropped.
func (s *Segment) Rebase(d diagnostic.Diagnostic) diagnostic.Diagnostic {
	var fixes []diagnostic.Fix
	for _, f := range d.Fixes {
		ok := true
		for _, e := range f.Edits {
			if !s.Contiguous(e.Start, e.End) {
				ok = false
				break
			}
		}
		if ok {
			fixes = append(fixes, f)
		}
	}
	d.Fixes = fixes
	return d.Shift(s.Origin, s.OriginEnd)
}

// builder accumulates document runs into segments.
type builder struct {
	src  string
	cur  position.Table
	text strings.Builder
	out  []Segment
}

func newBuilder(src string) *builder {
	return &builder{src: src}
}

// add appends the document run [start, end) to the current segment.
func (b *builder) add(start, end int) {
	if end <= start {
		return
	}
	before := b.cur.Len()
	b.cur.Append(start, end-start)
	if b.cur.Len() == before {
		return
	}
	b.text.WriteString(b.src[start:end])
}

// flush closes the current segment. Segments without any visible character
// are dropped.
func (b *builder) flush() {
	text := b.text.String()
	if strings.TrimSpace(text) != "" {
		b.out = append(b.out, Segment{
			Table: b.cur,
			Text:  text,
			Hash:  blake3.Sum256([]byte(text)),
		})
	}
	b.cur = position.Table{}
	b.text.Reset()
}

func (b *builder) segments() []Segment {
	b.flush()
	return b.out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
