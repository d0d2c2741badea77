// Package position translates offsets between the three coordinate spaces
// used by the analysis pipeline: document byte offsets, segment-local byte
// offsets and LSP positions counted in UTF-16 code units.
package position

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"fortio.org/safecast"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var log = commonlog.GetLogger("mozuku.position")

const maxUint32 = ^uint32(0)

var strict atomic.Bool

// SetStrict turns out-of-range offsets into panics instead of clamping.
// Tests enable it so that mapping bugs surface immediately.
func SetStrict(on bool) {
	strict.Store(on)
}

func outOfRange(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if strict.Load() {
		panic("position: " + msg)
	}
	log.Warningf("clamping out-of-range offset: %s", msg)
}

func toUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// Units returns the number of UTF-16 code units needed to encode s.
func Units(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func runeUnits(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// lineIndex caches both directions of the byte <-> UTF-16 mapping of a line.
type lineIndex struct {
	units   []uint32 // units[b]: code units before byte b of the line
	offsets []int    // offsets[u]: byte offset of code unit u
}

func indexLine(line string) *lineIndex {
	idx := &lineIndex{
		units:   make([]uint32, 0, len(line)+1),
		offsets: make([]int, 0, len(line)+1),
	}
	var u uint32
	for b := 0; b < len(line); {
		r, size := utf8.DecodeRuneInString(line[b:])
		for i := 0; i < size; i++ {
			idx.units = append(idx.units, u)
		}
		for i := 0; i < runeUnits(r); i++ {
			idx.offsets = append(idx.offsets, b)
		}
		u += toUint32(runeUnits(r))
		b += size
	}
	idx.units = append(idx.units, u)
	idx.offsets = append(idx.offsets, len(line))
	return idx
}

// Mapper converts between document byte offsets and protocol positions for
// one immutable document text. Lines are indexed lazily and cached.
type Mapper struct {
	text       string
	lineStarts []int
	lineEnds   []int

	mu    sync.Mutex
	lines map[int]*lineIndex
}

// NewMapper builds the line table for text. "\n", "\r\n" and a bare "\r"
// each end a line, as in the protocol.
func NewMapper(text string) *Mapper {
	starts, ends := []int{0}, []int(nil)
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			ends = append(ends, i)
			starts = append(starts, i+1)
		case '\r':
			ends = append(ends, i)
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		}
	}
	ends = append(ends, len(text))
	return &Mapper{
		text:       text,
		lineStarts: starts,
		lineEnds:   ends,
		lines:      make(map[int]*lineIndex),
	}
}

// Text returns the document text the mapper was built for.
func (m *Mapper) Text() string {
	return m.text
}

// LineCount returns the number of lines, counting a trailing empty line.
func (m *Mapper) LineCount() int {
	return len(m.lineStarts)
}

// Line returns the byte range of a line without its terminator. Lines past
// the end of the document are empty and sit at the end of the text.
func (m *Mapper) Line(line int) (int, int) {
	if line < 0 || line >= len(m.lineStarts) {
		return len(m.text), len(m.text)
	}
	return m.lineStarts[line], m.lineEnds[line]
}

func (m *Mapper) line(line int) *lineIndex {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx, ok := m.lines[line]; ok {
		return idx
	}
	idx := indexLine(m.text[m.lineStarts[line]:m.lineEnds[line]])
	m.lines[line] = idx
	return idx
}

// Position converts a document byte offset to a protocol position.
func (m *Mapper) Position(offset int) protocol.Position {
	if offset < 0 || offset > len(m.text) {
		outOfRange("offset %d outside document of %d bytes", offset, len(m.text))
		offset = max(0, min(offset, len(m.text)))
	}
	line := sort.Search(len(m.lineStarts), func(i int) bool {
		return m.lineStarts[i] > offset
	}) - 1
	col := offset - m.lineStarts[line]
	idx := m.line(line)
	if col >= len(idx.units) {
		// offset points into the terminator of this line
		col = len(idx.units) - 1
	}
	return protocol.Position{
		Line:      toUint32(line),
		Character: idx.units[col],
	}
}

// Offset converts a protocol position to a document byte offset. Following
// the protocol, a character past the end of its line means the end of the
// line and a line past the end of the document means the end of the text.
func (m *Mapper) Offset(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(m.lineStarts) {
		return len(m.text)
	}
	idx := m.line(line)
	char := int(pos.Character)
	if char >= len(idx.offsets) {
		char = len(idx.offsets) - 1
	}
	return m.lineStarts[line] + idx.offsets[char]
}

// Range converts a half-open byte range to a protocol range.
func (m *Mapper) Range(start, end int) protocol.Range {
	if end < start {
		outOfRange("range end %d before start %d", end, start)
		end = start
	}
	return protocol.Range{
		Start: m.Position(start),
		End:   m.Position(end),
	}
}

// Span converts a protocol range back to a half-open byte range.
func (m *Mapper) Span(r protocol.Range) (int, int) {
	start, end := m.Offset(r.Start), m.Offset(r.End)
	if end < start {
		start, end = end, start
	}
	return start, end
}
