package position_test

import (
	"testing"
	"unicode/utf8"

	"mozuku/internal/position"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func init() {
	position.SetStrict(true)
}

func TestRoundTripBMP(t *testing.T) {
	text := "吾輩は猫である。\n名前はまだ無い。\r\nabc def\n\n最後の行"
	m := position.NewMapper(text)
	for off := 0; off <= len(text); {
		pos := m.Position(off)
		// The "\n" of "\r\n" shares the position of its "\r".
		inTerminator := off > 0 && off < len(text) && text[off] == '\n' && text[off-1] == '\r'
		if got := m.Offset(pos); got != off && !inTerminator {
			t.Fatalf("offset %d -> %v -> %d", off, pos, got)
		}
		if off == len(text) {
			break
		}
		_, size := utf8.DecodeRuneInString(text[off:])
		off += size
	}
}

func TestSupplementaryPlane(t *testing.T) {
	// 𠮷 is outside the BMP and needs a surrogate pair.
	text := "𠮷野家で食べれる"
	m := position.NewMapper(text)

	after := len("𠮷")
	pos := m.Position(after)
	if pos.Line != 0 || pos.Character != 2 {
		t.Fatalf("expected 0:2 after supplementary char, got %d:%d", pos.Line, pos.Character)
	}
	end := m.Position(len(text))
	if want := uint32(position.Units(text)); end.Character != want {
		t.Errorf("end character = %d, want %d", end.Character, want)
	}
	if position.Units(text) != utf8.RuneCountInString(text)+1 {
		t.Errorf("units should exceed runes by exactly one")
	}
	if got := m.Offset(pos); got != after {
		t.Errorf("Offset(%v) = %d, want %d", pos, got, after)
	}
}

func TestLinesAndNewlines(t *testing.T) {
	text := "一行目\n二行目\n"
	m := position.NewMapper(text)
	if m.LineCount() != 3 {
		t.Fatalf("LineCount = %d, want 3", m.LineCount())
	}
	cases := []struct {
		offset int
		line   uint32
		char   uint32
	}{
		{0, 0, 0},
		{len("一行目"), 0, 3},
		{len("一行目\n"), 1, 0},
		{len("一行目\n二"), 1, 1},
		{len(text), 2, 0},
	}
	for _, c := range cases {
		pos := m.Position(c.offset)
		if pos.Line != c.line || pos.Character != c.char {
			t.Errorf("Position(%d) = %d:%d, want %d:%d", c.offset, pos.Line, pos.Character, c.line, c.char)
		}
	}
}

func TestCarriageReturns(t *testing.T) {
	text := "一行目\r二行目\r\n三行目\n"
	m := position.NewMapper(text)
	if m.LineCount() != 4 {
		t.Fatalf("LineCount = %d, want 4", m.LineCount())
	}
	cases := []struct {
		offset int
		line   uint32
		char   uint32
	}{
		{len("一行目"), 0, 3},
		{len("一行目\r"), 1, 0},
		{len("一行目\r二行目"), 1, 3},
		{len("一行目\r二行目\r"), 1, 3},
		{len("一行目\r二行目\r\n"), 2, 0},
		{len("一行目\r二行目\r\n三"), 2, 1},
		{len(text), 3, 0},
	}
	for _, c := range cases {
		pos := m.Position(c.offset)
		if pos.Line != c.line || pos.Character != c.char {
			t.Errorf("Position(%d) = %d:%d, want %d:%d", c.offset, pos.Line, pos.Character, c.line, c.char)
		}
	}
	if got := m.Offset(protocol.Position{Line: 1, Character: 99}); got != len("一行目\r二行目") {
		t.Errorf("end of CRLF line = %d", got)
	}
	if got := m.Offset(protocol.Position{Line: 2, Character: 0}); got != len("一行目\r二行目\r\n") {
		t.Errorf("start of line after CRLF = %d", got)
	}
	start, end := m.Line(1)
	if text[start:end] != "二行目" {
		t.Errorf("Line(1) = %q", text[start:end])
	}
}

func TestOffsetClampsPastLineEnd(t *testing.T) {
	m := position.NewMapper("ab\ncd")
	if got := m.Offset(protocol.Position{Line: 0, Character: 99}); got != 2 {
		t.Errorf("past line end = %d, want 2", got)
	}
	if got := m.Offset(protocol.Position{Line: 9, Character: 0}); got != 5 {
		t.Errorf("past last line = %d, want 5", got)
	}
}

func TestStrictPanicsOnOutOfRange(t *testing.T) {
	m := position.NewMapper("abc")
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic in strict mode")
		}
	}()
	m.Position(10)
}

func TestRangeSpan(t *testing.T) {
	text := "前置き\n本文の対象\n"
	m := position.NewMapper(text)
	start := len("前置き\n本文の")
	end := start + len("対象")
	r := m.Range(start, end)
	if r.Start.Line != 1 || r.Start.Character != 3 || r.End.Character != 5 {
		t.Fatalf("unexpected range %+v", r)
	}
	s, e := m.Span(r)
	if s != start || e != end {
		t.Errorf("Span = [%d,%d), want [%d,%d)", s, e, start, end)
	}
}
