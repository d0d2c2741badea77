package position

import "sort"

// Piece maps a run of segment-local bytes onto the document.
type Piece struct {
	Origin int // document byte offset of the run
	Local  int // segment-local byte offset of the run
	Len    int
}

// Table is the sub-range table of a segment. Pieces are ordered by both
// Local and Origin and never overlap.
type Table struct {
	pieces []Piece
	length int
}

// Append adds the document run [origin, origin+n) to the end of the table.
// A run that directly continues the previous piece is merged into it.
func (t *Table) Append(origin, n int) {
	if n <= 0 {
		return
	}
	if k := len(t.pieces); k > 0 {
		last := &t.pieces[k-1]
		if last.Origin+last.Len == origin {
			last.Len += n
			t.length += n
			return
		}
		if origin < last.Origin+last.Len {
			outOfRange("piece at %d overlaps previous piece ending at %d", origin, last.Origin+last.Len)
			return
		}
	}
	t.pieces = append(t.pieces, Piece{Origin: origin, Local: t.length, Len: n})
	t.length += n
}

// Len is the length of the segment text in bytes.
func (t *Table) Len() int {
	return t.length
}

// Pieces returns the table entries. The slice must not be modified.
func (t *Table) Pieces() []Piece {
	return t.pieces
}

// find returns the index of the piece containing local byte offset local.
func (t *Table) find(local int) int {
	return sort.Search(len(t.pieces), func(i int) bool {
		return t.pieces[i].Local+t.pieces[i].Len > local
	})
}

func (t *Table) check(local int) int {
	if local < 0 || local > t.length {
		outOfRange("local offset %d outside segment of %d bytes", local, t.length)
		return max(0, min(local, t.length))
	}
	return local
}

// Origin maps a local offset to the document offset of the same byte. The
// offset equal to Len maps to the end of the last piece.
func (t *Table) Origin(local int) int {
	if len(t.pieces) == 0 {
		return 0
	}
	local = t.check(local)
	if local == t.length {
		last := t.pieces[len(t.pieces)-1]
		return last.Origin + last.Len
	}
	p := t.pieces[t.find(local)]
	return p.Origin + (local - p.Local)
}

// OriginEnd maps an exclusive local end offset to an exclusive document end
// offset. Unlike Origin it resolves against the piece holding local-1, so a
// range ending exactly at a piece boundary does not swallow the gap after it.
func (t *Table) OriginEnd(local int) int {
	if len(t.pieces) == 0 {
		return 0
	}
	local = t.check(local)
	if local == 0 {
		return t.pieces[0].Origin
	}
	p := t.pieces[t.find(local-1)]
	return p.Origin + (local - p.Local)
}

// Contiguous reports whether [start, end) lies in a single piece, so that
// replacing it in the document touches nothing outside the segment.
func (t *Table) Contiguous(start, end int) bool {
	if len(t.pieces) == 0 || start > end {
		return false
	}
	if start == end {
		return true
	}
	return t.find(start) == t.find(end-1)
}

// Local maps a document offset to a local offset. ok is false when the
// document byte is not part of the segment.
func (t *Table) Local(origin int) (local int, ok bool) {
	i := sort.Search(len(t.pieces), func(i int) bool {
		return t.pieces[i].Origin+t.pieces[i].Len > origin
	})
	if i == len(t.pieces) || origin < t.pieces[i].Origin {
		return 0, false
	}
	p := t.pieces[i]
	return p.Local + (origin - p.Origin), true
}
