package session

import (
	"fmt"

	"mozuku/internal/diagnostic"
	"mozuku/internal/morph"

	"fortio.org/safecast"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Hover describes the morpheme under pos, or returns nil when pos is not on
// analyzed prose.
func (s *Session) Hover(pos protocol.Position) *protocol.Hover {
	s.mu.Lock()
	snap := s.snap
	s.mu.Unlock()
	if snap == nil {
		return nil
	}

	off := snap.mapper.Offset(pos)
	for i := range snap.segments {
		seg := &snap.segments[i]
		local, ok := seg.Local(off)
		if !ok {
			continue
		}
		k := morph.At(snap.tokens[i], local)
		if k < 0 {
			return nil
		}
		tok := snap.tokens[i][k]
		r := snap.mapper.Range(seg.Origin(tok.Start), seg.OriginEnd(tok.End))
		return &protocol.Hover{
			Contents: protocol.MarkupContent{
				Kind:  protocol.MarkupKindMarkdown,
				Value: morph.HoverMarkdown(tok),
			},
			Range: &r,
		}
	}
	return nil
}

// SemanticTokens encodes every token of the last snapshot with the
// morph.SemanticLegend types. Tokens that cross a line or a hole in their
// segment are skipped.
func (s *Session) SemanticTokens() *protocol.SemanticTokens {
	s.mu.Lock()
	snap := s.snap
	s.mu.Unlock()

	data := []protocol.UInteger{}
	if snap == nil {
		return &protocol.SemanticTokens{Data: data}
	}

	var line, char uint32
	for i := range snap.segments {
		seg := &snap.segments[i]
		for _, tok := range snap.tokens[i] {
			if !seg.Contiguous(tok.Start, tok.End) {
				continue
			}
			r := snap.mapper.Range(seg.Origin(tok.Start), seg.OriginEnd(tok.End))
			if r.Start.Line != r.End.Line || r.End.Character <= r.Start.Character {
				continue
			}
			deltaLine := r.Start.Line - line
			deltaChar := r.Start.Character
			if deltaLine == 0 {
				deltaChar -= char
			}
			kind, err := safecast.Conv[uint32](morph.SemanticType(tok))
			if err != nil {
				continue
			}
			data = append(data,
				deltaLine,
				deltaChar,
				r.End.Character-r.Start.Character,
				kind,
				0,
			)
			line, char = r.Start.Line, r.Start.Character
		}
	}
	return &protocol.SemanticTokens{Data: data}
}

// CodeActions offers the fixes of every diagnostic overlapping rng.
func (s *Session) CodeActions(rng protocol.Range) []protocol.CodeAction {
	s.mu.Lock()
	snap := s.snap
	s.mu.Unlock()
	if snap == nil {
		return nil
	}

	start, end := snap.mapper.Span(rng)
	kind := protocol.CodeActionKindQuickFix
	var actions []protocol.CodeAction
	for _, group := range [][]entry{snap.fast, snap.augmented} {
		for _, e := range group {
			if e.doc.End < start || e.doc.Start > end {
				continue
			}
			for _, f := range e.fixes {
				actions = append(actions, protocol.CodeAction{
					Title:       f.Title,
					Kind:        &kind,
					Diagnostics: []protocol.Diagnostic{e.protocol},
					Edit: &protocol.WorkspaceEdit{
						Changes: map[protocol.DocumentUri][]protocol.TextEdit{
							protocol.DocumentUri(s.uri): textEdits(snap.mapper, f.Edits),
						},
					},
				})
			}
		}
	}
	return actions
}

// Finding is a rule diagnostic of one text, in document byte offsets.
type Finding struct {
	Stamp      Stamp
	Start, End int
	Message    string
	Diagnostic protocol.Diagnostic
}

// Findings lists the rule diagnostics of the last snapshot that overlap
// rng. Model suggestions are not included.
func (s *Session) Findings(rng protocol.Range) []Finding {
	s.mu.Lock()
	snap := s.snap
	s.mu.Unlock()
	if snap == nil {
		return nil
	}

	start, end := snap.mapper.Span(rng)
	var out []Finding
	for _, e := range snap.fast {
		if e.doc.End < start || e.doc.Start > end {
			continue
		}
		out = append(out, Finding{
			Stamp:      snap.stamp,
			Start:      e.doc.Start,
			End:        e.doc.End,
			Message:    e.doc.Message,
			Diagnostic: e.protocol,
		})
	}
	return out
}

// Current returns the text and its stamp as one consistent pair.
func (s *Session) Current() (Stamp, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stampLocked(), s.text
}

// Edit converts fix into a workspace edit of the text named by stamp.
func (s *Session) Edit(stamp Stamp, fix diagnostic.Fix) (*protocol.WorkspaceEdit, error) {
	s.mu.Lock()
	snap, current := s.snap, s.stampLocked()
	s.mu.Unlock()
	if snap == nil || snap.stamp != stamp || current != stamp {
		return nil, fmt.Errorf("%w: edit for %s, now at %s", ErrStaleVersion, stamp, current)
	}
	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{
			protocol.DocumentUri(s.uri): textEdits(snap.mapper, fix.Edits),
		},
	}, nil
}
