// Package session owns the state of each open document: its text and
// version, the last analysis snapshot and the diagnostics published for it.
package session

import (
	"errors"
	"fmt"
	"sync"

	"mozuku/internal/diagnostic"
	"mozuku/internal/extract"
	"mozuku/internal/morph"
	"mozuku/internal/position"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var log = commonlog.GetLogger("mozuku.session")

var (
	ErrStaleVersion = errors.New("session: stale version")
	ErrClosed       = errors.New("session: closed")
)

type State int

const (
	Opened State = iota
	Analyzing
	Idle
	Closed
)

func (s State) String() string {
	switch s {
	case Opened:
		return "opened"
	case Analyzing:
		return "analyzing"
	case Idle:
		return "idle"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Publisher receives the merged diagnostics of a document version.
type Publisher interface {
	Publish(uri string, version int32, diagnostics []protocol.Diagnostic)
}

// Stamp identifies one text of a document. Version is the client's number;
// Revision changes whenever the text is adopted without a new version, as
// on save or reopen, and is unique across the sessions of a Manager.
type Stamp struct {
	Version  int32
	Revision uint64
}

func (st Stamp) String() string {
	return fmt.Sprintf("v%d.r%d", st.Version, st.Revision)
}

// Augmenter is the slow path. Touch is called after every fast pass with the
// text that was analyzed; Forget when the document closes.
type Augmenter interface {
	Touch(uri string, stamp Stamp, format extract.Format, text string)
	Forget(uri string)
}

const (
	SourceRules = "mozuku"
	SourceLLM   = "mozuku-llm"
)

// Session is one open document.
type Session struct {
	uri    string
	format extract.Format
	env    *Manager

	// analysis serializes fast passes and publication.
	analysis sync.Mutex

	mu       sync.Mutex
	state    State
	version  int32
	revision uint64
	text     string
	analyzer *morph.Analyzer
	snap     *snapshot
}

// snapshot is the result of the last fast pass that was still current when
// it finished. Read-only queries are served from it.
type snapshot struct {
	stamp    Stamp
	mapper   *position.Mapper
	segments []extract.Segment
	tokens   [][]morph.Token

	fast      []entry
	augmented []entry
}

// entry is a diagnostic in document byte offsets with its protocol form.
type entry struct {
	doc      diagnostic.Diagnostic
	protocol protocol.Diagnostic
	fixes    []diagnostic.Fix
}

func (s *Session) URI() string            { return s.uri }
func (s *Session) Format() extract.Format { return s.format }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version returns the current document version.
func (s *Session) Version() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Stamp returns the identity of the current text.
func (s *Session) Stamp() Stamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stampLocked()
}

func (s *Session) stampLocked() Stamp {
	return Stamp{Version: s.version, Revision: s.revision}
}

// Text returns the current document text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Change applies content changes in order and makes version current. A
// change event is either protocol.TextDocumentContentChangeEvent with a
// range or protocol.TextDocumentContentChangeEventWhole.
func (s *Session) Change(version int32, changes []any) error {
	if err := s.apply(version, changes); err != nil {
		return err
	}
	s.Analyze()
	return nil
}

func (s *Session) apply(version int32, changes []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return ErrClosed
	}
	if version <= s.version {
		return fmt.Errorf("%w: %d after %d for %s", ErrStaleVersion, version, s.version, s.uri)
	}

	text := s.text
	for _, c := range changes {
		switch change := c.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if change.Range == nil {
				text = change.Text
				continue
			}
			text = applyEdit(text, *change.Range, change.Text)
		case *protocol.TextDocumentContentChangeEvent:
			if change.Range == nil {
				text = change.Text
				continue
			}
			text = applyEdit(text, *change.Range, change.Text)
		case protocol.TextDocumentContentChangeEventWhole:
			text = change.Text
		case *protocol.TextDocumentContentChangeEventWhole:
			text = change.Text
		default:
			log.Warningf("ignoring change event of type %T for %s", c, s.uri)
		}
	}
	s.text = text
	s.version = version
	s.revision = s.env.revisions.Add(1)
	return nil
}

// applyEdit replaces the range r of text. The range is resolved against the
// text it was issued for, so consecutive edits each use a fresh mapper.
func applyEdit(text string, r protocol.Range, newText string) string {
	start, end := position.NewMapper(text).Span(r)
	if end < start {
		start, end = end, start
	}
	return text[:start] + newText + text[end:]
}

// Save re-analyzes the current version. When the client sent the saved
// text and it differs from the buffer, the saved text wins.
func (s *Session) Save(text *string) error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if text != nil && *text != s.text {
		log.Warningf("saved text of %s differs from the synchronized buffer, adopting it", s.uri)
		s.text = *text
		s.revision = s.env.revisions.Add(1)
	}
	s.mu.Unlock()

	s.Analyze()
	return nil
}

// Close ends the session. Later calls fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	s.state = Closed
	s.snap = nil
	s.analyzer = nil
	s.mu.Unlock()

	if s.env.augmenter != nil {
		s.env.augmenter.Forget(s.uri)
	}
}

// Analyze runs the fast pass over the current text and publishes its result
// if no newer version arrived in the meantime.
func (s *Session) Analyze() {
	s.analysis.Lock()
	defer s.analysis.Unlock()

	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	stamp, text, analyzer := s.stampLocked(), s.text, s.analyzer
	s.state = Analyzing
	s.mu.Unlock()

	snap := s.run(stamp, text, analyzer)

	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	if stamp != s.stampLocked() {
		log.Debugf("discarding analysis of %s %s, now at %s", s.uri, stamp, s.stampLocked())
		s.mu.Unlock()
		return
	}
	s.snap = snap
	s.state = Idle
	published := snap.diagnostics()
	s.mu.Unlock()

	s.publish(stamp.Version, published)
	if s.env.augmenter != nil {
		s.env.augmenter.Touch(s.uri, stamp, s.format, text)
	}
}

// run is the pipeline: extract, tokenize, check and map to the document.
func (s *Session) run(stamp Stamp, text string, analyzer *morph.Analyzer) *snapshot {
	version := stamp.Version
	analyzer.Commit(version)
	engine := s.env.Rules()

	snap := &snapshot{
		stamp:    stamp,
		mapper:   position.NewMapper(text),
		segments: s.env.extract.Extract(s.format, text),
	}
	snap.tokens = make([][]morph.Token, len(snap.segments))

	for i := range snap.segments {
		seg := &snap.segments[i]
		tokens := analyzer.Analyze(version, seg.Key(), seg.Text)
		snap.tokens[i] = tokens
		for _, d := range engine.Run(tokens, seg.Text) {
			snap.fast = append(snap.fast, snap.entry(seg.Rebase(d), SourceRules))
		}
	}
	return snap
}

// ApplyAugmentation merges slow-path diagnostics, given in document byte
// offsets, into the published set. It fails with ErrStaleVersion unless
// stamp still names the current text.
func (s *Session) ApplyAugmentation(stamp Stamp, diags []diagnostic.Diagnostic) error {
	s.analysis.Lock()
	defer s.analysis.Unlock()

	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if current := s.stampLocked(); stamp != current || s.snap == nil || s.snap.stamp != stamp {
		s.mu.Unlock()
		return fmt.Errorf("%w: augmentation for %s, now at %s", ErrStaleVersion, stamp, current)
	}
	next := *s.snap
	next.augmented = make([]entry, 0, len(diags))
	for _, d := range diags {
		next.augmented = append(next.augmented, next.entry(d, SourceLLM))
	}
	s.snap = &next
	published := next.diagnostics()
	s.mu.Unlock()

	s.publish(stamp.Version, published)
	return nil
}

func (s *Session) publish(version int32, diags []protocol.Diagnostic) {
	if s.env.publisher == nil {
		return
	}
	s.env.publisher.Publish(s.uri, version, diags)
}

// Diagnostics returns what was last published for the document.
func (s *Session) Diagnostics() []protocol.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil
	}
	return s.snap.diagnostics()
}

// diagnostics lists fast-pass results first, then augmented ones.
func (snap *snapshot) diagnostics() []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(snap.fast)+len(snap.augmented))
	for _, e := range snap.fast {
		out = append(out, e.protocol)
	}
	for _, e := range snap.augmented {
		out = append(out, e.protocol)
	}
	return out
}

func (snap *snapshot) entry(d diagnostic.Diagnostic, source string) entry {
	return entry{
		doc:      d,
		protocol: toProtocol(snap.mapper, d, source),
		fixes:    d.Fixes,
	}
}
