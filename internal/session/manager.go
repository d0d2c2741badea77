package session

import (
	"fmt"
	"sync"
	"sync/atomic"

	"mozuku/internal/diagnostic"
	"mozuku/internal/extract"
	"mozuku/internal/morph"
	"mozuku/internal/rules"
)

// Options carries the collaborators shared by every session.
type Options struct {
	Extract   *extract.Engine
	Tokenizer morph.Tokenizer
	Rules     *rules.Engine
	Publisher Publisher
	Augmenter Augmenter
}

// Manager keeps one Session per open URI.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	extract   *extract.Engine
	tokenizer morph.Tokenizer
	rules     atomic.Pointer[rules.Engine]
	publisher Publisher
	augmenter Augmenter
	revisions atomic.Uint64
}

// NewManager creates an initialized Manager. Missing extraction and rule
// engines are replaced by the defaults.
func NewManager(opts Options) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		extract:   opts.Extract,
		tokenizer: opts.Tokenizer,
		publisher: opts.Publisher,
		augmenter: opts.Augmenter,
	}
	if m.extract == nil {
		m.extract = extract.NewEngine()
	}
	if opts.Rules == nil {
		opts.Rules = rules.NewEngine(nil, rules.DefaultDictionary())
	}
	m.rules.Store(opts.Rules)
	return m
}

// SetAugmenter installs the slow path. It must be called before the first
// document is opened.
func (m *Manager) SetAugmenter(a Augmenter) {
	m.augmenter = a
}

// Rules returns the rule engine used by new fast passes.
func (m *Manager) Rules() *rules.Engine {
	return m.rules.Load()
}

// SetRules swaps the rule engine and re-analyzes every open document.
func (m *Manager) SetRules(e *rules.Engine) {
	m.rules.Store(e)
	for _, s := range m.all() {
		s.Analyze()
	}
}

// Open starts a session for uri and runs its first fast pass. Opening a URI
// that is already open replaces the old session.
func (m *Manager) Open(uri string, languageID string, version int32, text string) *Session {
	s := &Session{
		uri:      uri,
		format:   extract.DetectFormat(uri, languageID),
		env:      m,
		state:    Opened,
		version:  version,
		revision: m.revisions.Add(1),
		text:     text,
		analyzer: morph.NewAnalyzer(m.tokenizer),
	}

	m.mu.Lock()
	old := m.sessions[uri]
	m.sessions[uri] = s
	m.mu.Unlock()

	if old != nil {
		log.Warningf("%s opened twice, replacing the session", uri)
		old.Close()
	}
	log.Debugf("opened %s as %s at version %d", uri, s.format, version)
	s.Analyze()
	return s
}

// Get returns the session of an open URI.
func (m *Manager) Get(uri string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[uri]
	if !ok {
		return nil, fmt.Errorf("%w: document not open: %s", ErrClosed, uri)
	}
	return s, nil
}

// Close ends the session of uri.
func (m *Manager) Close(uri string) error {
	m.mu.Lock()
	s, ok := m.sessions[uri]
	delete(m.sessions, uri)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: document not open: %s", ErrClosed, uri)
	}
	s.Close()
	return nil
}

// CloseAll ends every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// ApplyAugmentation routes slow-path results to the session of uri.
func (m *Manager) ApplyAugmentation(uri string, stamp Stamp, diags []diagnostic.Diagnostic) error {
	s, err := m.Get(uri)
	if err != nil {
		return err
	}
	return s.ApplyAugmentation(stamp, diags)
}

func (m *Manager) all() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}
