// Package server exposes the proofreading engine over the language server
// protocol.
package server

import (
	"fmt"
	"sync"

	"mozuku/internal/augment"
	"mozuku/internal/cache"
	"mozuku/internal/config"
	"mozuku/internal/morph"
	"mozuku/internal/scheduler"
	"mozuku/internal/session"

	"fortio.org/safecast"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

var log = commonlog.GetLogger("mozuku.server")

const Name = "mozuku"

type Options struct {
	Version string
	// Tokenizer replaces the kagome tokenizer loaded on initialize.
	Tokenizer morph.Tokenizer
	// NoCache keeps provider answers in memory only.
	NoCache bool
}

type Server struct {
	handler protocol.Handler
	opts    Options

	mu          sync.RWMutex
	root        string
	config      config.Config
	notify      glsp.NotifyFunc
	manager     *session.Manager
	scheduler   *scheduler.Scheduler
	coordinator *augment.Coordinator
	cache       cache.Cache
}

func New(opts Options) *Server {
	s := &Server{opts: opts, config: config.Default()}
	s.handler = protocol.Handler{
		Initialize:                      s.initialize,
		Initialized:                     s.initialized,
		Shutdown:                        s.shutdown,
		Exit:                            s.exit,
		SetTrace:                        s.setTrace,
		TextDocumentDidOpen:             s.textDocumentDidOpen,
		TextDocumentDidChange:           s.textDocumentDidChange,
		TextDocumentDidSave:             s.textDocumentDidSave,
		TextDocumentDidClose:            s.textDocumentDidClose,
		TextDocumentHover:               s.textDocumentHover,
		TextDocumentSemanticTokensFull:  s.textDocumentSemanticTokensFull,
		TextDocumentCodeAction:          s.textDocumentCodeAction,
		CodeActionResolve:               s.codeActionResolve,
		WorkspaceDidChangeConfiguration: s.workspaceDidChangeConfiguration,
	}
	return s
}

// Handler returns the protocol handler table.
func (s *Server) Handler() *protocol.Handler {
	return &s.handler
}

// RunStdio serves one client on stdin and stdout until it exits.
func (s *Server) RunStdio() error {
	return server.NewServer(&s.handler, Name, false).RunStdio()
}

// Publish sends the diagnostics of one document version to the client.
func (s *Server) Publish(uri string, version int32, diagnostics []protocol.Diagnostic) {
	s.mu.RLock()
	notify := s.notify
	s.mu.RUnlock()
	if notify == nil {
		return
	}
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	params := protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	}
	if v, err := safecast.Conv[protocol.UInteger](version); err == nil {
		params.Version = &v
	}
	notify("textDocument/publishDiagnostics", params)
}

// track remembers the notification channel of the client.
func (s *Server) track(context *glsp.Context) {
	if context == nil || context.Notify == nil {
		return
	}
	s.mu.Lock()
	s.notify = context.Notify
	s.mu.Unlock()
}

func (s *Server) sessions() (*session.Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manager == nil {
		return nil, fmt.Errorf("server not initialized")
	}
	return s.manager, nil
}

func (s *Server) session(uri string) (*session.Session, error) {
	m, err := s.sessions()
	if err != nil {
		return nil, err
	}
	return m.Get(uri)
}
