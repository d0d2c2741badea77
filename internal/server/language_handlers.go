package server

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) textDocumentHover(
	context *glsp.Context,
	params *protocol.HoverParams,
) (*protocol.Hover, error) {
	doc, err := s.session(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	return doc.Hover(params.Position), nil
}

func (s *Server) textDocumentSemanticTokensFull(
	context *glsp.Context,
	params *protocol.SemanticTokensParams,
) (*protocol.SemanticTokens, error) {
	doc, err := s.session(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	return doc.SemanticTokens(), nil
}

func (s *Server) textDocumentCodeAction(
	context *glsp.Context,
	params *protocol.CodeActionParams,
) (any, error) {
	doc, err := s.session(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	actions := doc.CodeActions(params.Range)
	s.mu.RLock()
	coordinator := s.coordinator
	s.mu.RUnlock()
	if coordinator.Enabled() {
		actions = append(actions, rewriteActions(doc, params.Range)...)
	}
	if actions == nil {
		return []protocol.CodeAction{}, nil
	}
	return actions, nil
}

// workspaceDidChangeConfiguration re-reads the rule settings. Provider
// settings only take effect on the next start.
func (s *Server) workspaceDidChangeConfiguration(
	context *glsp.Context,
	params *protocol.DidChangeConfigurationParams,
) error {
	m, err := s.sessions()
	if err != nil {
		return err
	}
	s.mu.Lock()
	cfg := s.config
	if err := cfg.Merge(params.Settings); err != nil {
		s.mu.Unlock()
		return err
	}
	s.config = cfg
	s.mu.Unlock()

	log.Infof("configuration changed, re-checking open documents")
	m.SetRules(cfg.Rules())
	return nil
}
