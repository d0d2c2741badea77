package server

import (
	"errors"

	"mozuku/internal/session"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	s.track(context)
	m, err := s.sessions()
	if err != nil {
		return err
	}
	doc := params.TextDocument
	m.Open(doc.URI, doc.LanguageID, doc.Version, doc.Text)
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	s.track(context)
	doc, err := s.session(params.TextDocument.URI)
	if err != nil {
		return err
	}
	err = doc.Change(params.TextDocument.Version, params.ContentChanges)
	if errors.Is(err, session.ErrStaleVersion) {
		// Late notifications are expected after rapid typing.
		log.Debugf("%v", err)
		return nil
	}
	return err
}

func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	s.track(context)
	doc, err := s.session(params.TextDocument.URI)
	if err != nil {
		return err
	}
	return doc.Save(params.Text)
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	m, err := s.sessions()
	if err != nil {
		return err
	}
	if err := m.Close(params.TextDocument.URI); err != nil {
		return err
	}
	// Clear what the client still shows for the document.
	s.Publish(params.TextDocument.URI, 0, nil)
	return nil
}
