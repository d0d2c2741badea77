package server

import (
	"context"
	"encoding/json"
	"fmt"

	"mozuku/internal/augment"
	"mozuku/internal/session"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const rewriteTitle = "AIによる修正提案"

const rewriteKind = "mozuku.rewrite"

// rewriteData travels in CodeAction.Data between the offer and its
// resolution. The edit is computed only when the client resolves it.
type rewriteData struct {
	Kind     string `json:"kind"`
	URI      string `json:"uri"`
	Version  int32  `json:"version"`
	Revision uint64 `json:"revision"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Issue    string `json:"issue"`
}

func (d rewriteData) stamp() session.Stamp {
	return session.Stamp{Version: d.Version, Revision: d.Revision}
}

// decodeRewrite accepts both the struct itself and the generic JSON value
// a client sends back.
func decodeRewrite(raw any) (rewriteData, bool) {
	var d rewriteData
	b, err := json.Marshal(raw)
	if err != nil || json.Unmarshal(b, &d) != nil {
		return rewriteData{}, false
	}
	return d, d.Kind == rewriteKind && d.URI != ""
}

// rewriteActions offers one unresolved model rewrite per rule finding.
func rewriteActions(doc *session.Session, rng protocol.Range) []protocol.CodeAction {
	kind := protocol.CodeActionKindRefactorRewrite
	var actions []protocol.CodeAction
	for _, f := range doc.Findings(rng) {
		actions = append(actions, protocol.CodeAction{
			Title:       fmt.Sprintf("%s: %s", rewriteTitle, f.Message),
			Kind:        &kind,
			Diagnostics: []protocol.Diagnostic{f.Diagnostic},
			IsPreferred: &protocol.False,
			Data: rewriteData{
				Kind:     rewriteKind,
				URI:      doc.URI(),
				Version:  f.Stamp.Version,
				Revision: f.Stamp.Revision,
				Start:    f.Start,
				End:      f.End,
				Issue:    f.Message,
			},
		})
	}
	return actions
}

func (s *Server) codeActionResolve(
	context *glsp.Context,
	action *protocol.CodeAction,
) (*protocol.CodeAction, error) {
	data, ok := decodeRewrite(action.Data)
	if !ok {
		return action, nil
	}
	s.mu.RLock()
	coordinator := s.coordinator
	s.mu.RUnlock()
	if !coordinator.Enabled() {
		return nil, fmt.Errorf("llm augmentation is disabled")
	}
	doc, err := s.session(data.URI)
	if err != nil {
		return nil, err
	}
	edit, title, err := resolveRewrite(coordinator, doc, data)
	if err != nil {
		log.Warningf("resolving rewrite of %s: %v", data.URI, err)
		return nil, err
	}
	action.Title = title
	action.Edit = edit
	return action, nil
}

// resolveRewrite asks the model for the fix and maps it onto the text the
// action was offered for.
func resolveRewrite(
	coordinator *augment.Coordinator,
	doc *session.Session,
	data rewriteData,
) (*protocol.WorkspaceEdit, string, error) {
	stamp, text := doc.Current()
	if stamp != data.stamp() {
		return nil, "", fmt.Errorf("%w: rewrite for %s, now at %s", session.ErrStaleVersion, data.stamp(), stamp)
	}
	d, err := coordinator.Rewrite(context.Background(), doc.Format(), text, data.Start, data.End, data.Issue)
	if err != nil {
		return nil, "", err
	}
	edit, err := doc.Edit(stamp, d.Fixes[0])
	if err != nil {
		return nil, "", err
	}
	return edit, fmt.Sprintf("%s: %s", rewriteTitle, d.Message), nil
}
