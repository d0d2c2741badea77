package session

import (
	"mozuku/internal/diagnostic"
	"mozuku/internal/position"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func severity(s diagnostic.Severity) protocol.DiagnosticSeverity {
	switch s {
	case diagnostic.Error:
		return protocol.DiagnosticSeverityError
	case diagnostic.Warning:
		return protocol.DiagnosticSeverityWarning
	case diagnostic.Hint:
		return protocol.DiagnosticSeverityHint
	}
	return protocol.DiagnosticSeverityInformation
}

// toProtocol maps a diagnostic in document byte offsets to the client's
// coordinates.
func toProtocol(m *position.Mapper, d diagnostic.Diagnostic, source string) protocol.Diagnostic {
	sev := severity(d.Severity)
	return protocol.Diagnostic{
		Range:    m.Range(d.Start, d.End),
		Severity: &sev,
		Code:     &protocol.IntegerOrString{Value: d.Rule},
		Source:   &source,
		Message:  d.Message,
	}
}

func textEdits(m *position.Mapper, edits []diagnostic.Edit) []protocol.TextEdit {
	out := make([]protocol.TextEdit, len(edits))
	for i, e := range edits {
		out[i] = protocol.TextEdit{
			Range:   m.Range(e.Start, e.End),
			NewText: e.NewText,
		}
	}
	return out
}
