package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jsvensson/embedls/internal/document"
)

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	item := params.TextDocument
	doc := s.docs.Open(item.URI, item.LanguageID, item.Version, item.Text)
	log.Debugf("opened %s@%d", doc.URI, doc.Revision)
	s.validate(ctx, doc)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	changes := make([]document.Change, 0, len(params.ContentChanges))
	for _, raw := range params.ContentChanges {
		switch c := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			changes = append(changes, document.Change{Range: c.Range, Text: c.Text})
		case protocol.TextDocumentContentChangeEventWhole:
			changes = append(changes, document.Change{Text: c.Text})
		default:
			log.Warningf("unexpected change event type %T", raw)
		}
	}

	doc, ok := s.docs.Update(params.TextDocument.URI, params.TextDocument.Version, changes)
	if !ok {
		log.Warningf("change for unknown document %s", params.TextDocument.URI)
		return nil
	}
	s.validate(ctx, doc)
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.docs.Close(uri)

	regions, modes := s.state()
	regions.Remove(uri)
	for _, m := range modes {
		m.DocumentRemoved(uri)
	}

	publishDiagnostics(ctx, uri, []protocol.Diagnostic{})
	return nil
}

// validate publishes the diagnostics of every mode for doc. An empty list
// is still sent so stale results are cleared.
func (s *Server) validate(ctx *glsp.Context, doc *document.Document) {
	_, modes := s.state()

	diagnostics := []protocol.Diagnostic{}
	for _, m := range modes {
		diags, err := m.Validate(doc)
		if err != nil {
			log.Errorf("%s: validating %s: %s", m.ID(), doc.URI, err)
			continue
		}
		diagnostics = append(diagnostics, diags...)
	}
	publishDiagnostics(ctx, doc.URI, diagnostics)
}

func publishDiagnostics(ctx *glsp.Context, uri string, diagnostics []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}
