// Package mode adapts cached virtual documents to editor features, one
// adapter per embedded language.
package mode

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jsvensson/embedls/internal/cache"
	"github.com/jsvensson/embedls/internal/config"
	"github.com/jsvensson/embedls/internal/document"
)

// Mode answers feature requests for one embedded language. Implementations
// read every artifact through their caches on each call.
type Mode interface {
	// ID is the embedded language the mode serves.
	ID() string
	Configure(cfg config.Config)
	Validate(doc *document.Document) ([]protocol.Diagnostic, error)
	DocumentSymbols(doc *document.Document) ([]protocol.DocumentSymbol, error)
	DocumentHighlights(doc *document.Document, pos protocol.Position) ([]protocol.DocumentHighlight, error)
	Caches() []cache.Observable
	// DocumentRemoved drops everything cached for uri.
	DocumentRemoved(uri string)
	Dispose()
}

var (
	diagError   = protocol.DiagnosticSeverityError
	diagWarning = protocol.DiagnosticSeverityWarning
)

const diagnosticSource = "embedls"

func strPtr(s string) *string {
	return &s
}
