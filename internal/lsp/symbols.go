package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jsvensson/embedls/internal/embedded"
)

// posInRange returns true if pos is within the range [r.Start, r.End].
// The end position is inclusive so a symbol ending at a block's end still
// nests.
func posInRange(pos protocol.Position, r protocol.Range) bool {
	if pos.Line < r.Start.Line || pos.Line > r.End.Line {
		return false
	}
	if pos.Line == r.Start.Line && pos.Character < r.Start.Character {
		return false
	}
	if pos.Line == r.End.Line && pos.Character > r.End.Character {
		return false
	}
	return true
}

// textDocumentDocumentSymbol returns one symbol per top-level block with
// the symbols of every mode nested under the block containing them.
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc, ok := s.docs.Get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	regions, modes := s.state()
	scanned, err := regions.Get(doc)
	if err != nil {
		log.Errorf("scanning %s: %s", doc.URI, err)
		return []protocol.DocumentSymbol{}, nil
	}

	blocks := make([]protocol.DocumentSymbol, 0, len(scanned.All()))
	for _, r := range scanned.All() {
		blocks = append(blocks, blockSymbol(scanned, r))
	}

	var loose []protocol.DocumentSymbol
	for _, m := range modes {
		symbols, err := m.DocumentSymbols(doc)
		if err != nil {
			log.Errorf("%s: symbols for %s: %s", m.ID(), doc.URI, err)
			continue
		}
	next:
		for _, sym := range symbols {
			for i := range blocks {
				if posInRange(sym.Range.Start, blocks[i].Range) {
					blocks[i].Children = append(blocks[i].Children, sym)
					continue next
				}
			}
			loose = append(loose, sym)
		}
	}

	return append(blocks, loose...), nil
}

func blockSymbol(regions *embedded.Regions, r embedded.Region) protocol.DocumentSymbol {
	rng := regions.Source().RangeAt(r.Start, r.End)
	detail := r.Language
	return protocol.DocumentSymbol{
		Name:           r.Kind,
		Detail:         &detail,
		Kind:           protocol.SymbolKindModule,
		Range:          rng,
		SelectionRange: protocol.Range{Start: rng.Start, End: rng.Start},
	}
}

// textDocumentDocumentHighlight asks the mode serving the language under
// the cursor.
func (s *Server) textDocumentDocumentHighlight(_ *glsp.Context, params *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	doc, ok := s.docs.Get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	regions, modes := s.state()
	scanned, err := regions.Get(doc)
	if err != nil {
		log.Errorf("scanning %s: %s", doc.URI, err)
		return nil, nil
	}

	language := scanned.LanguageAt(doc.OffsetAt(params.Position))
	for _, m := range modes {
		if m.ID() != language {
			continue
		}
		highlights, err := m.DocumentHighlights(doc, params.Position)
		if err != nil {
			log.Errorf("%s: highlights for %s: %s", m.ID(), doc.URI, err)
			return nil, nil
		}
		return highlights, nil
	}
	return nil, nil
}
