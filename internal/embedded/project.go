package embedded

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jsvensson/embedls/internal/document"
)

// Filler replaces every byte outside the projected language. Line breaks
// are kept so that line numbers line up with the source.
const Filler = ' '

// VirtualDocument is one language's view of a composite source document.
// Its text has the same byte length and line breaks as the source, so a
// byte offset in one is the same byte offset in the other.
type VirtualDocument struct {
	source   *document.Document
	language string
	matched  int
	doc      *document.Document
}

// Project builds the virtual document for target straight from a source
// snapshot. Callers holding cached Regions should use Regions.Project.
func Project(source *document.Document, target string) *VirtualDocument {
	return Scan(source).Project(target)
}

// Project synthesizes the virtual document for target. The result is
// entirely filler if no region matches.
func (r *Regions) Project(target string) *VirtualDocument {
	text := r.source.Text
	buf := make([]byte, len(text))
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '\n', '\r':
			buf[i] = c
		default:
			buf[i] = Filler
		}
	}

	matched := 0
	for _, reg := range r.regions {
		if !reg.Matches(target) {
			continue
		}
		copy(buf[reg.Start:reg.End], text[reg.Start:reg.End])
		matched++
	}

	return &VirtualDocument{
		source:   r.source,
		language: target,
		matched:  matched,
		doc: document.New(
			r.source.URI,
			target,
			r.source.Version,
			r.source.Revision,
			string(buf),
		),
	}
}

// Source returns the snapshot this document was projected from.
func (v *VirtualDocument) Source() *document.Document {
	return v.source
}

func (v *VirtualDocument) Language() string {
	return v.language
}

// Document exposes the projection as a document snapshot with the source's
// URI and revision, so it can key caches of its own derived artifacts.
func (v *VirtualDocument) Document() *document.Document {
	return v.doc
}

func (v *VirtualDocument) Text() string {
	return v.doc.Text
}

// Empty reports whether no region matched the target language.
func (v *VirtualDocument) Empty() bool {
	return v.matched == 0
}

// SourceOffset maps a virtual offset to the source. Offsets are aligned, so
// this only clamps.
func (v *VirtualDocument) SourceOffset(offset int) int {
	return max(0, min(offset, len(v.source.Text)))
}

// SourcePosition maps a position reported against the virtual text back to
// the source. Filler may have replaced multi-byte runes, which changes UTF-16
// columns, so the mapping goes through the byte offset.
func (v *VirtualDocument) SourcePosition(pos protocol.Position) protocol.Position {
	return v.source.PositionAt(v.doc.OffsetAt(pos))
}

func (v *VirtualDocument) SourceRange(r protocol.Range) protocol.Range {
	return protocol.Range{Start: v.SourcePosition(r.Start), End: v.SourcePosition(r.End)}
}
