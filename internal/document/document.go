// Package document holds immutable snapshots of the documents the editor has
// open, and converts between byte offsets and LSP positions.
package document

import (
	"sort"
	"sync"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Document is a read-only snapshot of an open text document. A new snapshot
// is made for every edit; a published Document is never mutated.
type Document struct {
	URI        string
	LanguageID string
	Version    int32 // as reported by the client
	Revision   int64 // store-wide, strictly increasing
	Text       string

	once  sync.Once
	lines []int // byte offset of each line start
}

// New returns a snapshot. Most callers get documents from a Store; New is for
// synthesized documents and tests.
func New(uri, languageID string, version int32, revision int64, text string) *Document {
	return &Document{
		URI:        uri,
		LanguageID: languageID,
		Version:    version,
		Revision:   revision,
		Text:       text,
	}
}

func (d *Document) lineStarts() []int {
	d.once.Do(func() {
		d.lines = []int{0}
		for i := 0; i < len(d.Text); i++ {
			if d.Text[i] == '\n' {
				d.lines = append(d.lines, i+1)
			}
		}
	})
	return d.lines
}

// LineCount returns the number of lines, counting a trailing empty line.
func (d *Document) LineCount() int {
	return len(d.lineStarts())
}

// PositionAt converts a byte offset into an LSP position. Characters are
// counted in UTF-16 code units. Out-of-range offsets are clamped.
func (d *Document) PositionAt(offset int) protocol.Position {
	offset = clamp(offset, 0, len(d.Text))
	lines := d.lineStarts()
	line := sort.Search(len(lines), func(i int) bool { return lines[i] > offset }) - 1

	return protocol.Position{
		Line:      uint32(line),
		Character: uint32(utf16Len(d.Text[lines[line]:offset])),
	}
}

// OffsetAt converts an LSP position into a byte offset. A line past the end
// maps to the end of the text; a character past the end of its line maps to
// the end of that line.
func (d *Document) OffsetAt(pos protocol.Position) int {
	lines := d.lineStarts()
	line := int(pos.Line)
	if line >= len(lines) {
		return len(d.Text)
	}

	start := lines[line]
	end := len(d.Text)
	if line+1 < len(lines) {
		end = lines[line+1] - 1
		if end > start && d.Text[end-1] == '\r' {
			end--
		}
	}

	want := int(pos.Character)
	units := 0
	i := start
	for i < end && units < want {
		r, size := utf8.DecodeRuneInString(d.Text[i:end])
		n := utf16Units(r)
		if units+n > want {
			break
		}
		units += n
		i += size
	}
	return i
}

// RangeAt converts a byte span into an LSP range.
func (d *Document) RangeAt(start, end int) protocol.Range {
	return protocol.Range{Start: d.PositionAt(start), End: d.PositionAt(end)}
}

// Edit returns the text that results from replacing r with newText.
func (d *Document) Edit(r protocol.Range, newText string) string {
	start := d.OffsetAt(r.Start)
	end := d.OffsetAt(r.End)
	if end < start {
		start, end = end, start
	}
	return d.Text[:start] + newText + d.Text[end:]
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Units(r)
	}
	return n
}

func utf16Units(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
