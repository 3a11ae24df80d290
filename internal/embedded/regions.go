// Package embedded splits a composite document into its top-level language
// blocks and projects a single language out of it as an offset-aligned
// virtual document.
package embedded

import (
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/jsvensson/embedls/internal/document"
)

// DefaultLanguage is reported outside any block when the source document
// does not declare a language of its own.
const DefaultLanguage = "vue"

// Block kinds with special language resolution.
const (
	KindTemplate = "template"
	KindScript   = "script"
	KindStyle    = "style"
)

// Region is the content of one top-level block. Start and End are byte
// offsets into the source, excluding the block's own tags.
type Region struct {
	Kind     string
	Language string
	Start    int
	End      int
	Attrs    map[string]string
}

// Matches reports whether target names this region's language or its kind.
func (r Region) Matches(target string) bool {
	return r.Language == target || r.Kind == target
}

// Regions is the result of scanning one source snapshot.
type Regions struct {
	source  *document.Document
	regions []Region
}

// Scan partitions doc into top-level blocks. It never fails: a block without
// its closing tag runs to the end of the document.
func Scan(doc *document.Document) *Regions {
	return &Regions{source: doc, regions: scan(doc.Text)}
}

func scan(text string) []Region {
	var (
		regions []Region
		open    *Region
		depth   int
		offset  int
	)

	z := html.NewTokenizer(strings.NewReader(text))
	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.ErrorToken:
			if open != nil {
				open.End = len(text)
				regions = append(regions, *open)
			}
			return regions

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if open == nil {
				attrs := readAttrs(z, hasAttr)
				kind := string(name)
				open = &Region{
					Kind:     kind,
					Language: resolveLanguage(kind, attrs["lang"]),
					Start:    min(offset, len(text)),
					Attrs:    attrs,
				}
				depth = 1
			} else if string(name) == open.Kind {
				depth++
			}

		case html.SelfClosingTagToken:
			// The tokenizer enters raw text after <script/> or <style/> too.
			// A self-closing block is empty and yields no region.
			z.NextIsNotRawText()

		case html.EndTagToken:
			if open == nil {
				continue
			}
			name, _ := z.TagName()
			if string(name) != open.Kind {
				continue
			}
			depth--
			if depth == 0 {
				open.End = start
				regions = append(regions, *open)
				open = nil
			}
		}
	}
}

func readAttrs(z *html.Tokenizer, more bool) map[string]string {
	attrs := make(map[string]string)
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		attrs[string(key)] = string(val)
	}
	return attrs
}

var scriptLanguages = map[string]string{
	"":    "javascript",
	"js":  "javascript",
	"jsx": "javascriptreact",
	"ts":  "typescript",
	"tsx": "tsx",
}

func resolveLanguage(kind, lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	switch kind {
	case KindTemplate:
		if lang == "" || lang == "html" {
			return "vue-html"
		}
		return lang
	case KindScript:
		if id, ok := scriptLanguages[lang]; ok {
			return id
		}
		return lang
	case KindStyle:
		if lang == "" {
			return "css"
		}
		return lang
	}
	if lang == "" {
		return kind
	}
	return lang
}

// Source returns the snapshot the regions were scanned from.
func (r *Regions) Source() *document.Document {
	return r.source
}

// All returns the regions in source order.
func (r *Regions) All() []Region {
	return r.regions
}

// Find returns the regions whose language or kind is target.
func (r *Regions) Find(target string) []Region {
	var out []Region
	for _, reg := range r.regions {
		if reg.Matches(target) {
			out = append(out, reg)
		}
	}
	return out
}

// Languages returns the distinct region languages in order of first use.
func (r *Regions) Languages() []string {
	seen := make(map[string]bool)
	var langs []string
	for _, reg := range r.regions {
		if !seen[reg.Language] {
			seen[reg.Language] = true
			langs = append(langs, reg.Language)
		}
	}
	return langs
}

func (r *Regions) primary() string {
	if r.source.LanguageID != "" {
		return r.source.LanguageID
	}
	return DefaultLanguage
}

// LanguageAt returns the language at a byte offset. An offset on a block
// boundary belongs to the block, so a cursor right after `<script>` is
// inside the script.
func (r *Regions) LanguageAt(offset int) string {
	i := sort.Search(len(r.regions), func(i int) bool { return r.regions[i].End >= offset })
	if i < len(r.regions) && r.regions[i].Start <= offset {
		return r.regions[i].Language
	}
	return r.primary()
}

// LanguageRange is a run of text in a single language.
type LanguageRange struct {
	Start    int
	End      int
	Language string
}

// LanguageRanges partitions [start, end) into language runs. Text between
// blocks is attributed to the source document's own language.
func (r *Regions) LanguageRanges(start, end int) []LanguageRange {
	start = max(start, 0)
	end = min(end, len(r.source.Text))

	var out []LanguageRange
	pos := start
	for _, reg := range r.regions {
		if reg.End <= pos || reg.Start == reg.End {
			continue
		}
		if reg.Start >= end {
			break
		}
		if reg.Start > pos {
			out = append(out, LanguageRange{Start: pos, End: reg.Start, Language: r.primary()})
			pos = reg.Start
		}
		stop := min(reg.End, end)
		out = append(out, LanguageRange{Start: pos, End: stop, Language: reg.Language})
		pos = stop
	}
	if pos < end {
		out = append(out, LanguageRange{Start: pos, End: end, Language: r.primary()})
	}
	return out
}
