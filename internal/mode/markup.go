package mode

import (
	"fmt"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jsvensson/embedls/internal/cache"
	"github.com/jsvensson/embedls/internal/config"
	"github.com/jsvensson/embedls/internal/document"
	"github.com/jsvensson/embedls/internal/embedded"
	"github.com/jsvensson/embedls/internal/markup"
)

// MarkupLanguage is the language of template blocks without a lang
// attribute.
const MarkupLanguage = "vue-html"

// MarkupOptions configures NewMarkup.
type MarkupOptions struct {
	Config config.Config
	// Components, when set, contributes each document's child components to
	// tag resolution. Nil disables it.
	Components ComponentSource
}

// Markup serves template blocks.
type Markup struct {
	regions    *cache.Cache[*embedded.Regions]
	embedded   *cache.Cache[*embedded.VirtualDocument]
	trees      *cache.Cache[*markup.Tree]
	components ComponentSource

	mu  sync.RWMutex
	cfg config.Config
}

// NewMarkup builds the mode on top of a regions cache shared with other
// modes. Its own caches are bounded by opts.Config.
func NewMarkup(regions *cache.Cache[*embedded.Regions], opts MarkupOptions) (*Markup, error) {
	m := &Markup{
		regions:    regions,
		components: opts.Components,
		cfg:        opts.Config.Clone(),
	}

	var err error
	m.embedded, err = cache.New[*embedded.VirtualDocument](
		opts.Config.CacheConfig(),
		cache.ProducerFunc[*embedded.VirtualDocument](m.project),
		cache.WithName("markup.embedded"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedded document cache: %w", err)
	}

	m.trees, err = cache.New[*markup.Tree](
		opts.Config.CacheConfig(),
		cache.ProducerFunc[*markup.Tree](func(doc *document.Document) (*markup.Tree, error) {
			return markup.Parse(doc.Text), nil
		}),
		cache.WithName("markup.tree"),
	)
	if err != nil {
		m.embedded.Dispose()
		return nil, fmt.Errorf("creating markup tree cache: %w", err)
	}

	return m, nil
}

func (m *Markup) project(doc *document.Document) (*embedded.VirtualDocument, error) {
	regions, err := m.regions.Get(doc)
	if err != nil {
		return nil, err
	}
	return regions.Project(MarkupLanguage), nil
}

func (m *Markup) ID() string {
	return MarkupLanguage
}

// Configure replaces the validation and tag settings. Cache bounds are
// fixed when the mode is created.
func (m *Markup) Configure(cfg config.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg.Clone()
}

func (m *Markup) config() config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// load returns the virtual template document and its parse tree.
func (m *Markup) load(doc *document.Document) (*embedded.VirtualDocument, *markup.Tree, error) {
	vdoc, err := m.embedded.Get(doc)
	if err != nil {
		return nil, nil, err
	}
	tree, err := m.trees.Get(vdoc.Document())
	if err != nil {
		return nil, nil, err
	}
	return vdoc, tree, nil
}

func (m *Markup) tags(cfg config.Config, doc *document.Document) (*tagIndex, error) {
	var components []string
	if m.components != nil {
		regions, err := m.regions.Get(doc)
		if err != nil {
			return nil, err
		}
		components = m.components.Components(regions)
	}
	return newTagIndex(cfg, components), nil
}

// sourceRange converts a span reported against the virtual document into a
// source range. Offsets are shared, so only the line table differs.
func sourceRange(vdoc *embedded.VirtualDocument, start, end int) protocol.Range {
	return vdoc.Source().RangeAt(vdoc.SourceOffset(start), vdoc.SourceOffset(end))
}

// Validate reports elements without an end tag and end tags that close
// nothing.
func (m *Markup) Validate(doc *document.Document) ([]protocol.Diagnostic, error) {
	if !m.config().Validation.Template {
		return nil, nil
	}

	vdoc, tree, err := m.load(doc)
	if err != nil {
		return nil, err
	}
	if vdoc.Empty() {
		return nil, nil
	}

	var diags []protocol.Diagnostic
	tree.Walk(func(n *markup.Node) bool {
		if !n.Closed {
			s, e := n.StartTagName()
			diags = append(diags, protocol.Diagnostic{
				Range:    sourceRange(vdoc, s, e),
				Severity: &diagError,
				Source:   strPtr(diagnosticSource),
				Message:  fmt.Sprintf("Element <%s> is not closed", n.Tag),
			})
		}
		return true
	})
	for _, st := range tree.Stray {
		diags = append(diags, protocol.Diagnostic{
			Range:    sourceRange(vdoc, st.Start, st.End),
			Severity: &diagWarning,
			Source:   strPtr(diagnosticSource),
			Message:  fmt.Sprintf("Unexpected closing tag </%s>", st.Tag),
		})
	}
	return diags, nil
}

// DocumentSymbols returns the element outline of the template.
func (m *Markup) DocumentSymbols(doc *document.Document) ([]protocol.DocumentSymbol, error) {
	vdoc, tree, err := m.load(doc)
	if err != nil {
		return nil, err
	}
	idx, err := m.tags(m.config(), doc)
	if err != nil {
		return nil, err
	}

	var build func(nodes []*markup.Node) []protocol.DocumentSymbol
	build = func(nodes []*markup.Node) []protocol.DocumentSymbol {
		var out []protocol.DocumentSymbol
		for _, n := range nodes {
			provider, name := idx.lookup(n.Tag)
			if id := n.Attrs["id"]; id != "" {
				name += "#" + id
			}

			kind := protocol.SymbolKindField
			if provider == ProviderComponent {
				kind = protocol.SymbolKindClass
			}

			s, e := n.StartTagName()
			sym := protocol.DocumentSymbol{
				Name:           name,
				Kind:           kind,
				Range:          sourceRange(vdoc, n.Start, n.End),
				SelectionRange: sourceRange(vdoc, s, e),
				Children:       build(n.Children),
			}
			if provider != "" {
				sym.Detail = strPtr(provider)
			}
			out = append(out, sym)
		}
		return out
	}

	return build(tree.Roots), nil
}

// DocumentHighlights highlights an element's start and end tag names when
// the cursor is on either.
func (m *Markup) DocumentHighlights(doc *document.Document, pos protocol.Position) ([]protocol.DocumentHighlight, error) {
	vdoc, tree, err := m.load(doc)
	if err != nil {
		return nil, err
	}

	offset := doc.OffsetAt(pos)
	n := tree.NodeAt(offset)
	if n == nil {
		return nil, nil
	}

	s, e := n.StartTagName()
	es, ee, hasEnd := n.EndTagName()
	onStart := offset >= s && offset <= e
	onEnd := hasEnd && offset >= es && offset <= ee
	if !onStart && !onEnd {
		return nil, nil
	}

	kind := protocol.DocumentHighlightKindText
	highlights := []protocol.DocumentHighlight{
		{Range: sourceRange(vdoc, s, e), Kind: &kind},
	}
	if hasEnd {
		highlights = append(highlights, protocol.DocumentHighlight{Range: sourceRange(vdoc, es, ee), Kind: &kind})
	}
	return highlights, nil
}

func (m *Markup) Caches() []cache.Observable {
	return []cache.Observable{m.embedded, m.trees}
}

func (m *Markup) DocumentRemoved(uri string) {
	m.embedded.Remove(uri)
	m.trees.Remove(uri)
}

func (m *Markup) Dispose() {
	m.embedded.Dispose()
	m.trees.Dispose()
}
