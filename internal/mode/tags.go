package mode

import (
	"regexp"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/jsvensson/embedls/internal/config"
	"github.com/jsvensson/embedls/internal/embedded"
)

// ProviderComponent labels tags that resolve to a registered component.
const ProviderComponent = "component"

var tagSets = map[string][]string{
	config.ProviderHTML5: {
		"a", "abbr", "address", "area", "article", "aside", "audio", "b", "base",
		"bdi", "bdo", "blockquote", "body", "br", "button", "canvas", "caption",
		"cite", "code", "col", "colgroup", "data", "datalist", "dd", "del",
		"details", "dfn", "dialog", "div", "dl", "dt", "em", "embed", "fieldset",
		"figcaption", "figure", "footer", "form", "h1", "h2", "h3", "h4", "h5",
		"h6", "head", "header", "hr", "html", "i", "iframe", "img", "input", "ins",
		"kbd", "label", "legend", "li", "link", "main", "map", "mark", "menu",
		"meta", "meter", "nav", "noscript", "object", "ol", "optgroup", "option",
		"output", "p", "param", "picture", "pre", "progress", "q", "rp", "rt",
		"ruby", "s", "samp", "script", "section", "select", "slot", "small",
		"source", "span", "strong", "style", "sub", "summary", "sup", "svg",
		"table", "tbody", "td", "template", "textarea", "tfoot", "th", "thead",
		"time", "title", "tr", "track", "u", "ul", "var", "video", "wbr",
	},
	config.ProviderVue: {
		"component", "keep-alive", "slot", "suspense", "teleport", "template",
		"transition", "transition-group",
	},
	config.ProviderRouter: {
		"router-link", "router-view",
	},
}

// providerOrder decides which provider claims a tag known to several.
var providerOrder = []string{config.ProviderVue, config.ProviderRouter, config.ProviderHTML5}

// tagKey folds PascalCase and kebab-case spellings of a tag together. The
// tokenizer lower-cases tag names, so <MyButton> and <my-button> must meet.
func tagKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "")
}

// tagIndex resolves tag names to the provider that defines them.
type tagIndex struct {
	providers  []string
	components map[string]string
}

func newTagIndex(cfg config.Config, components []string) *tagIndex {
	idx := &tagIndex{components: make(map[string]string)}
	for _, p := range providerOrder {
		if cfg.ProviderEnabled(p) {
			idx.providers = append(idx.providers, p)
		}
	}
	for _, c := range cfg.Tags.Components {
		idx.components[tagKey(c)] = strcase.ToKebab(c)
	}
	for _, c := range components {
		idx.components[tagKey(c)] = strcase.ToKebab(c)
	}
	return idx
}

// lookup returns the provider for tag, and for components their kebab-case
// name. An unknown tag returns "".
func (idx *tagIndex) lookup(tag string) (provider, name string) {
	if c, ok := idx.components[tagKey(tag)]; ok {
		return ProviderComponent, c
	}
	for _, p := range idx.providers {
		if slices.Contains(tagSets[p], tag) {
			return p, tag
		}
	}
	return "", tag
}

// ComponentSource reports the child components a document declares. It is
// an optional capability of the markup mode.
type ComponentSource interface {
	Components(regions *embedded.Regions) []string
}

var (
	componentsBlock = regexp.MustCompile(`components\s*:\s*\{([^}]*)\}`)
	componentKey    = regexp.MustCompile(`^\s*['"]?([A-Za-z_$][\w$-]*)['"]?`)
)

// ScriptComponents reads the `components: { ... }` option from script
// blocks. Names are returned in kebab-case, sorted and de-duplicated.
type ScriptComponents struct{}

func (ScriptComponents) Components(regions *embedded.Regions) []string {
	text := regions.Source().Text

	var names []string
	for _, reg := range regions.Find(embedded.KindScript) {
		body := text[reg.Start:reg.End]
		for _, m := range componentsBlock.FindAllStringSubmatch(body, -1) {
			for _, item := range strings.Split(m[1], ",") {
				key := componentKey.FindStringSubmatch(item)
				if key == nil {
					continue
				}
				names = append(names, strcase.ToKebab(key[1]))
			}
		}
	}

	slices.Sort(names)
	return slices.Compact(names)
}
