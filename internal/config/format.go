package config

import (
	"regexp"
	"slices"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

var multipleBlankLines = regexp.MustCompile(`\n{3,}`)
var blankLineAfterOpenBrace = regexp.MustCompile(`\{\n\s*\n`)
var blankLineBeforeCloseBrace = regexp.MustCompile(`\n\s*\n(\s*\})`)

// Format returns embedls.hcl source in canonical HCL style with runs of
// blank lines collapsed. It works on partial or invalid input.
func Format(src []byte) []byte {
	formatted := hclwrite.Format(src)
	collapsed := multipleBlankLines.ReplaceAll(formatted, []byte("\n\n"))
	collapsed = blankLineAfterOpenBrace.ReplaceAll(collapsed, []byte("{\n"))
	collapsed = blankLineBeforeCloseBrace.ReplaceAll(collapsed, []byte("\n${1}"))
	return collapsed
}

// Encode renders cfg as an embedls.hcl file that Parse reads back to cfg.
func Encode(cfg Config) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	if cfg.LogFile != "" {
		body.SetAttributeValue("log_file", cty.StringVal(cfg.LogFile))
		body.AppendNewline()
	}

	c := body.AppendNewBlock("cache", nil).Body()
	c.SetAttributeValue("max_entries", cty.NumberIntVal(int64(cfg.Cache.MaxEntries)))
	c.SetAttributeValue("max_age_seconds", cty.NumberIntVal(int64(cfg.Cache.MaxAgeSeconds)))
	body.AppendNewline()

	v := body.AppendNewBlock("validation", nil).Body()
	v.SetAttributeValue("template", cty.BoolVal(cfg.Validation.Template))

	if len(cfg.Tags.Providers) == 0 && len(cfg.Tags.Components) == 0 {
		return Format(f.Bytes())
	}
	body.AppendNewline()
	t := body.AppendNewBlock("tags", nil).Body()
	if len(cfg.Tags.Providers) > 0 {
		providers := make(map[string]cty.Value, len(cfg.Tags.Providers))
		for name, on := range cfg.Tags.Providers {
			providers[name] = cty.BoolVal(on)
		}
		t.SetAttributeValue("providers", cty.ObjectVal(providers))
	}
	if len(cfg.Tags.Components) > 0 {
		components := make([]cty.Value, 0, len(cfg.Tags.Components))
		for _, name := range slices.Sorted(slices.Values(cfg.Tags.Components)) {
			components = append(components, cty.StringVal(name))
		}
		t.SetAttributeValue("components", cty.ListVal(components))
	}
	return Format(f.Bytes())
}
