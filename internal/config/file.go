package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// fileConfig mirrors Config for gohcl. Pointers tell an omitted value apart
// from a zero one so the file only overrides what it sets.
type fileConfig struct {
	LogFile    *string         `hcl:"log_file,optional"`
	Cache      *fileCache      `hcl:"cache,block"`
	Validation *fileValidation `hcl:"validation,block"`
	Tags       *fileTags       `hcl:"tags,block"`
}

type fileCache struct {
	MaxEntries    *int `hcl:"max_entries,optional"`
	MaxAgeSeconds *int `hcl:"max_age_seconds,optional"`
}

type fileValidation struct {
	Template *bool `hcl:"template,optional"`
}

type fileTags struct {
	Providers  map[string]bool `hcl:"providers,optional"`
	Components []string        `hcl:"components,optional"`
}

// LoadFile reads an embedls.hcl file on top of the defaults. A missing file
// is reported with an error satisfying errors.Is(err, fs.ErrNotExist).
func LoadFile(path, workspace string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(src, path, workspace)
}

// Parse decodes HCL source. Expressions may refer to `workspace`, the
// workspace root path, and `env`, the process environment, for example
// log_file = "${workspace}/.embedls.log".
func Parse(src []byte, filename, workspace string) (Config, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("parsing HCL: %s", diags.Error())
	}

	var raw fileConfig
	if diags := gohcl.DecodeBody(file.Body, evalContext(workspace), &raw); diags.HasErrors() {
		return Config{}, fmt.Errorf("decoding config: %s", diags.Error())
	}

	cfg := Default()
	raw.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

func (f *fileConfig) apply(cfg *Config) {
	if f.LogFile != nil {
		cfg.LogFile = *f.LogFile
	}
	if c := f.Cache; c != nil {
		if c.MaxEntries != nil {
			cfg.Cache.MaxEntries = *c.MaxEntries
		}
		if c.MaxAgeSeconds != nil {
			cfg.Cache.MaxAgeSeconds = *c.MaxAgeSeconds
		}
	}
	if v := f.Validation; v != nil && v.Template != nil {
		cfg.Validation.Template = *v.Template
	}
	if t := f.Tags; t != nil {
		for name, on := range t.Providers {
			cfg.Tags.Providers[name] = on
		}
		if t.Components != nil {
			cfg.Tags.Components = t.Components
		}
	}
}

func evalContext(workspace string) *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"workspace": cty.StringVal(workspace),
			"env":       cty.ObjectVal(env),
		},
	}
}
