// Package config holds the server settings: defaults, the optional
// embedls.hcl project file, and overrides pushed by the editor.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/jsvensson/embedls/internal/cache"
)

// FileName is the project file looked up in the workspace root.
const FileName = "embedls.hcl"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Tag providers that can be toggled.
const (
	ProviderHTML5  = "html5"
	ProviderVue    = "vue"
	ProviderRouter = "router"
)

var knownProviders = []string{ProviderHTML5, ProviderVue, ProviderRouter}

// Config is the complete set of recognized options.
type Config struct {
	Cache      Cache      `json:"cache"`
	Validation Validation `json:"validation"`
	Tags       Tags       `json:"tags"`
	// LogFile, when set, receives the server log instead of stderr.
	LogFile string `json:"logFile"`
}

// Cache bounds every artifact cache the server creates.
type Cache struct {
	MaxEntries    int `json:"maxEntries"`
	MaxAgeSeconds int `json:"maxAgeSeconds"`
}

// Validation toggles diagnostics.
type Validation struct {
	// Template reports unclosed elements and stray end tags.
	Template bool `json:"template"`
}

// Tags configures which tag names the markup mode recognizes.
type Tags struct {
	// Providers enables tag sets by name: html5, vue and router.
	Providers map[string]bool `json:"providers"`
	// Components are globally registered component names.
	Components []string `json:"components"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Cache: Cache{
			MaxEntries:    10,
			MaxAgeSeconds: 60,
		},
		Validation: Validation{Template: true},
		Tags: Tags{
			Providers: map[string]bool{
				ProviderHTML5:  true,
				ProviderVue:    true,
				ProviderRouter: false,
			},
		},
	}
}

// Clone returns a deep copy so that overlays never write through to c.
func (c Config) Clone() Config {
	out := c
	out.Tags.Providers = maps.Clone(c.Tags.Providers)
	out.Tags.Components = slices.Clone(c.Tags.Components)
	return out
}

// CacheConfig converts the cache settings for cache.New.
func (c Config) CacheConfig() cache.Config {
	return cache.NewConfig(c.Cache.MaxEntries, c.Cache.MaxAgeSeconds)
}

// ProviderEnabled reports whether a tag provider is switched on.
func (c Config) ProviderEnabled(name string) bool {
	return c.Tags.Providers[name]
}

// Validate checks bounds and provider names.
func (c Config) Validate() error {
	if err := c.CacheConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	for name := range c.Tags.Providers {
		if !slices.Contains(knownProviders, name) {
			return fmt.Errorf("%w: unknown tag provider %q (known: %v)", ErrInvalid, name, knownProviders)
		}
	}
	return nil
}

// FromSettings overlays editor settings on base. Only the fields present in
// settings change. Settings may be wrapped in an "embedls" section.
func FromSettings(base Config, settings any) (Config, error) {
	cfg := base.Clone()
	if settings == nil {
		return cfg, nil
	}

	if m, ok := settings.(map[string]any); ok {
		if section, ok := m["embedls"]; ok {
			settings = section
		}
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return base, fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}
