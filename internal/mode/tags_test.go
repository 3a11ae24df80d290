package mode

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jsvensson/embedls/internal/config"
	"github.com/jsvensson/embedls/internal/document"
	"github.com/jsvensson/embedls/internal/embedded"
)

func TestScriptComponents(t *testing.T) {
	text := `<template><div/></template>
<script>
import MyButton from './MyButton.vue'
export default {
  components: {
    MyButton,
    'base-icon': BaseIcon,
    AppShell: Shell,
  },
}
</script>
<script setup>
const x = { components: { MyButton } }
</script>`

	regions := embedded.Scan(document.New("test://a.vue", "vue", 1, 1, text))
	got := ScriptComponents{}.Components(regions)
	want := []string{"app-shell", "base-icon", "my-button"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Components() mismatch (-want +got):\n%s", diff)
	}
}

func TestScriptComponents_None(t *testing.T) {
	regions := embedded.Scan(document.New("test://a.vue", "vue", 1, 1, "<template><p/></template>"))
	if got := (ScriptComponents{}).Components(regions); len(got) != 0 {
		t.Errorf("Components() = %v, want none", got)
	}
}

func TestTagIndex(t *testing.T) {
	cfg := config.Default()
	cfg.Tags.Components = []string{"BaseButton"}

	tests := []struct {
		name         string
		cfg          config.Config
		components   []string
		tag          string
		wantProvider string
		wantName     string
	}{
		{"html5 tag", cfg, nil, "div", config.ProviderHTML5, "div"},
		{"vue wins over html5", cfg, nil, "template", config.ProviderVue, "template"},
		{"vue builtin", cfg, nil, "transition", config.ProviderVue, "transition"},
		{"router disabled", cfg, nil, "router-view", "", "router-view"},
		{"global component", cfg, nil, "basebutton", ProviderComponent, "base-button"},
		{"document component", cfg, []string{"user-card"}, "usercard", ProviderComponent, "user-card"},
		{"unknown", cfg, nil, "foo", "", "foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, name := newTagIndex(tt.cfg, tt.components).lookup(tt.tag)
			if provider != tt.wantProvider || name != tt.wantName {
				t.Errorf("lookup(%q) = %q, %q; want %q, %q", tt.tag, provider, name, tt.wantProvider, tt.wantName)
			}
		})
	}
}

func TestTagIndex_RouterEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.Tags.Providers[config.ProviderRouter] = true
	if p, _ := newTagIndex(cfg, nil).lookup("router-link"); p != config.ProviderRouter {
		t.Errorf("lookup(router-link) provider = %q", p)
	}
}
