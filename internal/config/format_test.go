package config

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "attributes aligned",
			input:    "cache {\nmax_entries=5\nmax_age_seconds=30\n}\n",
			expected: "cache {\n  max_entries     = 5\n  max_age_seconds = 30\n}\n",
		},
		{
			name:     "already formatted stays same",
			input:    "validation {\n  template = true\n}\n",
			expected: "validation {\n  template = true\n}\n",
		},
		{
			name:     "empty content",
			input:    "",
			expected: "",
		},
		{
			name:     "multiple blank lines collapsed to one",
			input:    "log_file = \"a\"\n\n\n\ncache {}\n",
			expected: "log_file = \"a\"\n\ncache {}\n",
		},
		{
			name:     "blank lines inside braces removed",
			input:    "cache {\n\n  max_entries = 5\n\n}\n",
			expected: "cache {\n  max_entries = 5\n}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Format([]byte(tt.input)))
			if got != tt.expected {
				t.Errorf("Format() =\n%q\nwant\n%q", got, tt.expected)
			}
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	custom := Default()
	custom.LogFile = "/var/log/embedls.log"
	custom.Cache = Cache{MaxEntries: 4, MaxAgeSeconds: 15}
	custom.Validation.Template = false
	custom.Tags.Providers[ProviderRouter] = true
	custom.Tags.Components = []string{"app-shell", "base-button"}

	for name, cfg := range map[string]Config{"default": Default(), "custom": custom} {
		t.Run(name, func(t *testing.T) {
			src := Encode(cfg)
			got, err := Parse(src, FileName, "")
			if err != nil {
				t.Fatalf("Parse(Encode()) error = %v\n%s", err, src)
			}
			if diff := cmp.Diff(cfg, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s\nsource:\n%s", diff, src)
			}
			if string(Format(src)) != string(src) {
				t.Errorf("Encode() output is not formatted:\n%s", src)
			}
		})
	}
}

func TestEncode_Default(t *testing.T) {
	src := string(Encode(Default()))
	for _, want := range []string{"max_entries     = 10", "max_age_seconds = 60", "template = true", "router = false"} {
		if !strings.Contains(src, want) {
			t.Errorf("Encode(Default()) missing %q:\n%s", want, src)
		}
	}
	if strings.Contains(src, "log_file") {
		t.Errorf("Encode(Default()) wrote an empty log_file:\n%s", src)
	}
}
