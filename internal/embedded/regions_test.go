package embedded

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/jsvensson/embedls/internal/document"
)

const sample = "<template><div/></template><script>let x=1</script>"

func newDoc(text string) *document.Document {
	return document.New("test://file.vue", "vue", 1, 1, text)
}

func TestScan(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Region
	}{
		{
			name: "template and script",
			text: sample,
			want: []Region{
				{Kind: "template", Language: "vue-html", Start: 10, End: 16},
				{Kind: "script", Language: "javascript", Start: 35, End: 42},
			},
		},
		{
			name: "lang attributes",
			text: `<script lang="ts" setup>a</script><style lang="scss" scoped>b</style>`,
			want: []Region{
				{Kind: "script", Language: "typescript", Start: 24, End: 25, Attrs: map[string]string{"lang": "ts", "setup": ""}},
				{Kind: "style", Language: "scss", Start: 60, End: 61, Attrs: map[string]string{"lang": "scss", "scoped": ""}},
			},
		},
		{
			name: "custom blocks",
			text: `<i18n lang="json">{}</i18n><docs>x</docs>`,
			want: []Region{
				{Kind: "i18n", Language: "json", Start: 18, End: 20, Attrs: map[string]string{"lang": "json"}},
				{Kind: "docs", Language: "docs", Start: 33, End: 34},
			},
		},
		{
			name: "unclosed template runs to end",
			text: "<template><div>",
			want: []Region{
				{Kind: "template", Language: "vue-html", Start: 10, End: 15},
			},
		},
		{
			name: "unclosed script runs to end",
			text: "<script>let x",
			want: []Region{
				{Kind: "script", Language: "javascript", Start: 8, End: 13},
			},
		},
		{
			name: "nested template",
			text: "<template><template v-if>a</template></template><style>b</style>",
			want: []Region{
				{Kind: "template", Language: "vue-html", Start: 10, End: 37},
				{Kind: "style", Language: "css", Start: 55, End: 56},
			},
		},
		{
			name: "commented block is ignored",
			text: "<!-- <script>x</script> --><style>a</style>",
			want: []Region{
				{Kind: "style", Language: "css", Start: 34, End: 35},
			},
		},
		{
			name: "self-closing script keeps later blocks",
			text: "<template><div/></template>\n<script src=\"./main.js\" />\n<style>a{color:red}</style>\n",
			want: []Region{
				{Kind: "template", Language: "vue-html", Start: 10, End: 16},
				{Kind: "style", Language: "css", Start: 62, End: 74},
			},
		},
		{
			name: "self-closing style keeps later blocks",
			text: `<style src="a.css" /><script>x</script>`,
			want: []Region{
				{Kind: "script", Language: "javascript", Start: 29, End: 30},
			},
		},
		{
			name: "self-closing raw text element inside template",
			text: "<template><textarea/></template><script>x</script>",
			want: []Region{
				{Kind: "template", Language: "vue-html", Start: 10, End: 21},
				{Kind: "script", Language: "javascript", Start: 40, End: 41},
			},
		},
		{
			name: "empty document",
			text: "",
			want: nil,
		},
		{
			name: "plain text",
			text: "just some words",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scan(newDoc(tt.text)).All()
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScan_AfterSelfClosingBlock(t *testing.T) {
	doc := newDoc("<template><div/></template>\n<script src=\"./main.js\" />\n<style>a{color:red}</style>\n")
	regions := Scan(doc)

	if got := regions.LanguageAt(66); got != "css" {
		t.Errorf("LanguageAt(66) = %q, want css", got)
	}
	if regions.Project("css").Empty() {
		t.Error("Project(css) is empty")
	}
	if !regions.Project("javascript").Empty() {
		t.Error("Project(javascript) of a self-closing script is not empty")
	}
}

func TestResolveLanguage(t *testing.T) {
	tests := []struct {
		kind, lang, want string
	}{
		{"template", "", "vue-html"},
		{"template", "html", "vue-html"},
		{"template", "pug", "pug"},
		{"script", "", "javascript"},
		{"script", "JS", "javascript"},
		{"script", "jsx", "javascriptreact"},
		{"script", "ts", "typescript"},
		{"script", "tsx", "tsx"},
		{"script", "coffee", "coffee"},
		{"style", "", "css"},
		{"style", "less", "less"},
		{"docs", "", "docs"},
		{"docs", "md", "md"},
	}

	for _, tt := range tests {
		if got := resolveLanguage(tt.kind, tt.lang); got != tt.want {
			t.Errorf("resolveLanguage(%q, %q) = %q, want %q", tt.kind, tt.lang, got, tt.want)
		}
	}
}

func TestLanguageAt(t *testing.T) {
	regions := Scan(newDoc(sample))

	tests := []struct {
		offset int
		want   string
	}{
		{0, "vue"},
		{5, "vue"},
		{10, "vue-html"},
		{12, "vue-html"},
		{16, "vue-html"},
		{20, "vue"},
		{38, "javascript"},
		{50, "vue"},
	}

	for _, tt := range tests {
		if got := regions.LanguageAt(tt.offset); got != tt.want {
			t.Errorf("LanguageAt(%d) = %q, want %q", tt.offset, got, tt.want)
		}
	}
}

func TestLanguageAt_DefaultLanguage(t *testing.T) {
	regions := Scan(document.New("test://x", "", 1, 1, "text"))
	if got := regions.LanguageAt(1); got != DefaultLanguage {
		t.Errorf("LanguageAt() = %q, want %q", got, DefaultLanguage)
	}
}

func TestLanguageRanges(t *testing.T) {
	regions := Scan(newDoc(sample))

	got := regions.LanguageRanges(0, len(sample))
	want := []LanguageRange{
		{Start: 0, End: 10, Language: "vue"},
		{Start: 10, End: 16, Language: "vue-html"},
		{Start: 16, End: 35, Language: "vue"},
		{Start: 35, End: 42, Language: "javascript"},
		{Start: 42, End: 51, Language: "vue"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LanguageRanges() mismatch (-want +got):\n%s", diff)
	}

	got = regions.LanguageRanges(12, 38)
	want = []LanguageRange{
		{Start: 12, End: 16, Language: "vue-html"},
		{Start: 16, End: 35, Language: "vue"},
		{Start: 35, End: 38, Language: "javascript"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LanguageRanges(12, 38) mismatch (-want +got):\n%s", diff)
	}
}

func TestLanguages(t *testing.T) {
	text := "<template>a</template><style>b</style><style lang=\"scss\">c</style><style>d</style>"
	got := Scan(newDoc(text)).Languages()
	want := []string{"vue-html", "css", "scss"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Languages() mismatch (-want +got):\n%s", diff)
	}
}

func TestFind(t *testing.T) {
	text := `<script>a</script><script lang="ts">b</script>`
	regions := Scan(newDoc(text))

	if got := len(regions.Find("script")); got != 2 {
		t.Errorf("Find(script) returned %d regions, want 2", got)
	}
	if got := len(regions.Find("typescript")); got != 1 {
		t.Errorf("Find(typescript) returned %d regions, want 1", got)
	}
	if got := len(regions.Find("css")); got != 0 {
		t.Errorf("Find(css) returned %d regions, want 0", got)
	}
}
