package bundle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/luckyG0429/athena2/internal/model"
)

// SitemapTemplate is the reserved template identifier of the site-level
// index page. Engines substitute their built-in sitemap template for it.
const SitemapTemplate = "ath2:sitemap"

// NamePlaceholder is replaced with the entry name in output file patterns.
const NamePlaceholder = "[name]"

// DirectiveKind identifies what a Directive asks the compiler to do.
type DirectiveKind string

const (
	// KindHTML produces one HTML file from a template.
	KindHTML DirectiveKind = "html"

	// KindDll emits a vendor library manifest next to the vendor bundle.
	KindDll DirectiveKind = "dll"

	// KindDllReference resolves imports of vendor modules against a
	// previously built vendor library.
	KindDllReference DirectiveKind = "dll-reference"
)

// HTMLPage configures one HTML-generation directive.
type HTMLPage struct {
	// Title is the page title (sitemap only).
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Filename is the output path relative to the output root.
	Filename string `json:"filename" yaml:"filename"`

	// Template is the template path, or SitemapTemplate.
	Template string `json:"template" yaml:"template"`

	// Chunks restricts the injected scripts to these entries. Empty means
	// no entry scripts are injected.
	Chunks []string `json:"chunks,omitempty" yaml:"chunks,omitempty"`

	// VendorFiles are vendor script URLs injected before the page's own
	// chunks.
	VendorFiles []string `json:"vendorFiles" yaml:"vendorFiles"`

	// AlwaysWriteToDisk writes the file even if its content is unchanged.
	AlwaysWriteToDisk bool `json:"alwaysWriteToDisk" yaml:"alwaysWriteToDisk"`

	// Pages is the full page directory, passed to the sitemap template.
	Pages model.PageDirectory `json:"pages,omitempty" yaml:"pages,omitempty"`
}

// DllManifest configures emission of a vendor library manifest.
type DllManifest struct {
	// Name is the global name pattern of the library (e.g. "[name]_library").
	Name string `json:"name" yaml:"name"`

	// Path is the manifest file path pattern (e.g. ".../[name]-manifest.json").
	Path string `json:"path" yaml:"path"`

	// Context is the directory module ids in the manifest are relative to.
	Context string `json:"context" yaml:"context"`
}

// DllReference points the main build at a built vendor library.
type DllReference struct {
	// Context is the library directory the manifest was built in.
	Context string `json:"context" yaml:"context"`

	// Name is the library global name recorded in the manifest.
	Name string `json:"name" yaml:"name"`

	// Content is the module table of the manifest.
	Content map[string]any `json:"content" yaml:"content"`
}

// Directive is one plugin-like instruction to the compiler. Exactly one of
// the pointer fields is set, matching Kind.
type Directive struct {
	Kind      DirectiveKind `json:"kind" yaml:"kind"`
	HTML      *HTMLPage     `json:"html,omitempty" yaml:"html,omitempty"`
	Dll       *DllManifest  `json:"dll,omitempty" yaml:"dll,omitempty"`
	Reference *DllReference `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// HTMLDirective wraps p in a Directive.
func HTMLDirective(p HTMLPage) Directive {
	return Directive{Kind: KindHTML, HTML: &p}
}

// DllDirective wraps m in a Directive.
func DllDirective(m DllManifest) Directive {
	return Directive{Kind: KindDll, Dll: &m}
}

// ReferenceDirective wraps r in a Directive.
func ReferenceDirective(r DllReference) Directive {
	return Directive{Kind: KindDllReference, Reference: &r}
}

// Output describes where and how bundles are written.
type Output struct {
	// Path is the absolute output directory.
	Path string `json:"path" yaml:"path"`

	// Filename is the entry bundle name pattern.
	Filename string `json:"filename" yaml:"filename"`

	// PublicPath is the URL prefix of the output directory.
	PublicPath string `json:"publicPath,omitempty" yaml:"publicPath,omitempty"`

	// ChunkFilename is the split chunk name pattern, relative to Path.
	ChunkFilename string `json:"chunkFilename,omitempty" yaml:"chunkFilename,omitempty"`

	// Library is the global variable name pattern for library builds.
	Library string `json:"library,omitempty" yaml:"library,omitempty"`
}

// Config is the complete, engine-neutral configuration of one compiler run.
type Config struct {
	// Stage is model.StageVendor or model.StageMain.
	Stage string `json:"stage" yaml:"stage"`

	// Context is the directory relative imports resolve against.
	Context string `json:"context" yaml:"context"`

	// Entry maps entry names to source files.
	Entry map[string][]string `json:"entry" yaml:"entry"`

	// Output is the output layout.
	Output Output `json:"output" yaml:"output"`

	// Settings holds the merged configuration layers.
	Settings Settings `json:"settings,omitempty" yaml:"settings,omitempty"`

	// Directives lists HTML, dll and dll-reference directives in order.
	Directives []Directive `json:"directives" yaml:"directives"`

	// Env holds variables exposed to the compiled code as process.env.*.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// EntryNames returns the entry names in sorted order.
func (c *Config) EntryNames() []string {
	names := make([]string, 0, len(c.Entry))
	for n := range c.Entry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HTMLPages returns the HTML directives in order.
func (c *Config) HTMLPages() []*HTMLPage {
	var pages []*HTMLPage
	for _, d := range c.Directives {
		if d.Kind == KindHTML && d.HTML != nil {
			pages = append(pages, d.HTML)
		}
	}
	return pages
}

// Dll returns the dll directive, or nil.
func (c *Config) Dll() *DllManifest {
	for _, d := range c.Directives {
		if d.Kind == KindDll && d.Dll != nil {
			return d.Dll
		}
	}
	return nil
}

// Reference returns the dll-reference directive, or nil.
func (c *Config) Reference() *DllReference {
	for _, d := range c.Directives {
		if d.Kind == KindDllReference && d.Reference != nil {
			return d.Reference
		}
	}
	return nil
}

// ExpandName substitutes name for every [name] placeholder in pattern.
func ExpandName(pattern, name string) string {
	return strings.ReplaceAll(pattern, NamePlaceholder, name)
}

// Settings is a merged settings tree. Values come from Go literals or from
// decoded JSON, YAML and TOML, so accessors accept both typed and generic
// containers.
type Settings map[string]any

// Bool returns the boolean at key; false when absent or not a bool.
func (s Settings) Bool(key string) bool {
	b, _ := s[key].(bool)
	return b
}

// String returns the string at key; "" when absent or not a string.
func (s Settings) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Strings returns the string list at key.
func (s Settings) Strings(key string) []string {
	switch v := s[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

// StringMap returns the string table at key.
func (s Settings) StringMap(key string) map[string]string {
	switch v := s[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			out[k] = fmt.Sprint(item)
		}
		return out
	default:
		return nil
	}
}

// Sub returns the nested settings at key.
func (s Settings) Sub(key string) Settings {
	switch v := s[key].(type) {
	case map[string]any:
		return Settings(v)
	case Settings:
		return v
	default:
		return nil
	}
}
