package bundle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/luckyG0429/athena2/internal/model"
)

// testConfig returns an app configuration rooted at /work/shop.
func testConfig() model.BuildConfiguration {
	return model.BuildConfiguration{
		Kind:    model.KindApp,
		AppPath: "/work/shop",
		App:     model.AppSettings{Name: "shop", Framework: "react", Platform: "mobile", ModuleList: []string{"a", "b"}},
		Output: model.OutputSettings{
			PublicPath:     "/",
			OutputRoot:     "dist",
			ChunkDirectory: "chunk",
			Library:        &model.LibrarySettings{Libs: []string{"react", "react-dom"}},
		},
	}
}

// testPlan returns a plan with modules a and b, each with one page "index".
func testPlan() *model.Plan {
	return &model.Plan{
		Modules: []string{"a", "b"},
		Entries: model.EntryMap{
			"a/index": {"/work/shop/a/page/index/index.js"},
			"b/index": {"/work/shop/b/page/index/index.js"},
		},
		Pages: model.PageDirectory{
			"a": {"index": {Filename: "index.html", Filepath: "/work/shop/a/page/index/index.html"}},
			"b": {"index": {Filename: "index.html", Filepath: "/work/shop/b/page/index/index.html"}},
		},
	}
}

// --- AssembleMain tests ---

// TestAssembleMain_HTMLDirectives verifies one sitemap directive plus one
// directive per page, each restricted to its own chunk.
func TestAssembleMain_HTMLDirectives(t *testing.T) {
	c, err := AssembleMain(testConfig(), testPlan())
	require.NoError(t, err)

	pages := c.HTMLPages()
	require.Len(t, pages, 3)

	sitemap := pages[0]
	assert.Equal(t, "shop", sitemap.Title)
	assert.Equal(t, SitemapFilename, sitemap.Filename)
	assert.Equal(t, SitemapTemplate, sitemap.Template)
	assert.True(t, sitemap.AlwaysWriteToDisk)
	assert.Empty(t, sitemap.Chunks)
	assert.Len(t, sitemap.Pages, 2)

	assert.Equal(t, "a/index.html", pages[1].Filename)
	assert.Equal(t, "/work/shop/a/page/index/index.html", pages[1].Template)
	assert.Equal(t, []string{"a/index"}, pages[1].Chunks)

	assert.Equal(t, "b/index.html", pages[2].Filename)
	assert.Equal(t, []string{"b/index"}, pages[2].Chunks)

	for _, p := range pages[1:] {
		assert.NotNil(t, p.VendorFiles, "vendor files must be an empty list, not nil")
		assert.Empty(t, p.VendorFiles)
		assert.True(t, p.AlwaysWriteToDisk)
	}
	assert.Nil(t, c.Reference(), "no dll-reference without a vendor stage")
}

// TestAssembleMain_Output verifies the output layout and entry map.
func TestAssembleMain_Output(t *testing.T) {
	c, err := AssembleMain(testConfig(), testPlan())
	require.NoError(t, err)

	assert.Equal(t, model.StageMain, c.Stage)
	assert.Equal(t, Output{
		Path:          "/work/shop/dist",
		Filename:      "[name].js",
		PublicPath:    "/",
		ChunkFilename: "chunk/[name].chunk.js",
	}, c.Output)
	assert.Equal(t, []string{"a/index", "b/index"}, c.EntryNames())
	assert.Equal(t, ModeProduction, c.Settings.String(KeyMode))
	assert.True(t, c.Settings.Bool(KeyMinify))
	assert.Equal(t, "React.createElement", c.Settings.Sub(KeyJSX).String("factory"))
	assert.Equal(t, platformTargets["mobile"], c.Settings.Strings(KeyTarget))
}

// TestAssembleMain_Vendor verifies the dll-reference directive and vendor
// URLs when a vendor manifest is present.
func TestAssembleMain_Vendor(t *testing.T) {
	plan := testPlan()
	content := map[string]any{"./node_modules/react/index.js": map[string]any{"id": float64(1)}}
	plan.Vendor = &model.VendorManifest{
		Name:       "vendor_library",
		Context:    "/work/shop/dist/lib",
		Content:    content,
		AssetPaths: []string{"vendor.dll.js"},
	}

	c, err := AssembleMain(testConfig(), plan)
	require.NoError(t, err)

	ref := c.Reference()
	require.NotNil(t, ref)
	assert.Equal(t, "/work/shop/dist/lib", ref.Context)
	assert.Equal(t, "vendor_library", ref.Name)
	assert.Equal(t, content, ref.Content)

	for _, p := range c.HTMLPages()[1:] {
		assert.Equal(t, []string{"/lib/vendor.dll.js"}, p.VendorFiles)
	}
	assert.Equal(t, KindDllReference, c.Directives[1].Kind, "dll-reference follows the sitemap")
}

// TestAssembleMain_Overrides verifies the user layer wins.
func TestAssembleMain_Overrides(t *testing.T) {
	cfg := testConfig()
	cfg.Output.Overrides = map[string]any{
		KeyMinify: false,
		KeyDefine: map[string]any{"__API__": `"https://api"`},
	}

	c, err := AssembleMain(cfg, testPlan())
	require.NoError(t, err)

	assert.False(t, c.Settings.Bool(KeyMinify))
	assert.Equal(t, map[string]string{
		"process.env.NODE_ENV": `"production"`,
		"__API__":              `"https://api"`,
	}, c.Settings.StringMap(KeyDefine))
}

// --- AssembleVendor tests ---

// TestAssembleVendor verifies the vendor stage configuration.
func TestAssembleVendor(t *testing.T) {
	c, err := AssembleVendor(testConfig())
	require.NoError(t, err)

	assert.Equal(t, model.StageVendor, c.Stage)
	assert.Equal(t, map[string][]string{"vendor": {"react", "react-dom"}}, c.Entry)
	assert.Equal(t, "/work/shop/dist/lib", c.Output.Path)
	assert.Equal(t, "[name].dll.js", c.Output.Filename)
	assert.Equal(t, "[name]_library", c.Output.Library)
	assert.False(t, c.Settings.Bool(KeySplitting))

	dll := c.Dll()
	require.NotNil(t, dll)
	assert.Equal(t, "/work/shop/dist/lib/[name]-manifest.json", dll.Path)
	assert.Equal(t, "/work/shop/dist/lib/vendor-manifest.json", ExpandName(dll.Path, "vendor"))
	assert.Equal(t, "/work/shop/dist/lib/vendor-manifest.json", ManifestPath(testConfig()))
}

// TestAssembleVendor_NoLibrary verifies the error for an empty library.
func TestAssembleVendor_NoLibrary(t *testing.T) {
	cfg := testConfig()
	cfg.Output.Library = nil
	_, err := AssembleVendor(cfg)
	assert.Error(t, err)
}

// TestVendorURLs verifies URL construction under the public path.
func TestVendorURLs(t *testing.T) {
	assert.Equal(t, []string{"/static/lib/vendor.dll.js"}, VendorURLs("/static/", "lib", []string{"vendor.dll.js"}))
	assert.Equal(t, []string{}, VendorURLs("/", "lib", nil))
}

// --- MergeLayers tests ---

// TestMergeLayers_DoesNotMutate verifies inputs are left untouched.
func TestMergeLayers_DoesNotMutate(t *testing.T) {
	a := map[string]any{"define": map[string]any{"A": "1"}, "target": []string{"es2015"}}
	b := map[string]any{"define": map[string]any{"B": "2"}, "target": []string{"es2020"}}

	merged, err := MergeLayers(a, b)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"A": "1", "B": "2"}, merged["define"])
	assert.Equal(t, []string{"es2020"}, merged.Strings("target"))
	assert.Equal(t, map[string]any{"A": "1"}, a["define"])
	assert.Equal(t, map[string]any{"B": "2"}, b["define"])

	// Mutating the result must not reach the inputs either.
	merged.Sub("define")["C"] = "3"
	assert.NotContains(t, b["define"], "C")
}

// TestMergeLayers_Associative verifies (a+b)+c == a+(b+c).
func TestMergeLayers_Associative(t *testing.T) {
	a := map[string]any{"minify": true, "loader": map[string]any{".png": "file", ".svg": "file"}, "mode": "production"}
	b := map[string]any{"loader": map[string]any{".svg": "text"}, "external": []any{"jquery"}}
	c := map[string]any{"minify": false, "loader": map[string]any{".txt": "text"}, "external": []any{"lodash"}}

	ab, err := MergeLayers(a, b)
	require.NoError(t, err)
	left, err := MergeLayers(ab, c)
	require.NoError(t, err)

	bc, err := MergeLayers(b, c)
	require.NoError(t, err)
	right, err := MergeLayers(a, bc)
	require.NoError(t, err)

	assert.Equal(t, left, right)
	assert.Equal(t, map[string]any{".png": "file", ".svg": "text", ".txt": "text"}, left["loader"])
	assert.Equal(t, []any{"lodash"}, left["external"])
	assert.Equal(t, false, left["minify"])
}

// TestMergeLayers_IgnoresNull verifies null values in a later layer do not
// erase earlier values.
func TestMergeLayers_IgnoresNull(t *testing.T) {
	merged, err := MergeLayers(map[string]any{"mode": "production"}, map[string]any{"mode": nil})
	require.NoError(t, err)
	assert.Equal(t, "production", merged.String("mode"))
}

// --- Render tests ---

// TestMarshal verifies both formats decode back to the same entry map.
func TestMarshal(t *testing.T) {
	c, err := AssembleMain(testConfig(), testPlan())
	require.NoError(t, err)

	data, err := Marshal(c, FormatJSON)
	require.NoError(t, err)
	var fromJSON Config
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, c.Entry, fromJSON.Entry)
	assert.Len(t, fromJSON.Directives, 3)

	data, err = Marshal(c, FormatYAML)
	require.NoError(t, err)
	var fromYAML Config
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, c.Entry, fromYAML.Entry)

	_, err = Marshal(c, "xml")
	assert.Error(t, err)
}

// TestRebase verifies host paths move under the container root and the
// original configuration is untouched.
func TestRebase(t *testing.T) {
	plan := testPlan()
	plan.Vendor = &model.VendorManifest{Name: "vendor_library", Context: "/work/shop/dist/lib"}
	c, err := AssembleMain(testConfig(), plan)
	require.NoError(t, err)

	r := Rebase(c, "/work/shop", "/workspace")

	assert.Equal(t, "/workspace", r.Context)
	assert.Equal(t, "/workspace/dist", r.Output.Path)
	assert.Equal(t, []string{"/workspace/a/page/index/index.js"}, r.Entry["a/index"])
	assert.Equal(t, SitemapTemplate, r.HTMLPages()[0].Template)
	assert.Equal(t, "/workspace/a/page/index/index.html", r.HTMLPages()[1].Template)
	assert.Equal(t, "/workspace/dist/lib", r.Reference().Context)

	assert.Equal(t, "/work/shop", c.Context)
	assert.Equal(t, "/work/shop/a/page/index/index.html", c.HTMLPages()[1].Template)
}
