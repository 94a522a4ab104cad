package bundle

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/luckyG0429/athena2/internal/model"
)

// Output file patterns.
const (
	EntryFilename    = "[name].js"
	ChunkFilename    = "[name].chunk.js"
	VendorFilename   = "[name].dll.js"
	VendorGlobalName = "[name]_library"
	ManifestFilename = "[name]-manifest.json"
	SitemapFilename  = "index.html"
)

// ManifestPath returns the absolute path of the vendor manifest file.
func ManifestPath(cfg model.BuildConfiguration) string {
	return filepath.Join(cfg.LibraryPath(), ExpandName(ManifestFilename, cfg.LibraryName()))
}

// VendorURLs turns vendor asset file names into URLs under the public path.
// The result is never nil.
func VendorURLs(publicPath, libraryDir string, assets []string) []string {
	urls := make([]string, 0, len(assets))
	for _, file := range assets {
		urls = append(urls, publicPath+path.Join(libraryDir, file))
	}
	return urls
}

// AssembleMain builds the main stage configuration. The vendor manifest in
// plan is optional: without it no dll-reference directive is attached and
// every page gets an empty vendor file list.
//
// Directive order: sitemap, dll-reference (if any), then one html directive
// per (module, page) in sorted order.
func AssembleMain(cfg model.BuildConfiguration, plan *model.Plan) (*Config, error) {
	settings, err := MergeLayers(BaseLayer(cfg.App), ProdLayer(), cfg.Output.Overrides)
	if err != nil {
		return nil, err
	}

	entry := make(map[string][]string, len(plan.Entries))
	for name, files := range plan.Entries {
		entry[name] = append([]string(nil), files...)
	}

	out := &Config{
		Stage:    model.StageMain,
		Context:  cfg.AppPath,
		Entry:    entry,
		Settings: settings,
		Env:      copyEnv(cfg.Env),
		Output: Output{
			Path:          cfg.OutputPath(),
			Filename:      EntryFilename,
			PublicPath:    cfg.Output.PublicPath,
			ChunkFilename: path.Join(cfg.Output.ChunkDirectory, ChunkFilename),
		},
	}

	out.Directives = append(out.Directives, HTMLDirective(HTMLPage{
		Title:             cfg.App.Name,
		Filename:          SitemapFilename,
		Template:          SitemapTemplate,
		AlwaysWriteToDisk: true,
		Pages:             plan.Pages,
	}))

	vendorFiles := []string{}
	if v := plan.Vendor; v != nil {
		out.Directives = append(out.Directives, ReferenceDirective(DllReference{
			Context: v.Context,
			Name:    v.Name,
			Content: v.Content,
		}))
		vendorFiles = VendorURLs(cfg.Output.PublicPath, cfg.LibraryDir(), v.AssetPaths)
	}

	plan.Pages.Each(func(module, page string, p model.Page) {
		out.Directives = append(out.Directives, HTMLDirective(HTMLPage{
			Filename:          module + "/" + p.Filename,
			Template:          p.Filepath,
			Chunks:            []string{module + "/" + page},
			VendorFiles:       append([]string{}, vendorFiles...),
			AlwaysWriteToDisk: true,
		}))
	})

	return out, nil
}

// AssembleVendor builds the vendor stage configuration. It returns an error
// when the app has no library configured.
func AssembleVendor(cfg model.BuildConfiguration) (*Config, error) {
	lib := cfg.Output.Library
	if lib.IsEmpty() {
		return nil, fmt.Errorf("no vendor library configured")
	}

	settings, err := MergeLayers(ProdLayer(), map[string]any{KeySplitting: false})
	if err != nil {
		return nil, err
	}

	libPath := cfg.LibraryPath()
	name := cfg.LibraryName()
	libs := append([]string(nil), lib.Libs...)

	return &Config{
		Stage:    model.StageVendor,
		Context:  cfg.AppPath,
		Entry:    map[string][]string{name: libs},
		Settings: settings,
		Env:      copyEnv(cfg.Env),
		Output: Output{
			Path:       libPath,
			Filename:   VendorFilename,
			PublicPath: cfg.Output.PublicPath,
			Library:    VendorGlobalName,
		},
		Directives: []Directive{DllDirective(DllManifest{
			Name:    VendorGlobalName,
			Path:    filepath.Join(libPath, ManifestFilename),
			Context: libPath,
		})},
	}, nil
}

func copyEnv(env map[string]string) map[string]string {
	if len(env) == 0 {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
