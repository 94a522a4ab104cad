package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/luckyG0429/athena2/internal/bundle"
	"github.com/luckyG0429/athena2/internal/model"
)

// EsbuildCompiler bundles in-process with esbuild.
type EsbuildCompiler struct{}

// NewEsbuild returns the in-process engine.
func NewEsbuild() *EsbuildCompiler {
	return &EsbuildCompiler{}
}

// Name implements Compiler.
func (e *EsbuildCompiler) Name() string {
	return model.EngineEsbuild
}

// Run implements Compiler. A configuration with a dll directive builds the
// vendor library; anything else builds the pages.
func (e *EsbuildCompiler) Run(ctx context.Context, cfg *bundle.Config) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		stats *Stats
		err   error
	)
	if dll := cfg.Dll(); dll != nil {
		stats, err = e.runVendor(ctx, cfg, dll)
	} else {
		stats, err = e.runMain(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	stats.Time = time.Since(start)
	return stats, nil
}

// runMain bundles every entry as an ES module with shared chunks, then
// writes the HTML pages.
func (e *EsbuildCompiler) runMain(ctx context.Context, cfg *bundle.Config) (*Stats, error) {
	opts, err := baseOptions(cfg)
	if err != nil {
		return nil, err
	}

	opts.Format = api.FormatESModule
	opts.Splitting = cfg.Settings.Bool(bundle.KeySplitting)
	opts.Outdir = cfg.Output.Path
	opts.ChunkNames = chunkNames(cfg.Output.ChunkFilename)
	opts.AssetNames = "assets/[name]-[hash]"
	opts.Metafile = true

	for _, name := range cfg.EntryNames() {
		files := cfg.Entry[name]
		if len(files) == 0 {
			continue
		}
		opts.EntryPointsAdvanced = append(opts.EntryPointsAdvanced, api.EntryPoint{
			InputPath:  files[0],
			OutputPath: name,
		})
	}

	if ref := cfg.Reference(); ref != nil {
		opts.Plugins = append(opts.Plugins, dllReferencePlugin(ref))
	}

	result, err := build(ctx, opts)
	if err != nil {
		return nil, err
	}

	stats := statsFromResult(result)
	if len(result.Errors) > 0 {
		return stats, nil
	}

	outputs := make(map[string]bool, len(result.OutputFiles))
	for _, f := range result.OutputFiles {
		if err := writeOutput(f.Path, f.Contents, true); err != nil {
			return nil, err
		}
		outputs[f.Path] = true
		stats.Assets = append(stats.Assets, assetOf(cfg.Output.Path, f.Path, int64(len(f.Contents))))
	}

	for _, page := range cfg.HTMLPages() {
		data, err := renderHTML(cfg, page, outputs)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(cfg.Output.Path, filepath.FromSlash(page.Filename))
		if err := writeOutput(path, data, page.AlwaysWriteToDisk); err != nil {
			return nil, err
		}
		stats.Assets = append(stats.Assets, assetOf(cfg.Output.Path, path, int64(len(data))))
	}

	return stats, nil
}

// runVendor bundles the vendor libraries into one script that publishes
// them under a global name, then writes the manifest.
func (e *EsbuildCompiler) runVendor(ctx context.Context, cfg *bundle.Config, dll *bundle.DllManifest) (*Stats, error) {
	names := cfg.EntryNames()
	if len(names) != 1 {
		return nil, fmt.Errorf("vendor build expects exactly one entry, got %d", len(names))
	}
	name := names[0]
	libs := cfg.Entry[name]
	global := identifier(bundle.ExpandName(dll.Name, name))

	opts, err := baseOptions(cfg)
	if err != nil {
		return nil, err
	}

	opts.Format = api.FormatIIFE
	opts.GlobalName = global
	opts.Outfile = filepath.Join(cfg.Output.Path, bundle.ExpandName(cfg.Output.Filename, name))
	opts.Stdin = &api.StdinOptions{
		Contents:   vendorSource(libs),
		ResolveDir: cfg.Context,
		Sourcefile: name + ".dll-entry.js",
		Loader:     api.LoaderJS,
	}

	result, err := build(ctx, opts)
	if err != nil {
		return nil, err
	}

	stats := statsFromResult(result)
	if len(result.Errors) > 0 {
		return stats, nil
	}

	for _, f := range result.OutputFiles {
		if err := writeOutput(f.Path, f.Contents, true); err != nil {
			return nil, err
		}
		stats.Assets = append(stats.Assets, assetOf(cfg.Output.Path, f.Path, int64(len(f.Contents))))
	}

	content := make(map[string]any, len(libs))
	for _, lib := range libs {
		content[lib] = map[string]any{"id": lib}
	}
	manifest, err := json.MarshalIndent(map[string]any{"name": global, "content": content}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize vendor manifest: %w", err)
	}
	manifestPath := bundle.ExpandName(dll.Path, name)
	if err := writeOutput(manifestPath, append(manifest, '\n'), true); err != nil {
		return nil, err
	}
	stats.Assets = append(stats.Assets, assetOf(cfg.Output.Path, manifestPath, int64(len(manifest)+1)))

	return stats, nil
}

// build runs esbuild through a build context so that ctx cancellation
// stops the build.
func build(ctx context.Context, opts api.BuildOptions) (api.BuildResult, error) {
	bctx, cerr := api.Context(opts)
	if cerr != nil {
		// Invalid options are reported like compile errors.
		return api.BuildResult{Errors: cerr.Errors}, nil
	}
	defer bctx.Dispose()

	done := make(chan api.BuildResult, 1)
	go func() {
		done <- bctx.Rebuild()
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		bctx.Cancel()
		<-done
		return api.BuildResult{}, ctx.Err()
	}
}

// baseOptions maps the settings tree onto esbuild options shared by both
// stages.
func baseOptions(cfg *bundle.Config) (api.BuildOptions, error) {
	s := cfg.Settings

	opts := api.BuildOptions{
		AbsWorkingDir:     cfg.Context,
		Bundle:            true,
		Write:             false,
		LogLevel:          api.LogLevelSilent,
		Platform:          api.PlatformBrowser,
		PublicPath:        cfg.Output.PublicPath,
		ResolveExtensions: s.Strings(bundle.KeyExtensions),
		External:          s.Strings(bundle.KeyExternal),
		Define:            defines(s, cfg.Env),
	}

	if s.Bool(bundle.KeyMinify) {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}
	if s.Bool(bundle.KeySourcemap) {
		opts.Sourcemap = api.SourceMapLinked
	}

	target, engines, err := parseTargets(s.Strings(bundle.KeyTarget))
	if err != nil {
		return api.BuildOptions{}, err
	}
	opts.Target = target
	opts.Engines = engines

	loaders, err := parseLoaders(s.StringMap(bundle.KeyLoader))
	if err != nil {
		return api.BuildOptions{}, err
	}
	opts.Loader = loaders

	if jsx := s.Sub(bundle.KeyJSX); jsx != nil {
		opts.JSXFactory = jsx.String("factory")
		opts.JSXFragment = jsx.String("fragment")
	}
	return opts, nil
}

// defines merges the define table with process.env.* entries from env.
// Env values are JSON string literals.
func defines(s bundle.Settings, env map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range s.StringMap(bundle.KeyDefine) {
		out[k] = v
	}
	for k, v := range env {
		quoted, _ := json.Marshal(v)
		out["process.env."+k] = string(quoted)
	}
	return out
}

// statsFromResult converts esbuild messages into terminal-ready strings.
func statsFromResult(result api.BuildResult) *Stats {
	stats := &Stats{}
	if len(result.Errors) > 0 {
		stats.Errors = api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
	}
	if len(result.Warnings) > 0 {
		stats.Warnings = api.FormatMessages(result.Warnings, api.FormatMessagesOptions{Kind: api.WarningMessage})
	}
	return stats
}

// chunkNames turns an output chunk pattern such as "chunk/[name].chunk.js"
// into an esbuild chunk name template. esbuild appends the extension
// itself, and shared chunks need a hash to stay unique.
func chunkNames(pattern string) string {
	if pattern == "" {
		return "[name]-[hash]"
	}
	p := strings.TrimSuffix(pattern, ".js")
	if !strings.Contains(p, "[hash]") {
		p = strings.Replace(p, bundle.NamePlaceholder, "[name]-[hash]", 1)
	}
	return p
}

// vendorSource is the synthetic vendor entry: a CommonJS module exporting
// every library under its import specifier.
func vendorSource(libs []string) string {
	var b strings.Builder
	b.WriteString("module.exports = {\n")
	for _, lib := range libs {
		q, _ := json.Marshal(lib)
		fmt.Fprintf(&b, "  %s: require(%s),\n", q, q)
	}
	b.WriteString("};\n")
	return b.String()
}

// identifier replaces characters that are not valid in a JavaScript
// identifier with underscores. A leading digit gets an underscore prefix.
func identifier(name string) string {
	var b strings.Builder
	for i, r := range name {
		digit := r >= '0' && r <= '9'
		if i == 0 && digit {
			b.WriteByte('_')
		}
		switch {
		case r == '_' || r == '$',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			digit:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

var esTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ios":     api.EngineIOS,
	"safari":  api.EngineSafari,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"ie":      api.EngineIE,
}

// parseTargets splits a target list such as ["es2015", "chrome58"] into the
// language target and engine versions.
func parseTargets(list []string) (api.Target, []api.Engine, error) {
	target := api.DefaultTarget
	var engines []api.Engine

	for _, item := range list {
		item = strings.ToLower(strings.TrimSpace(item))
		if t, ok := esTargets[item]; ok {
			target = t
			continue
		}

		split := strings.IndexAny(item, "0123456789")
		if split <= 0 {
			return 0, nil, fmt.Errorf("invalid build target %q", item)
		}
		name, ok := engineNames[item[:split]]
		if !ok {
			return 0, nil, fmt.Errorf("unknown build target engine %q", item[:split])
		}
		engines = append(engines, api.Engine{Name: name, Version: item[split:]})
	}
	return target, engines, nil
}

var loaderNames = map[string]api.Loader{
	"js":      api.LoaderJS,
	"jsx":     api.LoaderJSX,
	"ts":      api.LoaderTS,
	"tsx":     api.LoaderTSX,
	"json":    api.LoaderJSON,
	"css":     api.LoaderCSS,
	"text":    api.LoaderText,
	"base64":  api.LoaderBase64,
	"dataurl": api.LoaderDataURL,
	"file":    api.LoaderFile,
	"binary":  api.LoaderBinary,
	"copy":    api.LoaderCopy,
	"empty":   api.LoaderEmpty,
}

// parseLoaders maps extension -> loader name onto esbuild loaders.
func parseLoaders(table map[string]string) (map[string]api.Loader, error) {
	if len(table) == 0 {
		return nil, nil
	}
	out := make(map[string]api.Loader, len(table))
	exts := make([]string, 0, len(table))
	for ext := range table {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		l, ok := loaderNames[strings.ToLower(table[ext])]
		if !ok {
			return nil, fmt.Errorf("unknown loader %q for %s", table[ext], ext)
		}
		out[ext] = l
	}
	return out, nil
}

// writeOutput writes data to path, creating parent directories. Unless
// always is set, an existing file with identical content is left alone.
func writeOutput(path string, data []byte, always bool) error {
	if !always {
		if existing, err := os.ReadFile(path); err == nil && string(existing) == string(data) {
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func assetOf(root, path string, size int64) Asset {
	name := path
	if rel, err := filepath.Rel(root, path); err == nil {
		name = filepath.ToSlash(rel)
	}
	return Asset{Name: name, Size: size}
}
