package bundle

import (
	"fmt"

	"dario.cat/mergo"

	"github.com/luckyG0429/athena2/internal/model"
)

// Keys of the settings tree understood by the compiler engines.
const (
	KeyMode       = "mode"
	KeyMinify     = "minify"
	KeySourcemap  = "sourcemap"
	KeySplitting  = "splitting"
	KeyTarget     = "target"
	KeyExtensions = "extensions"
	KeyLoader     = "loader"
	KeyDefine     = "define"
	KeyExternal   = "external"
	KeyJSX        = "jsx"
)

// ModeProduction is the only build mode of the build command.
const ModeProduction = "production"

// browser targets per platform.
var platformTargets = map[string][]string{
	"pc":     {"es2015", "chrome58", "firefox57", "safari11", "edge16"},
	"mobile": {"es2015", "ios10", "chrome58"},
}

// BaseLayer returns the framework and platform presets of an app.
func BaseLayer(app model.AppSettings) Settings {
	layer := Settings{
		KeyExtensions: []string{".js", ".jsx", ".ts", ".tsx", ".json"},
		KeyLoader: map[string]any{
			".png":   "file",
			".jpg":   "file",
			".jpeg":  "file",
			".gif":   "file",
			".svg":   "file",
			".woff":  "file",
			".woff2": "file",
		},
	}

	targets, ok := platformTargets[app.Platform]
	if !ok {
		targets = platformTargets["pc"]
	}
	layer[KeyTarget] = targets

	switch app.Framework {
	case "react":
		layer[KeyJSX] = map[string]any{"factory": "React.createElement", "fragment": "React.Fragment"}
	case "nerv":
		layer[KeyJSX] = map[string]any{"factory": "Nerv.createElement", "fragment": "Nerv.Fragment"}
	}
	if _, ok := layer[KeyJSX]; ok {
		// JSX is written in plain .js files.
		layer[KeyLoader].(map[string]any)[".js"] = "jsx"
	}
	return layer
}

// ProdLayer returns the production settings.
func ProdLayer() Settings {
	return Settings{
		KeyMode:      ModeProduction,
		KeyMinify:    true,
		KeySourcemap: false,
		KeySplitting: true,
		KeyDefine: map[string]any{
			"process.env.NODE_ENV": `"production"`,
		},
	}
}

// MergeLayers merges layers left to right. Nested tables merge key by key;
// scalars and lists from later layers replace earlier ones. Null values are
// ignored. The inputs are never modified.
func MergeLayers(layers ...map[string]any) (Settings, error) {
	merged := map[string]any{}
	for i, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		// mergo writes nested tables of src into dst by reference, so every
		// layer is copied before it takes part in a merge.
		src, _ := deepCopy(layer).(map[string]any)
		if err := mergo.Merge(&merged, src, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge configuration layer %d: %w", i, err)
		}
	}
	return Settings(merged), nil
}

// deepCopy copies tables and lists recursively, normalizing every table to
// map[string]any and dropping null values.
func deepCopy(v any) any {
	switch t := v.(type) {
	case Settings:
		return deepCopy(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			if item == nil {
				continue
			}
			out[k] = deepCopy(item)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = item
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}
