package appconf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/luckyG0429/athena2/internal/model"
)

// Base names of the configuration files. The extension selects the decoder.
const (
	AppFileBase    = "ath2.app"
	ModuleFileBase = "ath2.module"
)

// extensions lists the accepted configuration file extensions in lookup
// priority order.
var extensions = []string{".json", ".jsonc", ".yaml", ".yml", ".toml"}

// rawApp is the on-disk shape of an app configuration file.
type rawApp struct {
	App        string               `json:"app" yaml:"app" toml:"app"`
	Template   string               `json:"template" yaml:"template" toml:"template"`
	Framework  string               `json:"framework" yaml:"framework" toml:"framework"`
	Platform   string               `json:"platform" yaml:"platform" toml:"platform"`
	ModuleList []string             `json:"moduleList" yaml:"moduleList" toml:"moduleList"`
	Build      model.OutputSettings `json:"build" yaml:"build" toml:"build"`
}

// FindConfigFile looks for <dir>/<base><ext> for every supported extension
// and returns the first one that exists. The boolean is false when none
// exists; that is not an error.
func FindConfigFile(dir, base string) (string, bool) {
	for _, ext := range extensions {
		path := filepath.Join(dir, base+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// decodeFile reads a configuration file and decodes it into v according to
// its extension.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Comments and trailing commas are common in hand-edited config
		// files, so strip them before handing the bytes to encoding/json.
		if err := json.Unmarshal(jsonc.ToJSON(data), v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported configuration format: %s", path)
	}
	return nil
}

// LoadApp decodes the app configuration file found in appPath.
func LoadApp(appPath string) (model.AppSettings, model.OutputSettings, error) {
	path, ok := FindConfigFile(appPath, AppFileBase)
	if !ok {
		return model.AppSettings{}, model.OutputSettings{}, model.NewCLIError(
			model.ExitNotBuildTarget,
			fmt.Sprintf("%s.* not found in %s", AppFileBase, appPath),
		)
	}

	var raw rawApp
	if err := decodeFile(path, &raw); err != nil {
		return model.AppSettings{}, model.OutputSettings{}, model.WrapCLIError(
			model.ExitConfigInvalid, "invalid app configuration", err)
	}

	app := model.AppSettings{
		Name:       raw.App,
		Template:   raw.Template,
		Framework:  strings.ToLower(raw.Framework),
		Platform:   strings.ToLower(raw.Platform),
		ModuleList: raw.ModuleList,
	}
	if app.Name == "" {
		app.Name = filepath.Base(appPath)
	}
	return app, raw.Build, nil
}

// LoadModule decodes the module configuration file found in modulePath.
// An empty module name falls back to the directory name.
func LoadModule(modulePath string) (model.ModuleSettings, error) {
	path, ok := FindConfigFile(modulePath, ModuleFileBase)
	if !ok {
		return model.ModuleSettings{}, model.NewCLIError(
			model.ExitNotBuildTarget,
			fmt.Sprintf("%s.* not found in %s", ModuleFileBase, modulePath),
		)
	}

	var mod model.ModuleSettings
	if err := decodeFile(path, &mod); err != nil {
		return model.ModuleSettings{}, model.WrapCLIError(
			model.ExitConfigInvalid, "invalid module configuration", err)
	}
	if mod.Module == "" {
		mod.Module = filepath.Base(modulePath)
	}
	return mod, nil
}

// Detect inspects dir and produces the BuildConfiguration for it.
//
// The detection logic follows a priority-based approach:
//  1. dir holds an app configuration file -> KindApp, app root is dir
//  2. dir holds a module configuration file -> KindModule, app root is the
//     parent directory (which must hold an app configuration file)
//  3. otherwise -> KindNone (not an error; the orchestrator reports it)
func Detect(dir string) (model.BuildConfiguration, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return model.BuildConfiguration{}, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	cfg := model.BuildConfiguration{Kind: model.KindNone, AppPath: absDir}

	switch {
	case hasConfig(absDir, AppFileBase):
		cfg.Kind = model.KindApp

	case hasConfig(absDir, ModuleFileBase):
		mod, err := LoadModule(absDir)
		if err != nil {
			return model.BuildConfiguration{}, err
		}
		cfg.Kind = model.KindModule
		cfg.Module = mod
		cfg.AppPath = filepath.Dir(absDir)

	default:
		return cfg, nil
	}

	app, output, err := LoadApp(cfg.AppPath)
	if err != nil {
		return model.BuildConfiguration{}, err
	}
	cfg.App = app
	cfg.Output = output

	defaults, err := LoadUserDefaults()
	if err != nil {
		return model.BuildConfiguration{}, model.WrapCLIError(
			model.ExitConfigInvalid, "invalid user defaults", err)
	}
	applyDefaults(&cfg, defaults)

	env, err := LoadEnv(cfg.AppPath)
	if err != nil {
		return model.BuildConfiguration{}, model.WrapCLIError(
			model.ExitConfigInvalid, "invalid .env file", err)
	}
	cfg.Env = env

	return cfg, nil
}

// hasConfig reports whether dir contains a configuration file with base name.
func hasConfig(dir, base string) bool {
	_, ok := FindConfigFile(dir, base)
	return ok
}

// applyDefaults fills empty output and compiler settings. App settings win
// over user defaults, and user defaults win over built-in defaults.
func applyDefaults(cfg *model.BuildConfiguration, user model.CompilerSettings) {
	out := &cfg.Output
	if out.PublicPath == "" {
		out.PublicPath = model.DefaultPublicPath
	}
	if !strings.HasSuffix(out.PublicPath, "/") {
		out.PublicPath += "/"
	}
	if out.OutputRoot == "" {
		out.OutputRoot = model.DefaultOutputRoot
	}
	if out.ChunkDirectory == "" {
		out.ChunkDirectory = model.DefaultChunkDirectory
	}

	c := &out.Compiler
	if c.Engine == "" {
		c.Engine = user.Engine
	}
	if c.Engine == "" {
		c.Engine = model.DefaultEngine
	}
	c.Engine = strings.ToLower(c.Engine)
	if len(c.Command) == 0 {
		c.Command = user.Command
	}
	if c.Image == "" {
		c.Image = user.Image
	}
	if c.Image == "" && c.Engine == model.EngineDocker {
		c.Image = model.DefaultDockerImage
	}
}

// IsNotTarget reports whether err says the directory is not a build target.
func IsNotTarget(err error) bool {
	var cliErr *model.CLIError
	return errors.As(err, &cliErr) && cliErr.Code == model.ExitNotBuildTarget
}
