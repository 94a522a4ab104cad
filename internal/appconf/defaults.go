package appconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/luckyG0429/athena2/internal/model"
)

// UserDefaultsFile is the per-user defaults file, relative to the XDG config
// directories.
const UserDefaultsFile = "ath2/defaults.yaml"

// EnvFile is the optional environment file at the app root.
const EnvFile = ".env"

// userDefaults is the shape of the per-user defaults file.
type userDefaults struct {
	Compiler model.CompilerSettings `yaml:"compiler"`
}

// LoadUserDefaults reads compiler defaults from the XDG config directories.
// A missing file yields zero settings and no error.
func LoadUserDefaults() (model.CompilerSettings, error) {
	path, err := xdg.SearchConfigFile(UserDefaultsFile)
	if err != nil {
		// SearchConfigFile returns an error when no candidate exists.
		return model.CompilerSettings{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.CompilerSettings{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var d userDefaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return model.CompilerSettings{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return d.Compiler, nil
}

// LoadEnv reads <appPath>/.env. A missing file yields an empty map.
func LoadEnv(appPath string) (map[string]string, error) {
	path := filepath.Join(appPath, EnvFile)
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return env, nil
}
