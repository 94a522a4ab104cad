// Package logging configures the zerolog logger used for diagnostics.
//
// User-facing build output goes through outcome.Reporter; the logger only
// carries structured diagnostics (stage timings, engine selection, purge
// details) on stderr.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Environment variables that override the profile defaults.
const (
	EnvLogLevel     = "ATH2_LOG_LEVEL"
	EnvLogTimestamp = "ATH2_LOG_TIMESTAMP"
	EnvLogNoColor   = "ATH2_LOG_NOCOLOR"
)

// Profile selects a set of defaults.
type Profile int

const (
	// ProfileRuntime logs warnings and above with timestamps.
	ProfileRuntime Profile = iota

	// ProfileVerbose logs debug and above with timestamps (-v).
	ProfileVerbose

	// ProfileTest logs debug and above without timestamps or color.
	ProfileTest
)

// Config is the resolved logger configuration.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
}

// DefaultConfig returns the defaults of profile.
func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, NoColor: true}
	case ProfileVerbose:
		return Config{Level: zerolog.DebugLevel, Timestamp: true}
	default:
		return Config{Level: zerolog.WarnLevel, Timestamp: true}
	}
}

// ApplyEnvOverrides applies the ATH2_LOG_* variables read through getenv.
// Unset or unparsable values leave the field alone.
func ApplyEnvOverrides(cfg *Config, getenv func(string) string) {
	if lvl, ok := parseLevel(getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

// New builds a console logger writing to out.
func New(out io.Writer, cfg Config) zerolog.Logger {
	writer := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    cfg.NoColor,
		TimeFormat: time.RFC3339,
	}
	if !cfg.Timestamp {
		writer.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	ctx := zerolog.New(writer).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// Configure resolves the configuration of profile with the process
// environment and returns a logger on stderr.
func Configure(profile Profile) zerolog.Logger {
	cfg := DefaultConfig(profile)
	ApplyEnvOverrides(&cfg, os.Getenv)
	return New(os.Stderr, cfg)
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
