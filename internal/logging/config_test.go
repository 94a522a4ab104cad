package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// TestDefaultConfig verifies the per-profile defaults.
func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, Config{Level: zerolog.WarnLevel, Timestamp: true}, DefaultConfig(ProfileRuntime))
	assert.Equal(t, Config{Level: zerolog.DebugLevel, Timestamp: true}, DefaultConfig(ProfileVerbose))
	assert.Equal(t, Config{Level: zerolog.DebugLevel, NoColor: true}, DefaultConfig(ProfileTest))
}

// TestApplyEnvOverrides verifies that valid values override and invalid
// ones are ignored.
func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Config
	}{
		{
			name: "no overrides",
			env:  map[string]string{},
			want: Config{Level: zerolog.WarnLevel, Timestamp: true},
		},
		{
			name: "level and flags",
			env:  map[string]string{EnvLogLevel: "DEBUG", EnvLogTimestamp: "false", EnvLogNoColor: "1"},
			want: Config{Level: zerolog.DebugLevel, Timestamp: false, NoColor: true},
		},
		{
			name: "invalid values ignored",
			env:  map[string]string{EnvLogLevel: "loud", EnvLogTimestamp: "sometimes"},
			want: Config{Level: zerolog.WarnLevel, Timestamp: true},
		},
		{
			name: "disabled",
			env:  map[string]string{EnvLogLevel: "off"},
			want: Config{Level: zerolog.Disabled, Timestamp: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(ProfileRuntime)
			ApplyEnvOverrides(&cfg, func(k string) string { return tt.env[k] })
			assert.Equal(t, tt.want, cfg)
		})
	}
}

// TestNew_LevelFilter verifies that the configured level filters events.
func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Config{Level: zerolog.WarnLevel, NoColor: true})

	logger.Info().Msg("hidden")
	logger.Warn().Str(KeyStage, "main").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "stage=main")
}
