package compiler

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckyG0429/athena2/internal/bundle"
	"github.com/luckyG0429/athena2/internal/model"
)

// shellCommand returns a command line that runs script under sh. The
// bundler arguments arrive as $1 ("--config") and $2 (the file path).
func shellCommand(t *testing.T, script string) []string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return []string{"sh", "-c", script, "sh"}
}

func execConfig(t *testing.T) *bundle.Config {
	return &bundle.Config{
		Stage:   model.StageMain,
		Context: t.TempDir(),
		Entry:   map[string][]string{"a/index": {"a/page/index/index.js"}},
		Env:     map[string]string{"ATH2_TEST_VALUE": "from-env"},
	}
}

// TestExecCompiler_Stats verifies that the configuration file is passed to
// the command and stdout stats are returned.
func TestExecCompiler_Stats(t *testing.T) {
	script := `test "$1" = "--config" || exit 9
grep -q '"stage": "main"' "$2" || exit 8
printf '{"errors":[],"warnings":["%s"],"time":7}' "$ATH2_TEST_VALUE"`

	stats, err := NewExec(shellCommand(t, script)).Run(context.Background(), execConfig(t))
	require.NoError(t, err)
	assert.Empty(t, stats.Errors)
	assert.Equal(t, []string{"from-env"}, stats.Warnings)
}

// TestExecCompiler_StatsWinOverExitStatus verifies that compile errors
// reported with a non-zero exit are still stats, not a transport error.
func TestExecCompiler_StatsWinOverExitStatus(t *testing.T) {
	script := `printf '{"errors":["Module not found: ./missing"]}'; exit 2`

	stats, err := NewExec(shellCommand(t, script)).Run(context.Background(), execConfig(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"Module not found: ./missing"}, stats.Errors)
}

// TestExecCompiler_FailedExitWithoutErrors verifies that a non-zero exit
// with error-free stats is a transport error, not a clean build.
func TestExecCompiler_FailedExitWithoutErrors(t *testing.T) {
	script := `printf '{"errors":[],"warnings":[]}'; echo "out of memory" >&2; exit 1`

	stats, err := NewExec(shellCommand(t, script)).Run(context.Background(), execConfig(t))
	require.Error(t, err)
	assert.Nil(t, stats)
	assert.Contains(t, err.Error(), "out of memory")
}

// TestExecCompiler_TransportError verifies the error when the command
// fails without stats.
func TestExecCompiler_TransportError(t *testing.T) {
	script := `echo "bundler crashed" >&2; exit 3`

	_, err := NewExec(shellCommand(t, script)).Run(context.Background(), execConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundler crashed")
}

// TestExecCompiler_NoStats verifies the error when the command succeeds
// but prints something other than stats.
func TestExecCompiler_NoStats(t *testing.T) {
	_, err := NewExec(shellCommand(t, `echo done`)).Run(context.Background(), execConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "printed no stats")
}

// TestNewExec_DefaultCommand verifies the default bundler command.
func TestNewExec_DefaultCommand(t *testing.T) {
	assert.Equal(t, DefaultCommand, NewExec(nil).command)
}
