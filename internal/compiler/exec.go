package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/luckyG0429/athena2/internal/bundle"
	"github.com/luckyG0429/athena2/internal/model"
)

// DefaultCommand is the external bundler used when none is configured. It
// receives "--config <file>" and prints stats JSON on stdout.
var DefaultCommand = []string{"npx", "ath2-bundle"}

// ConfigFlag precedes the configuration file path on the bundler command line.
const ConfigFlag = "--config"

// ExecCompiler runs an external bundler command on the host.
type ExecCompiler struct {
	command []string
}

// NewExec returns an engine running command. An empty command selects
// DefaultCommand.
func NewExec(command []string) *ExecCompiler {
	if len(command) == 0 {
		command = DefaultCommand
	}
	return &ExecCompiler{command: append([]string(nil), command...)}
}

// Name implements Compiler.
func (e *ExecCompiler) Name() string {
	return model.EngineExec
}

// Run implements Compiler. The configuration is written to a temporary JSON
// file, the bundler runs in the configuration's context directory with the
// process environment plus cfg.Env, and its stdout is parsed as stats.
func (e *ExecCompiler) Run(ctx context.Context, cfg *bundle.Config) (*Stats, error) {
	path, cleanup, err := writeTempConfig(cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	args := append(append([]string(nil), e.command[1:]...), ConfigFlag, path)
	cmd := exec.CommandContext(ctx, e.command[0], args...)
	cmd.Dir = cfg.Context

	// Inherit the current process environment and add the app's variables.
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	// A bundler that reports compile errors may exit non-zero. A non-zero
	// exit without reported errors is a crash, whatever stdout says.
	if stats, err := ParseStats(stdout.Bytes()); err == nil && (runErr == nil || len(stats.Errors) > 0) {
		return stats, nil
	}
	if runErr != nil {
		return nil, fmt.Errorf("%s failed: %s: %w",
			strings.Join(e.command, " "), strings.TrimSpace(stderr.String()), runErr)
	}
	return nil, fmt.Errorf("%s printed no stats: %s",
		strings.Join(e.command, " "), strings.TrimSpace(stdout.String()))
}

// writeTempConfig serializes cfg into a temporary JSON file and returns its
// path with a cleanup function.
func writeTempConfig(cfg *bundle.Config) (string, func(), error) {
	data, err := bundle.Marshal(cfg, bundle.FormatJSON)
	if err != nil {
		return "", nil, err
	}

	f, err := os.CreateTemp("", "ath2-"+cfg.Stage+"-*.json")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary config: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write temporary config: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write temporary config: %w", err)
	}
	return f.Name(), cleanup, nil
}
