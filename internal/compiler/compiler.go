package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/luckyG0429/athena2/internal/bundle"
	"github.com/luckyG0429/athena2/internal/model"
)

// Compiler runs one stage configuration.
type Compiler interface {
	// Name returns the engine name ("esbuild", "exec" or "docker").
	Name() string

	// Run compiles cfg. A non-nil error means no stats could be obtained.
	Run(ctx context.Context, cfg *bundle.Config) (*Stats, error)
}

// Asset is one emitted file.
type Asset struct {
	// Name is the path relative to the output directory, with forward slashes.
	Name string `json:"name" yaml:"name"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// Stats is the result of one compiler run.
type Stats struct {
	Errors   []string      `json:"errors"`
	Warnings []string      `json:"warnings"`
	Assets   []Asset       `json:"assets"`
	Time     time.Duration `json:"time"`
}

// Options carries per-run values shared by every engine.
type Options struct {
	// AppPath is the absolute application root.
	AppPath string

	// BuildID identifies the run; the docker engine labels containers with it.
	BuildID string
}

// New returns the engine selected by settings.
func New(settings model.CompilerSettings, opts Options) (Compiler, error) {
	switch strings.ToLower(settings.Engine) {
	case model.EngineEsbuild, "":
		return NewEsbuild(), nil
	case model.EngineExec:
		return NewExec(settings.Command), nil
	case model.EngineDocker:
		cli, err := NewDockerClient()
		if err != nil {
			return nil, err
		}
		return NewDocker(cli.API(), settings, opts).withCloser(cli), nil
	default:
		return nil, model.NewCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("unknown compiler engine %q", settings.Engine))
	}
}

// rawStats is the stats document printed by external bundlers. Messages
// may be plain strings or objects with a "message" field; time is in
// milliseconds.
type rawStats struct {
	Errors   []json.RawMessage `json:"errors"`
	Warnings []json.RawMessage `json:"warnings"`
	Assets   []Asset           `json:"assets"`
	Time     int64             `json:"time"`
}

// ParseStats decodes a stats document written by an external bundler.
func ParseStats(data []byte) (*Stats, error) {
	var raw rawStats
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse compiler stats: %w", err)
	}

	errs, err := decodeMessages(raw.Errors)
	if err != nil {
		return nil, err
	}
	warnings, err := decodeMessages(raw.Warnings)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Errors:   errs,
		Warnings: warnings,
		Assets:   raw.Assets,
		Time:     time.Duration(raw.Time) * time.Millisecond,
	}, nil
}

func decodeMessages(raw []json.RawMessage) ([]string, error) {
	var out []string
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}

		var obj struct {
			Message    string `json:"message"`
			ModuleName string `json:"moduleName"`
		}
		if err := json.Unmarshal(r, &obj); err != nil {
			return nil, fmt.Errorf("failed to parse compiler message %s: %w", string(r), err)
		}
		msg := obj.Message
		if msg == "" {
			// No message field: keep the whole object rather than an empty
			// string.
			var buf bytes.Buffer
			if err := json.Compact(&buf, r); err != nil {
				return nil, fmt.Errorf("failed to parse compiler message %s: %w", string(r), err)
			}
			msg = buf.String()
		}
		if obj.ModuleName != "" {
			msg = obj.ModuleName + "\n" + msg
		}
		out = append(out, msg)
	}
	return out, nil
}
