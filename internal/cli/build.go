// Package cli: build.go implements the "ath2 build" command.
//
// The build command detects the configuration of the target directory,
// runs the optional vendor stage and the main stage through the
// orchestrator, and maps the outcome to an exit code.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/luckyG0429/athena2/internal/model"
	"github.com/luckyG0429/athena2/internal/orchestrator"
	"github.com/luckyG0429/athena2/internal/outcome"
)

// buildFlags holds the flag values for the build command.
type buildFlags struct {
	// engine overrides the configured compiler engine.
	engine string

	// metricsFile is the node_exporter textfile the stage metrics are
	// written to. Empty disables the export.
	metricsFile string

	// reportFile is the path the build report is written to, as YAML or
	// JSON depending on its extension.
	reportFile string
}

// NewBuildCommand creates the "build" cobra command.
func NewBuildCommand() *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build [modules...]",
		Short: "Build the app or module in the current directory",
		Long: `Build the app or module in the current directory.

At an app root every module of the moduleList is built, unless modules are
given as arguments. At a module root the module itself is built and
arguments are ignored.

Exit codes:
  0  build succeeded (warnings included)
  2  the directory is not an app or a module
  3  no page entries were found
  4  the vendor or main stage failed
  5  the configuration is invalid

Examples:
  ath2 build
  ath2 build home user
  ath2 build --engine docker --report-file build.yaml`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.engine, "engine", "", "Compiler engine: esbuild, exec, docker (default: from configuration)")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Write stage metrics to this Prometheus textfile")
	cmd.Flags().StringVar(&flags.reportFile, "report-file", "", "Write the build report to this .yaml or .json file")

	return cmd
}

// runBuild is the main logic function for the build command.
func runBuild(ctx context.Context, modules []string, flags *buildFlags) error {
	if flags.reportFile != "" {
		if _, err := marshalReport(flags.reportFile, &model.Report{}); err != nil {
			return err
		}
	}

	// Step 1: Load the configuration, applying the --engine override.
	cfg, err := loadConfig(func(cfg *model.BuildConfiguration) {
		if flags.engine != "" {
			cfg.Output.Compiler.Engine = strings.ToLower(flags.engine)
		}
	})
	if err != nil {
		return err
	}

	// Step 2: Run the orchestrator. With --json, progress goes to stderr so
	// that stdout carries only the report.
	progress := os.Stdout
	if IsJSONOutput() {
		progress = os.Stderr
	}
	orch := orchestrator.New(outcome.NewReporter(progress), orchestrator.WithLogger(newLogger()))

	report, runErr := orch.Run(ctx, cfg, modules)

	// Step 3: Export metrics and the report, also for failed runs.
	if flags.metricsFile != "" {
		if err := orch.Metrics().WriteTextfile(flags.metricsFile); err != nil {
			return err
		}
	}
	if flags.reportFile != "" && report != nil {
		if err := writeReport(flags.reportFile, report); err != nil {
			return err
		}
	}
	if IsJSONOutput() && report != nil {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize build report: %w", err)
		}
		fmt.Println(string(data))
	}

	// Step 4: Map the outcome to an exit code.
	if runErr != nil {
		return runErr
	}
	if report.Failed() {
		return model.ReportedCLIError(model.ExitBuildFailed, "build failed")
	}
	return nil
}

// marshalReport renders a report as YAML or indented JSON, chosen by the
// extension of path.
func marshalReport(path string, report *model.Report) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := yaml.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize build report: %w", err)
		}
		return data, nil
	case ".json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to serialize build report: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("unsupported report file %q: use a .yaml, .yml or .json extension", path))
	}
}

// writeReport writes report to path.
func writeReport(path string, report *model.Report) error {
	data, err := marshalReport(path, report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write build report to %s: %w", path, err)
	}
	return nil
}
