// Package cli implements the cobra-based CLI commands for ath2.
//
// Each subcommand (build, pages, inspect, clean) is defined in its own file
// within this package. This file defines the root command that serves as the
// parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/luckyG0429/athena2/internal/appconf"
	"github.com/luckyG0429/athena2/internal/logging"
	"github.com/luckyG0429/athena2/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	jsonOutput bool

	// verbose lowers the diagnostics log level to debug.
	verbose bool

	// workDir is the directory whose configuration is detected. Empty means
	// the current working directory.
	workDir string
)

// Version, Commit, and Date are set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action; it only provides
// help text and global flags.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ath2",
		Short: "Multi-page front-end build orchestrator",
		Long: `ath2 builds multi-page front-end apps made of modules.

Run it from an app root to build every module of the app (or only the
modules given as arguments), or from a module root to build that module.
Shared libraries listed in the app configuration are pre-built into a
vendor bundle before the pages are compiled.`,

		// We handle error output ourselves for cleaner UX.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", "", "Directory to build (default: current directory)")

	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewPagesCommand())
	rootCmd.AddCommand(NewInspectCommand())
	rootCmd.AddCommand(NewCleanCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
//
// CLIError types carry their own exit codes; other errors default to exit
// code 1. Errors marked as reported were already shown by the build
// reporter and only set the exit code.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		if !cliErr.Reported {
			printError(os.Stderr, cliErr.Message, cliErr.Err)
		}
		os.Exit(int(cliErr.Code))
	}

	printError(os.Stderr, err.Error(), nil)
	os.Exit(int(model.ExitGeneralError))
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]any{
			"error": map[string]any{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]any); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode; stdout is reserved for
		// successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// newLogger returns the diagnostics logger for a command, at debug level
// when --verbose is set.
func newLogger() zerolog.Logger {
	if verbose {
		return logging.Configure(logging.ProfileVerbose)
	}
	return logging.Configure(logging.ProfileRuntime)
}

// targetDir returns the directory given with --dir, or the working
// directory.
func targetDir() (string, error) {
	if workDir != "" {
		return workDir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return dir, nil
}

// loadConfig detects and validates the configuration of the target
// directory. mutate, when non-nil, is applied before validation so that
// flags can override configured values.
func loadConfig(mutate func(*model.BuildConfiguration)) (model.BuildConfiguration, error) {
	dir, err := targetDir()
	if err != nil {
		return model.BuildConfiguration{}, err
	}

	cfg, err := appconf.Detect(dir)
	if err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			return model.BuildConfiguration{}, err
		}
		return model.BuildConfiguration{}, model.WrapCLIError(model.ExitConfigInvalid,
			"failed to load configuration", err)
	}

	if mutate != nil {
		mutate(&cfg)
	}

	if errs := appconf.Validate(cfg); len(errs) > 0 {
		return model.BuildConfiguration{}, model.NewCLIError(model.ExitConfigInvalid,
			appconf.JoinErrors(errs))
	}
	return cfg, nil
}
