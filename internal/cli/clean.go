// Package cli: clean.go implements the "ath2 clean" command.
//
// The clean command removes the output directories of the selected modules,
// the same purge a build performs before compiling. With --containers it
// also removes build containers the docker engine left behind for this app,
// for example after the process was killed mid-build.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/luckyG0429/athena2/internal/compiler"
	"github.com/luckyG0429/athena2/internal/model"
	"github.com/luckyG0429/athena2/internal/orchestrator"
)

// cleanFlags holds the flag values for the clean command.
type cleanFlags struct {
	// containers also removes leftover docker build containers.
	containers bool
}

// cleanResult is the outcome of one clean run.
type cleanResult struct {
	Modules    []string `json:"modules"`
	Purged     int      `json:"purged"`
	Containers []string `json:"containers,omitempty"`
}

// NewCleanCommand creates the "clean" cobra command.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean [modules...]",
		Short: "Remove the build output of the selected modules",
		Long: `Remove the build output of the selected modules.

With --containers, build containers created by the docker engine for this
app are removed as well.

Examples:
  ath2 clean
  ath2 clean home
  ath2 clean --containers`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.Context(), os.Stdout, args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.containers, "containers", false, "Also remove leftover docker build containers")

	return cmd
}

// runClean is the main logic function for the clean command.
func runClean(ctx context.Context, w io.Writer, explicit []string, flags *cleanFlags) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if cfg.Kind == model.KindNone {
		return model.NewCLIError(model.ExitNotBuildTarget,
			"the current directory is not an app or a module")
	}

	modules := orchestrator.SelectModules(cfg, explicit)
	purged, err := orchestrator.Purge(cfg, modules)
	if err != nil {
		return err
	}
	result := cleanResult{Modules: modules, Purged: purged}

	if flags.containers {
		result.Containers, err = removeAppContainers(ctx, cfg.AppPath)
		if err != nil {
			return err
		}
	}

	if IsJSONOutput() {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize clean result: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}
	printCleanText(w, result, flags.containers)
	return nil
}

// removeAppContainers removes the build containers labelled with appPath
// and returns their ids.
func removeAppContainers(ctx context.Context, appPath string) ([]string, error) {
	cli, err := compiler.NewDockerClient()
	if err != nil {
		return nil, err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return nil, err
	}

	all, err := compiler.ListBuildContainers(ctx, cli.API())
	if err != nil {
		return nil, err
	}
	mine := filterContainers(all, appPath)

	removed, err := compiler.RemoveBuildContainers(ctx, cli.API(), mine)
	ids := make([]string, 0, removed)
	for _, c := range mine[:removed] {
		ids = append(ids, c.ID)
	}
	return ids, err
}

// filterContainers returns the containers created for appPath.
func filterContainers(all []compiler.BuildContainer, appPath string) []compiler.BuildContainer {
	out := make([]compiler.BuildContainer, 0, len(all))
	for _, c := range all {
		if c.AppPath == appPath {
			out = append(out, c)
		}
	}
	return out
}

// printCleanText outputs the clean result for humans.
func printCleanText(w io.Writer, r cleanResult, containers bool) {
	if r.Purged == 0 {
		fmt.Fprintln(w, "Nothing to clean.")
	} else {
		fmt.Fprintf(w, "Removed the output of %d module(s).\n", r.Purged)
	}
	if containers {
		fmt.Fprintf(w, "Removed %d build container(s).\n", len(r.Containers))
	}
}
