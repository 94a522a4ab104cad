// Package cli: inspect.go implements the "ath2 inspect" command.
//
// The inspect command assembles the compiler configurations a build would
// use and prints them instead of compiling. When a vendor library was built
// before, the main configuration links against its manifest on disk.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/luckyG0429/athena2/internal/bundle"
	"github.com/luckyG0429/athena2/internal/logging"
	"github.com/luckyG0429/athena2/internal/model"
	"github.com/luckyG0429/athena2/internal/orchestrator"
	"github.com/luckyG0429/athena2/internal/pages"
	"github.com/luckyG0429/athena2/internal/vendor"
)

// Stage selectors of the inspect command.
const (
	inspectStageMain   = model.StageMain
	inspectStageVendor = model.StageVendor
	inspectStageAll    = "all"
)

// inspectFlags holds the flag values for the inspect command.
type inspectFlags struct {
	// format is the output format: yaml or json.
	format string

	// stage selects which configurations are printed.
	stage string
}

// NewInspectCommand creates the "inspect" cobra command.
func NewInspectCommand() *cobra.Command {
	flags := &inspectFlags{}

	cmd := &cobra.Command{
		Use:   "inspect [modules...]",
		Short: "Print the compiler configuration without building",
		Long: `Print the compiler configuration a build would use, without building.

The vendor configuration is printed only for apps with a library. The main
configuration references the vendor manifest when it exists on disk.

Examples:
  ath2 inspect
  ath2 inspect home --format json
  ath2 inspect --stage vendor`,

		RunE: func(cmd *cobra.Command, args []string) error {
			format := flags.format
			if IsJSONOutput() {
				format = bundle.FormatJSON
			}
			return runInspect(os.Stdout, args, format, flags.stage)
		},
	}

	cmd.Flags().StringVar(&flags.format, "format", bundle.FormatYAML, "Output format: yaml, json")
	cmd.Flags().StringVar(&flags.stage, "stage", inspectStageAll, "Stage to print: main, vendor, all")

	return cmd
}

// runInspect is the main logic function for the inspect command.
func runInspect(w io.Writer, explicit []string, format, stage string) error {
	switch stage {
	case inspectStageMain, inspectStageVendor, inspectStageAll:
	default:
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid stage %q: valid values are main, vendor, all", stage))
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if cfg.Kind == model.KindNone {
		return model.NewCLIError(model.ExitNotBuildTarget,
			"the current directory is not an app or a module")
	}

	configs, err := inspectConfigs(cfg, explicit, stage, newLogger())
	if err != nil {
		return err
	}

	data, err := renderConfigs(configs, format)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to render configuration", err)
	}
	_, err = w.Write(data)
	return err
}

// inspectConfigs assembles the configurations selected by stage, vendor
// first.
func inspectConfigs(cfg model.BuildConfiguration, explicit []string, stage string, log zerolog.Logger) ([]*bundle.Config, error) {
	var configs []*bundle.Config

	if stage == inspectStageVendor && !vendor.Enabled(cfg) {
		return nil, model.NewCLIError(model.ExitGeneralError, "no vendor library is configured")
	}
	if vendor.Enabled(cfg) && stage != inspectStageMain {
		vc, err := bundle.AssembleVendor(cfg)
		if err != nil {
			return nil, err
		}
		configs = append(configs, vc)
	}
	if stage == inspectStageVendor {
		return configs, nil
	}

	modules := orchestrator.SelectModules(cfg, explicit)
	entries, dir, err := pages.Resolve(cfg.AppPath, modules)
	if errors.Is(err, pages.ErrNoEntries) {
		return nil, model.NewCLIError(model.ExitNoEntries, "no page entries found in "+strings.Join(modules, ", "))
	}
	if err != nil {
		return nil, err
	}

	plan := &model.Plan{Modules: modules, Entries: entries, Pages: dir}
	if vendor.Enabled(cfg) {
		plan.Vendor = builtManifest(cfg, log)
	}

	mc, err := bundle.AssembleMain(cfg, plan)
	if err != nil {
		return nil, err
	}
	return append(configs, mc), nil
}

// builtManifest returns the vendor manifest of a previous build, or nil
// when none can be read.
func builtManifest(cfg model.BuildConfiguration, log zerolog.Logger) *model.VendorManifest {
	path := bundle.ManifestPath(cfg)
	manifest, err := vendor.ReadManifest(path)
	if err != nil {
		log.Debug().Err(err).Str(logging.KeyPath, path).Msg("No vendor manifest, main configuration is not linked")
		return nil
	}
	manifest.Context = cfg.LibraryPath()
	manifest.AssetPaths, err = vendor.ListAssets(manifest.Context)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to list vendor assets")
		return nil
	}
	return manifest
}

// renderConfigs renders configs in format. Several YAML documents are
// separated by "---"; several JSON documents form one array.
func renderConfigs(configs []*bundle.Config, format string) ([]byte, error) {
	if len(configs) == 1 {
		return bundle.Marshal(configs[0], format)
	}

	if strings.EqualFold(format, bundle.FormatJSON) {
		data, err := json.MarshalIndent(configs, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to serialize configurations: %w", err)
		}
		return append(data, '\n'), nil
	}

	var docs []string
	for _, c := range configs {
		data, err := bundle.Marshal(c, format)
		if err != nil {
			return nil, err
		}
		docs = append(docs, string(data))
	}
	return []byte(strings.Join(docs, "---\n")), nil
}
