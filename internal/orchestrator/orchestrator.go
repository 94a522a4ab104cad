// Package orchestrator drives one build: it selects the modules, purges
// their previous output, resolves page entries, runs the optional vendor
// stage and then the main stage.
//
// The orchestrator never exits the process. Compile outcomes are returned
// in the report; only conditions that stop the run before any compiler is
// involved (not a build target, no entries) are returned as errors.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luckyG0429/athena2/internal/bundle"
	"github.com/luckyG0429/athena2/internal/compiler"
	"github.com/luckyG0429/athena2/internal/logging"
	"github.com/luckyG0429/athena2/internal/metrics"
	"github.com/luckyG0429/athena2/internal/model"
	"github.com/luckyG0429/athena2/internal/outcome"
	"github.com/luckyG0429/athena2/internal/pages"
	"github.com/luckyG0429/athena2/internal/revision"
	"github.com/luckyG0429/athena2/internal/vendor"
)

// CompilerFactory creates the compiler engine of a run.
type CompilerFactory func(settings model.CompilerSettings, opts compiler.Options) (compiler.Compiler, error)

// Orchestrator runs builds. It is not safe for concurrent use.
type Orchestrator struct {
	reporter    *outcome.Reporter
	logger      zerolog.Logger
	metrics     *metrics.Recorder
	newCompiler CompilerFactory
	newBuildID  func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the diagnostics logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithCompilerFactory replaces compiler.New.
func WithCompilerFactory(f CompilerFactory) Option {
	return func(o *Orchestrator) { o.newCompiler = f }
}

// WithBuildID makes every run use id.
func WithBuildID(id string) Option {
	return func(o *Orchestrator) { o.newBuildID = func() string { return id } }
}

// New returns an Orchestrator printing progress through reporter.
func New(reporter *outcome.Reporter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reporter:    reporter,
		logger:      zerolog.Nop(),
		metrics:     metrics.NewRecorder(),
		newCompiler: compiler.New,
		newBuildID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Metrics returns the recorder the orchestrator writes to.
func (o *Orchestrator) Metrics() *metrics.Recorder {
	return o.metrics
}

// SelectModules returns the modules a run builds: the module itself for a
// module root, the explicit list for an app root when one is given, and
// the app's module list otherwise.
func SelectModules(cfg model.BuildConfiguration, explicit []string) []string {
	switch cfg.Kind {
	case model.KindModule:
		return []string{cfg.Module.Module}
	case model.KindApp:
		if len(explicit) > 0 {
			return append([]string(nil), explicit...)
		}
		return append([]string(nil), cfg.App.ModuleList...)
	default:
		return nil
	}
}

// Run performs one build of cfg.
//
// The flow is:
//  1. Reject directories that are neither an app nor a module
//  2. Select the modules and purge their output directories
//  3. Resolve page entries; stop when there are none
//  4. Run the vendor stage when the app has a library; anything but a
//     clean vendor build stops the run
//  5. Run the main stage
func (o *Orchestrator) Run(ctx context.Context, cfg model.BuildConfiguration, explicit []string) (*model.Report, error) {
	report := &model.Report{
		BuildID: o.newBuildID(),
		Kind:    cfg.Kind,
		Engine:  cfg.Output.Compiler.Engine,
	}
	log := o.logger.With().Str(logging.KeyBuildID, report.BuildID).Logger()

	// Step 1: Is there anything to build here?
	if cfg.Kind == model.KindNone {
		o.reporter.NotTarget()
		return report, model.ReportedCLIError(model.ExitNotBuildTarget,
			"the current directory is not an app or a module")
	}

	// Step 2: Select and purge.
	modules := SelectModules(cfg, explicit)
	report.Modules = modules
	o.reporter.Building(cfg.Kind, modules)
	log.Debug().Strs(logging.KeyModules, modules).Str(logging.KeyPath, cfg.AppPath).Msg("Selected modules")

	purged, err := Purge(cfg, modules)
	if err != nil {
		return report, err
	}
	o.metrics.AddPurged(purged)
	log.Debug().Int("purged", purged).Msg("Purged module output")

	if info, ok, err := revision.Detect(cfg.AppPath); err != nil {
		log.Debug().Err(err).Msg("Revision unavailable")
	} else if ok {
		report.Revision = info.Short()
		log.Debug().Str(logging.KeyRevision, report.Revision).Msg("Detected revision")
	}

	// Step 3: Resolve entries.
	entries, dir, err := pages.Resolve(cfg.AppPath, modules)
	if errors.Is(err, pages.ErrNoEntries) {
		o.reporter.NoEntries()
		return report, model.ReportedCLIError(model.ExitNoEntries, "no file to build")
	}
	if err != nil {
		return report, err
	}
	o.metrics.SetEntries(len(entries))
	log.Debug().Int(logging.KeyEntries, len(entries)).Msg("Resolved entries")

	plan := &model.Plan{Modules: modules, Entries: entries, Pages: dir}

	comp, err := o.newCompiler(cfg.Output.Compiler, compiler.Options{AppPath: cfg.AppPath, BuildID: report.BuildID})
	if err != nil {
		return report, err
	}
	if c, ok := comp.(io.Closer); ok {
		defer c.Close()
	}
	report.Engine = comp.Name()
	log = log.With().Str(logging.KeyEngine, comp.Name()).Logger()

	// Step 4: Vendor stage.
	if vendor.Enabled(cfg) {
		res, err := vendor.Run(ctx, comp, cfg)
		if err != nil {
			return report, err
		}
		o.record(log, report, res.Stage)
		if res.Stage.Outcome != model.OutcomeSuccess {
			log.Debug().Msg("Vendor stage did not succeed, main stage skipped")
			return report, nil
		}
		plan.Vendor = res.Manifest
		report.VendorAssets = bundle.VendorURLs(cfg.Output.PublicPath, cfg.LibraryDir(), res.Manifest.AssetPaths)
	}

	// Step 5: Main stage.
	res, err := RunMain(ctx, comp, cfg, plan)
	if err != nil {
		return report, err
	}
	o.record(log, report, res)
	return report, nil
}

// record reports, logs and measures one stage result.
func (o *Orchestrator) record(log zerolog.Logger, report *model.Report, res model.StageResult) {
	report.Stages = append(report.Stages, res)
	o.reporter.Stage(res)
	o.metrics.ObserveStage(res)

	event := log.Info()
	if res.Outcome == model.OutcomeFailure {
		event = log.Warn()
	}
	event.Str(logging.KeyStage, res.Stage).
		Str(logging.KeyOutcome, res.Outcome.String()).
		Int64(logging.KeyDurationMS, res.Duration.Milliseconds()).
		Msg("Stage finished")
}

// Purge removes <appPath>/<outputRoot>/<module> for every module and
// returns how many directories existed. Missing directories are not an
// error.
func Purge(cfg model.BuildConfiguration, modules []string) (int, error) {
	root := cfg.OutputPath()
	removed := 0
	for _, module := range modules {
		target := filepath.Join(root, module)
		if !within(root, target) {
			return removed, fmt.Errorf("refusing to purge %s: outside of %s", target, root)
		}
		if _, err := os.Lstat(target); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("failed to inspect %s: %w", target, err)
		}
		if err := os.RemoveAll(target); err != nil {
			return removed, fmt.Errorf("failed to purge %s: %w", target, err)
		}
		removed++
	}
	return removed, nil
}

// within reports whether path is strictly inside root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
