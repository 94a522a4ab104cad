package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// BuildKind tells the orchestrator what the current directory is.
// An app root can build any subset of its modules; a module root always
// builds exactly itself.
type BuildKind string

const (
	// KindApp is an application root (possibly containing many modules).
	KindApp BuildKind = "app"

	// KindModule is a single module directory inside an application.
	KindModule BuildKind = "module"

	// KindNone means neither configuration file was found.
	KindNone BuildKind = "none"
)

// String returns the string representation of BuildKind.
func (k BuildKind) String() string {
	return string(k)
}

// Compiler engine names accepted in CompilerSettings.Engine.
const (
	EngineEsbuild = "esbuild"
	EngineExec    = "exec"
	EngineDocker  = "docker"
)

// Defaults applied by the configuration loader when a field is left empty.
const (
	DefaultPublicPath     = "/"
	DefaultOutputRoot     = "dist"
	DefaultChunkDirectory = "chunk"
	DefaultLibraryName    = "vendor"
	DefaultLibraryDir     = "lib"
	DefaultEngine         = EngineEsbuild
	DefaultDockerImage    = "node:20-alpine"
)

// AppSettings holds application-level settings from the app configuration file.
type AppSettings struct {
	// Name is the application name, used as the sitemap page title.
	Name string `json:"app" yaml:"app" toml:"app"`

	// Template is the scaffold template the app was generated from
	// (e.g. "h5", "pc"). It selects preset defaults in the base layer.
	Template string `json:"template,omitempty" yaml:"template,omitempty" toml:"template,omitempty"`

	// Framework is the UI framework ("react", "nerv", "vue", or empty).
	Framework string `json:"framework,omitempty" yaml:"framework,omitempty" toml:"framework,omitempty"`

	// Platform is the target platform ("pc" or "mobile").
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty" toml:"platform,omitempty"`

	// ModuleList is the full, ordered list of modules in the application.
	ModuleList []string `json:"moduleList" yaml:"moduleList" toml:"moduleList"`
}

// ModuleSettings holds the settings of a single module directory.
type ModuleSettings struct {
	// Module is the module identifier (its directory name under the app root).
	Module string `json:"module" yaml:"module" toml:"module"`
}

// LibrarySettings describes the optional shared vendor library built before
// the main bundle.
type LibrarySettings struct {
	// Name is the library name; it prefixes the bundle and manifest files.
	Name string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`

	// Directory is the library output directory relative to the output root.
	Directory string `json:"directory,omitempty" yaml:"directory,omitempty" toml:"directory,omitempty"`

	// Libs lists the modules bundled into the vendor library.
	Libs []string `json:"libs" yaml:"libs" toml:"libs"`
}

// IsEmpty reports whether there is nothing to pre-build.
func (l *LibrarySettings) IsEmpty() bool {
	return l == nil || len(l.Libs) == 0
}

// CompilerSettings selects and parameterizes the compiler engine.
type CompilerSettings struct {
	// Engine is one of "esbuild", "exec", "docker".
	Engine string `json:"engine,omitempty" yaml:"engine,omitempty" toml:"engine,omitempty"`

	// Command is the bundler command line used by the exec and docker engines.
	Command []string `json:"command,omitempty" yaml:"command,omitempty" toml:"command,omitempty"`

	// Image is the container image used by the docker engine.
	Image string `json:"image,omitempty" yaml:"image,omitempty" toml:"image,omitempty"`
}

// OutputSettings holds the build section of the app configuration.
type OutputSettings struct {
	// PublicPath is the URL prefix under which the output root is served.
	PublicPath string `json:"publicPath,omitempty" yaml:"publicPath,omitempty" toml:"publicPath,omitempty"`

	// OutputRoot is the output directory relative to the app root.
	OutputRoot string `json:"outputRoot,omitempty" yaml:"outputRoot,omitempty" toml:"outputRoot,omitempty"`

	// ChunkDirectory is the directory (under the output root) for split chunks.
	ChunkDirectory string `json:"chunkDirectory,omitempty" yaml:"chunkDirectory,omitempty" toml:"chunkDirectory,omitempty"`

	// Library is the optional vendor library. Nil or empty disables the
	// vendor stage.
	Library *LibrarySettings `json:"library,omitempty" yaml:"library,omitempty" toml:"library,omitempty"`

	// Compiler selects the compiler engine.
	Compiler CompilerSettings `json:"compiler,omitempty" yaml:"compiler,omitempty" toml:"compiler,omitempty"`

	// Overrides is the user-supplied configuration layer. It is merged last,
	// on top of the base and production layers.
	Overrides map[string]any `json:"overrides,omitempty" yaml:"overrides,omitempty" toml:"overrides,omitempty"`
}

// BuildConfiguration is the immutable per-run configuration record.
// It is constructed once by the configuration loader; the orchestrator
// never mutates it.
type BuildConfiguration struct {
	// Kind is the build target discriminant.
	Kind BuildKind `json:"kind"`

	// AppPath is the absolute path of the application root.
	AppPath string `json:"appPath"`

	// App holds application-level settings.
	App AppSettings `json:"app"`

	// Module is set only when Kind is KindModule.
	Module ModuleSettings `json:"module,omitempty"`

	// Output holds output, library, compiler and override settings.
	Output OutputSettings `json:"output"`

	// Env holds variables read from the app's .env file.
	Env map[string]string `json:"env,omitempty"`
}

// OutputPath returns the absolute output root of the application.
func (c BuildConfiguration) OutputPath() string {
	return filepath.Join(c.AppPath, c.Output.OutputRoot)
}

// LibraryDir returns the library directory name, applying the default.
func (c BuildConfiguration) LibraryDir() string {
	if c.Output.Library != nil && c.Output.Library.Directory != "" {
		return c.Output.Library.Directory
	}
	return DefaultLibraryDir
}

// LibraryName returns the library name, applying the default.
func (c BuildConfiguration) LibraryName() string {
	if c.Output.Library != nil && c.Output.Library.Name != "" {
		return c.Output.Library.Name
	}
	return DefaultLibraryName
}

// LibraryPath returns the absolute vendor library output directory.
func (c BuildConfiguration) LibraryPath() string {
	return filepath.Join(c.OutputPath(), c.LibraryDir())
}

// EntryMap maps a qualified entry name ("module/page") to its source files.
type EntryMap map[string][]string

// Keys returns the entry names in sorted order.
func (m EntryMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Page is one HTML output page of a module.
type Page struct {
	// Filename is the output HTML file name relative to the module directory.
	Filename string `json:"filename" yaml:"filename"`

	// Filepath is the absolute path of the page's HTML template.
	Filepath string `json:"filepath" yaml:"filepath"`
}

// PageDirectory maps module -> page -> Page.
type PageDirectory map[string]map[string]Page

// Each calls fn for every (module, page) pair, modules and pages in sorted
// order, so that anything derived from the directory is deterministic.
func (d PageDirectory) Each(fn func(module, page string, p Page)) {
	modules := make([]string, 0, len(d))
	for m := range d {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		names := make([]string, 0, len(d[m]))
		for p := range d[m] {
			names = append(names, p)
		}
		sort.Strings(names)
		for _, p := range names {
			fn(m, p, d[m][p])
		}
	}
}

// Len returns the total number of pages.
func (d PageDirectory) Len() int {
	n := 0
	for _, pages := range d {
		n += len(pages)
	}
	return n
}

// VendorManifest is the artifact of a successful vendor stage.
type VendorManifest struct {
	// Name is the library global name recorded in the manifest
	// (e.g. "vendor_library").
	Name string `json:"name"`

	// Context is the absolute library directory the manifest was built in.
	Context string `json:"context"`

	// Content is the module-name -> module-id table.
	Content map[string]any `json:"content"`

	// AssetPaths lists the emitted vendor bundle file names (matching the
	// "dll.js" naming convention), relative to Context.
	AssetPaths []string `json:"assetPaths"`
}

// Plan accumulates the facts discovered during orchestration. It is threaded
// through the pipeline next to the immutable BuildConfiguration.
type Plan struct {
	// Modules is the ordered set of modules selected for this run.
	Modules []string `json:"modules"`

	// Entries is the resolved entry map.
	Entries EntryMap `json:"entries"`

	// Pages is the resolved page directory.
	Pages PageDirectory `json:"pages"`

	// Vendor is set only after a successful vendor stage.
	Vendor *VendorManifest `json:"vendor,omitempty"`
}

// Outcome is the classification of one compiler run.
type Outcome string

const (
	// OutcomeSuccess means no errors and no warnings.
	OutcomeSuccess Outcome = "success"

	// OutcomeWarning means warnings only.
	OutcomeWarning Outcome = "warning"

	// OutcomeFailure means at least one error (or a transport error).
	OutcomeFailure Outcome = "failure"
)

// String returns the string representation of Outcome.
func (o Outcome) String() string {
	return string(o)
}

// Stage names used in reports, logs and metrics.
const (
	StageVendor = "vendor"
	StageMain   = "main"
)

// StageResult is the classified result of a single stage.
type StageResult struct {
	// Stage is StageVendor or StageMain.
	Stage string `json:"stage" yaml:"stage"`

	// Outcome is the classification of the compiler result.
	Outcome Outcome `json:"outcome" yaml:"outcome"`

	// Messages holds all warnings for OutcomeWarning and at most one error
	// for OutcomeFailure.
	Messages []string `json:"messages,omitempty" yaml:"messages,omitempty"`

	// Duration is the wall time of the compiler run.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Report summarizes one orchestrator run.
type Report struct {
	BuildID      string        `json:"buildId" yaml:"buildId"`
	Kind         BuildKind     `json:"kind" yaml:"kind"`
	Engine       string        `json:"engine" yaml:"engine"`
	Modules      []string      `json:"modules" yaml:"modules"`
	Revision     string        `json:"revision,omitempty" yaml:"revision,omitempty"`
	Stages       []StageResult `json:"stages" yaml:"stages"`
	VendorAssets []string      `json:"vendorAssets,omitempty" yaml:"vendorAssets,omitempty"`
}

// Failed reports whether any stage ended in failure or whether the vendor
// stage blocked the main stage.
func (r *Report) Failed() bool {
	for _, s := range r.Stages {
		if s.Outcome == OutcomeFailure {
			return true
		}
		if s.Stage == StageVendor && s.Outcome != OutcomeSuccess {
			return true
		}
	}
	return false
}

// nameRegex validates module and page names: alphanumerics, hyphens and
// underscores, starting with an alphanumeric.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// ValidateName checks if the given name is a valid module or page name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid name %q: must contain only alphanumeric characters, hyphens and underscores, and start with alphanumeric", name)
	}
	return nil
}

// ExitCode defines the CLI exit codes. Scripts and CI systems can rely on
// them to tell configuration problems apart from compile failures.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitNotBuildTarget indicates the directory is neither an app nor a module.
	ExitNotBuildTarget ExitCode = 2

	// ExitNoEntries indicates no buildable page entries were found.
	ExitNoEntries ExitCode = 3

	// ExitBuildFailed indicates a compiler-reported failure or a vendor
	// stage that blocked the main build.
	ExitBuildFailed ExitCode = 4

	// ExitConfigInvalid indicates the configuration failed validation.
	ExitConfigInvalid ExitCode = 5
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error

	// Reported marks failures the user has already been told about; the
	// CLI exits with Code without printing the error again.
	Reported bool
}

// Error satisfies the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// ReportedCLIError creates a CLIError for a failure that was already
// reported to the user.
func ReportedCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message, Reported: true}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
