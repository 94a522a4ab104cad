package appconf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/luckyG0429/athena2/internal/model"
)

// ValidationError represents a specific validation failure in a build
// configuration.
type ValidationError struct {
	// Field is the configuration field path that failed validation
	// (e.g., "build.library.libs").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// Validate performs consistency checks on a detected configuration and
// returns the list of problems (empty list = valid configuration).
// KindNone configurations are not validated; there is nothing to check.
//
// Checks performed:
//   - moduleList entries and the module name must be valid names
//   - outputRoot and chunkDirectory must be relative and stay inside the app
//   - the compiler engine must be known; docker needs an image
//   - library libs must not contain empty names
func Validate(cfg model.BuildConfiguration) []ValidationError {
	var errs []ValidationError
	if cfg.Kind == model.KindNone {
		return errs
	}

	seen := make(map[string]bool, len(cfg.App.ModuleList))
	for i, m := range cfg.App.ModuleList {
		field := fmt.Sprintf("moduleList[%d]", i)
		if err := model.ValidateName(m); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
			continue
		}
		if seen[m] {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("module %q listed twice", m)})
		}
		seen[m] = true
	}

	if cfg.Kind == model.KindModule {
		if err := model.ValidateName(cfg.Module.Module); err != nil {
			errs = append(errs, ValidationError{Field: "module", Message: err.Error()})
		}
	}

	errs = append(errs, validateRelative("build.outputRoot", cfg.Output.OutputRoot)...)
	errs = append(errs, validateRelative("build.chunkDirectory", cfg.Output.ChunkDirectory)...)

	switch cfg.Output.Compiler.Engine {
	case model.EngineEsbuild, model.EngineExec:
	case model.EngineDocker:
		if cfg.Output.Compiler.Image == "" {
			errs = append(errs, ValidationError{
				Field:   "build.compiler.image",
				Message: "image is required for the docker engine",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "build.compiler.engine",
			Message: fmt.Sprintf("unknown engine %q (valid: esbuild, exec, docker)", cfg.Output.Compiler.Engine),
		})
	}

	if lib := cfg.Output.Library; lib != nil {
		for i, name := range lib.Libs {
			if strings.TrimSpace(name) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("build.library.libs[%d]", i),
					Message: "library module name must not be empty",
				})
			}
		}
		errs = append(errs, validateRelative("build.library.directory", lib.Directory)...)
	}

	return errs
}

// validateRelative checks that a configured directory is relative and does
// not climb out of its parent.
func validateRelative(field, dir string) []ValidationError {
	if dir == "" {
		return nil
	}
	if filepath.IsAbs(dir) {
		return []ValidationError{{Field: field, Message: "path should be relative"}}
	}
	clean := filepath.Clean(dir)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return []ValidationError{{Field: field, Message: "path must not leave the app directory"}}
	}
	return nil
}

// JoinErrors renders validation errors as one multi-line message.
func JoinErrors(errs []ValidationError) string {
	lines := make([]string, 0, len(errs))
	for i := range errs {
		lines = append(lines, errs[i].Error())
	}
	return strings.Join(lines, "\n")
}
