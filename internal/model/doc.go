// Package model defines the domain types and value objects for the ath2
// build orchestrator.
//
// This package contains pure data structures with no external dependencies.
// BuildConfiguration is produced once per invocation by the configuration
// loader and is treated as read-only afterwards; facts discovered while
// orchestrating (module list, entries, pages, vendor manifest) travel in a
// separate Plan value instead of being written back into the configuration.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
