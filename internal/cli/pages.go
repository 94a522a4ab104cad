// Package cli: pages.go implements the "ath2 pages" command.
//
// The pages command resolves the page entries of the selected modules
// without compiling anything, so that users can check what a build would
// pick up.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luckyG0429/athena2/internal/model"
	"github.com/luckyG0429/athena2/internal/orchestrator"
	"github.com/luckyG0429/athena2/internal/pages"
)

// NewPagesCommand creates the "pages" cobra command.
func NewPagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages [modules...]",
		Short: "List the page entries a build would compile",
		Long: `List the page entries a build would compile.

Each page is shown with its module, its entry script and its HTML template.
Pages without a template are compiled but produce no HTML file.

Examples:
  ath2 pages
  ath2 pages home
  ath2 pages --json`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPages(os.Stdout, args)
		},
	}
	return cmd
}

// pageRow is one line of the pages listing.
type pageRow struct {
	Module   string `json:"module"`
	Page     string `json:"page"`
	Entry    string `json:"entry"`
	Template string `json:"template,omitempty"`
	Output   string `json:"output,omitempty"`
}

// runPages is the main logic function for the pages command.
func runPages(w io.Writer, explicit []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if cfg.Kind == model.KindNone {
		return model.NewCLIError(model.ExitNotBuildTarget,
			"the current directory is not an app or a module")
	}

	modules := orchestrator.SelectModules(cfg, explicit)
	entries, dir, err := pages.Resolve(cfg.AppPath, modules)
	if err != nil && !errors.Is(err, pages.ErrNoEntries) {
		return err
	}

	rows := buildPageRows(cfg.AppPath, entries, dir)
	if IsJSONOutput() {
		return printPagesJSON(w, rows)
	}
	printPagesText(w, rows)
	return nil
}

// buildPageRows joins the entry map and the page directory into sorted
// rows. Paths are shown relative to appPath.
func buildPageRows(appPath string, entries model.EntryMap, dir model.PageDirectory) []pageRow {
	rows := make([]pageRow, 0, len(entries))
	for _, name := range entries.Keys() {
		module, page, _ := strings.Cut(name, "/")
		row := pageRow{Module: module, Page: page}
		if files := entries[name]; len(files) > 0 {
			row.Entry = relPath(appPath, files[0])
		}
		if p, ok := dir[module][page]; ok {
			row.Template = relPath(appPath, p.Filepath)
			row.Output = filepath.ToSlash(filepath.Join(module, p.Filename))
		}
		rows = append(rows, row)
	}
	return rows
}

// relPath returns path relative to base with forward slashes, or path
// itself when it is not below base.
func relPath(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// printPagesText outputs the rows as a fixed-width table.
func printPagesText(w io.Writer, rows []pageRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No pages found.")
		return
	}

	fmt.Fprintf(w, "%-12s %-12s %-32s %s\n", "MODULE", "PAGE", "ENTRY", "TEMPLATE")
	for _, r := range rows {
		fmt.Fprintf(w, "%-12s %-12s %-32s %s\n", r.Module, r.Page, r.Entry, dash(r.Template))
	}
}

// printPagesJSON outputs the rows under a top-level "pages" key.
func printPagesJSON(w io.Writer, rows []pageRow) error {
	data, err := json.MarshalIndent(struct {
		Pages []pageRow `json:"pages"`
	}{Pages: rows}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize pages: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// dash returns s, or "-" when s is empty.
func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
