package pages

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/luckyG0429/athena2/internal/model"
)

// PageDir is the directory under a module that holds one directory per page.
const PageDir = "page"

// TemplateFile is the HTML template file name inside a page directory.
const TemplateFile = "index.html"

// entryCandidates lists the entry script names in lookup priority order.
var entryCandidates = []string{"index.js", "index.jsx", "index.ts", "index.tsx"}

// ErrNoEntries is returned when none of the selected modules has a page
// with an entry script.
var ErrNoEntries = errors.New("no file to build")

// EntryName returns the qualified entry name of a page ("module/page").
// The same name is used as the html directive's chunk.
func EntryName(module, page string) string {
	return module + "/" + page
}

// Resolve scans the page directories of the given modules and returns the
// entry map and the page directory.
//
// Modules whose directory does not exist contribute nothing. Directories
// starting with "." or "_" are skipped. A page without an entry script is
// ignored; a page without a template gets an entry but no page record.
// ErrNoEntries is returned (together with the empty results) when nothing
// was found.
func Resolve(appPath string, modules []string) (model.EntryMap, model.PageDirectory, error) {
	entries := make(model.EntryMap)
	dir := make(model.PageDirectory)

	for _, module := range modules {
		root := filepath.Join(appPath, module, PageDir)
		names, err := listPageDirs(root)
		if err != nil {
			return nil, nil, err
		}

		for _, page := range names {
			pagePath := filepath.Join(root, page)
			entry, ok := findEntry(pagePath)
			if !ok {
				continue
			}
			entries[EntryName(module, page)] = []string{entry}

			tmpl := filepath.Join(pagePath, TemplateFile)
			if !isFile(tmpl) {
				continue
			}
			if dir[module] == nil {
				dir[module] = make(map[string]model.Page)
			}
			dir[module][page] = model.Page{
				Filename: page + ".html",
				Filepath: tmpl,
			}
		}
	}

	if len(entries) == 0 {
		return entries, dir, ErrNoEntries
	}
	return entries, dir, nil
}

// listPageDirs returns the sorted page directory names under root.
// A missing root yields no names and no error.
func listPageDirs(root string) ([]string, error) {
	items, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read page directory %s: %w", root, err)
	}

	var names []string
	for _, item := range items {
		if !item.IsDir() || isHidden(item.Name()) {
			continue
		}
		names = append(names, item.Name())
	}
	sort.Strings(names)
	return names, nil
}

// findEntry returns the first existing entry script in pagePath.
func findEntry(pagePath string) (string, bool) {
	for _, name := range entryCandidates {
		p := filepath.Join(pagePath, name)
		if isFile(p) {
			return p, true
		}
	}
	return "", false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
