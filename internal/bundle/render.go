package bundle

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported rendering formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Marshal renders a configuration as indented JSON or as YAML, terminated by
// a newline.
func Marshal(c *Config, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to serialize %s configuration: %w", c.Stage, err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "yml":
		data, err := yaml.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize %s configuration: %w", c.Stage, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (valid: json, yaml)", format)
	}
}

// Rebase returns a copy of c in which every absolute path under from is
// moved under to. Paths in the result use forward slashes. It is used to
// hand a host configuration to a compiler running in a container.
func Rebase(c *Config, from, to string) *Config {
	move := func(p string) string {
		if p == "" || p == SitemapTemplate {
			return p
		}
		rel, err := filepath.Rel(from, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return p
		}
		if rel == "." {
			return to
		}
		return to + "/" + filepath.ToSlash(rel)
	}

	out := *c
	out.Context = move(c.Context)
	out.Output.Path = move(c.Output.Path)

	out.Entry = make(map[string][]string, len(c.Entry))
	for name, files := range c.Entry {
		moved := make([]string, len(files))
		for i, f := range files {
			if filepath.IsAbs(f) {
				moved[i] = move(f)
			} else {
				moved[i] = f
			}
		}
		out.Entry[name] = moved
	}

	out.Directives = make([]Directive, len(c.Directives))
	for i, d := range c.Directives {
		switch {
		case d.HTML != nil:
			p := *d.HTML
			p.Template = move(p.Template)
			d.HTML = &p
		case d.Dll != nil:
			m := *d.Dll
			m.Path = move(m.Path)
			m.Context = move(m.Context)
			d.Dll = &m
		case d.Reference != nil:
			r := *d.Reference
			r.Context = move(r.Context)
			d.Reference = &r
		}
		out.Directives[i] = d
	}
	return &out
}
