package compiler

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/luckyG0429/athena2/internal/bundle"
)

// dllNamespace is the esbuild namespace of modules served from the vendor
// library.
const dllNamespace = "dll-reference"

// referenceTable maps import specifiers to vendor module ids.
func referenceTable(ref *bundle.DllReference) map[string]string {
	table := make(map[string]string, len(ref.Content))
	for request, entry := range ref.Content {
		id := request
		if m, ok := entry.(map[string]any); ok {
			if v, ok := m["id"]; ok && v != nil {
				id = fmt.Sprint(v)
			}
		}
		table[request] = id
		if spec := bareSpecifier(request); spec != "" {
			if _, taken := table[spec]; !taken {
				table[spec] = id
			}
		}
	}
	return table
}

// bareSpecifier turns a manifest request such as
// "./node_modules/react/index.js" into the bare import "react". It returns
// "" for requests outside node_modules.
func bareSpecifier(request string) string {
	const prefix = "./node_modules/"
	if !strings.HasPrefix(request, prefix) {
		return ""
	}
	spec := strings.TrimPrefix(request, prefix)
	spec = strings.TrimSuffix(spec, "/index.js")
	return spec
}

// dllReferencePlugin resolves imports of vendor modules to stubs that read
// the module from the vendor library's global.
func dllReferencePlugin(ref *bundle.DllReference) api.Plugin {
	table := referenceTable(ref)

	requests := make([]string, 0, len(table))
	for r := range table {
		requests = append(requests, regexp.QuoteMeta(r))
	}
	sort.Strings(requests)
	filter := "^(" + strings.Join(requests, "|") + ")$"

	global, _ := json.Marshal(ref.Name)

	return api.Plugin{
		Name: dllNamespace,
		Setup: func(b api.PluginBuild) {
			if len(table) == 0 {
				return
			}
			b.OnResolve(api.OnResolveOptions{Filter: filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				return api.OnResolveResult{Path: args.Path, Namespace: dllNamespace}, nil
			})
			b.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: dllNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				id, _ := json.Marshal(table[args.Path])
				contents := fmt.Sprintf("module.exports = globalThis[%s][%s];\n", global, id)
				return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
			})
		},
	}
}
