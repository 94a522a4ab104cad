package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckyG0429/athena2/internal/compiler"
	"github.com/luckyG0429/athena2/internal/model"
)

// TestFilterContainers verifies the app path filter.
func TestFilterContainers(t *testing.T) {
	all := []compiler.BuildContainer{
		{ID: "a", AppPath: "/work/shop"},
		{ID: "b", AppPath: "/work/blog"},
		{ID: "c", AppPath: "/work/shop"},
	}

	got := filterContainers(all, "/work/shop")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	assert.Empty(t, filterContainers(all, "/work/none"))
}

// TestPrintCleanText verifies the human-readable summary.
func TestPrintCleanText(t *testing.T) {
	tests := []struct {
		name       string
		result     cleanResult
		containers bool
		want       string
	}{
		{
			name: "nothing",
			want: "Nothing to clean.\n",
		},
		{
			name:   "purged",
			result: cleanResult{Purged: 2},
			want:   "Removed the output of 2 module(s).\n",
		},
		{
			name:       "with containers",
			result:     cleanResult{Purged: 1, Containers: []string{"x"}},
			containers: true,
			want:       "Removed the output of 1 module(s).\nRemoved 1 build container(s).\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printCleanText(&buf, tt.result, tt.containers)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

// TestRunClean verifies that only the selected modules are purged.
func TestRunClean(t *testing.T) {
	app := newApp(t, basicApp)
	useDir(t, app)
	writeFile(t, app, "dist/home/index.js", "")
	writeFile(t, app, "dist/user/index.js", "")
	writeFile(t, app, "dist/lib/vendor.dll.js", "")
	jsonOutput = true

	var buf bytes.Buffer
	require.NoError(t, runClean(context.Background(), &buf, []string{"home", "missing"}, &cleanFlags{}))

	var got cleanResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, cleanResult{Modules: []string{"home", "missing"}, Purged: 1}, got)

	assert.NoDirExists(t, filepath.Join(app, "dist", "home"))
	assert.DirExists(t, filepath.Join(app, "dist", "user"))
	assert.DirExists(t, filepath.Join(app, "dist", "lib"))
}

// TestRunClean_NotATarget verifies the exit code outside of an app.
func TestRunClean_NotATarget(t *testing.T) {
	useDir(t, t.TempDir())

	err := runClean(context.Background(), &bytes.Buffer{}, nil, &cleanFlags{})
	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitNotBuildTarget, cliErr.Code)
}
