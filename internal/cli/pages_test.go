package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckyG0429/athena2/internal/model"
)

// TestBuildPageRows verifies the join of entries and pages.
func TestBuildPageRows(t *testing.T) {
	app := filepath.FromSlash("/work/shop")
	entries := model.EntryMap{
		"user/index":  {filepath.Join(app, "user", "page", "index", "index.js")},
		"home/about":  {filepath.Join(app, "home", "page", "about", "index.ts")},
		"home/index":  {filepath.Join(app, "home", "page", "index", "index.js")},
		"home/broken": nil,
	}
	dir := model.PageDirectory{
		"home": {"index": {Filename: "index.html", Filepath: filepath.Join(app, "home", "page", "index", "index.html")}},
		"user": {"index": {Filename: "index.html", Filepath: filepath.Join(app, "user", "page", "index", "index.html")}},
	}

	rows := buildPageRows(app, entries, dir)

	want := []pageRow{
		{Module: "home", Page: "about", Entry: "home/page/about/index.ts"},
		{Module: "home", Page: "broken"},
		{Module: "home", Page: "index", Entry: "home/page/index/index.js", Template: "home/page/index/index.html", Output: "home/index.html"},
		{Module: "user", Page: "index", Entry: "user/page/index/index.js", Template: "user/page/index/index.html", Output: "user/index.html"},
	}
	assert.Equal(t, want, rows)
}

// TestRelPath verifies relative rendering and the fallback outside base.
func TestRelPath(t *testing.T) {
	base := filepath.FromSlash("/work/shop")
	assert.Equal(t, "home/page/index/index.js", relPath(base, filepath.Join(base, "home", "page", "index", "index.js")))
	assert.Equal(t, "/elsewhere/index.js", relPath(base, filepath.FromSlash("/elsewhere/index.js")))
}

// TestPrintPagesText verifies the table and the empty message.
func TestPrintPagesText(t *testing.T) {
	var buf bytes.Buffer
	printPagesText(&buf, nil)
	assert.Equal(t, "No pages found.\n", buf.String())

	buf.Reset()
	printPagesText(&buf, []pageRow{
		{Module: "home", Page: "index", Entry: "home/page/index/index.js", Template: "home/page/index/index.html"},
		{Module: "home", Page: "about", Entry: "home/page/about/index.ts"},
	})
	want := fmt.Sprintf("%-12s %-12s %-32s %s\n", "MODULE", "PAGE", "ENTRY", "TEMPLATE") +
		"home         index        home/page/index/index.js         home/page/index/index.html\n" +
		"home         about        home/page/about/index.ts         -\n"
	assert.Equal(t, want, buf.String())
}

// TestRunPages verifies the listing of a real app directory.
func TestRunPages(t *testing.T) {
	t.Run("all modules as json", func(t *testing.T) {
		useDir(t, newApp(t, basicApp))
		jsonOutput = true

		var buf bytes.Buffer
		require.NoError(t, runPages(&buf, nil))

		var got struct {
			Pages []pageRow `json:"pages"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got.Pages, 3)
		assert.Equal(t, pageRow{Module: "home", Page: "about", Entry: "home/page/about/index.ts"}, got.Pages[0])
		assert.Equal(t, "user/page/index/index.jsx", got.Pages[2].Entry)
		assert.Equal(t, "user/index.html", got.Pages[2].Output)
	})

	t.Run("explicit module", func(t *testing.T) {
		useDir(t, newApp(t, basicApp))

		var buf bytes.Buffer
		require.NoError(t, runPages(&buf, []string{"user"}))
		assert.Contains(t, buf.String(), "user/page/index/index.jsx")
		assert.NotContains(t, buf.String(), "home/")
	})

	t.Run("no entries is not an error", func(t *testing.T) {
		useDir(t, newApp(t, basicApp))

		var buf bytes.Buffer
		require.NoError(t, runPages(&buf, []string{"missing"}))
		assert.Equal(t, "No pages found.\n", buf.String())
	})

	t.Run("not a target", func(t *testing.T) {
		useDir(t, t.TempDir())

		err := runPages(&bytes.Buffer{}, nil)
		var cliErr *model.CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, model.ExitNotBuildTarget, cliErr.Code)
	})
}
