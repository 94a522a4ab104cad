package compiler

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/luckyG0429/athena2/internal/bundle"
	"github.com/luckyG0429/athena2/internal/model"
)

//go:embed sitemap.html.tmpl
var sitemapSource string

var sitemapTemplate = template.Must(template.New("sitemap").Parse(sitemapSource))

// sitemapData is the data passed to the sitemap template.
type sitemapData struct {
	Title   string
	Modules []sitemapModule
}

type sitemapModule struct {
	Name  string
	Pages []sitemapPage
}

type sitemapPage struct {
	Name string
	URL  string
}

// renderHTML produces the HTML of one page directive. outputs holds the
// absolute paths of the emitted bundle files.
func renderHTML(cfg *bundle.Config, page *bundle.HTMLPage, outputs map[string]bool) ([]byte, error) {
	if page.Template == bundle.SitemapTemplate {
		return renderSitemap(cfg.Output.PublicPath, page)
	}

	tmpl, err := os.ReadFile(page.Template)
	if err != nil {
		return nil, fmt.Errorf("failed to read page template: %w", err)
	}

	var head, body []string
	for _, src := range page.VendorFiles {
		body = append(body, fmt.Sprintf(`<script src="%s"></script>`, html.EscapeString(src)))
	}
	for _, chunk := range page.Chunks {
		base := filepath.Join(cfg.Output.Path, filepath.FromSlash(chunk))
		if outputs[base+".css"] {
			head = append(head, fmt.Sprintf(`<link rel="stylesheet" href="%s">`,
				html.EscapeString(cfg.Output.PublicPath+chunk+".css")))
		}
		js := filepath.Join(cfg.Output.Path, filepath.FromSlash(bundle.ExpandName(cfg.Output.Filename, chunk)))
		if outputs[js] {
			body = append(body, fmt.Sprintf(`<script type="module" src="%s"></script>`,
				html.EscapeString(cfg.Output.PublicPath+bundle.ExpandName(cfg.Output.Filename, chunk))))
		}
	}

	doc := injectBefore(string(tmpl), "</head>", head)
	doc = injectBefore(doc, "</body>", body)
	return []byte(doc), nil
}

// injectBefore inserts tags, one per line, before the last occurrence of
// the closing tag (matched case-insensitively). Without the closing tag the
// tags are appended.
func injectBefore(doc, closing string, tags []string) string {
	if len(tags) == 0 {
		return doc
	}
	block := strings.Join(tags, "\n") + "\n"

	idx := strings.LastIndex(strings.ToLower(doc), closing)
	if idx < 0 {
		if doc != "" && !strings.HasSuffix(doc, "\n") {
			doc += "\n"
		}
		return doc + block
	}
	return doc[:idx] + block + doc[idx:]
}

// renderSitemap renders the site-level index listing every page.
func renderSitemap(publicPath string, page *bundle.HTMLPage) ([]byte, error) {
	data := sitemapData{Title: page.Title}
	var current *sitemapModule
	page.Pages.Each(func(module, name string, p model.Page) {
		if current == nil || current.Name != module {
			data.Modules = append(data.Modules, sitemapModule{Name: module})
			current = &data.Modules[len(data.Modules)-1]
		}
		current.Pages = append(current.Pages, sitemapPage{
			Name: name,
			URL:  publicPath + path.Join(module, p.Filename),
		})
	})

	var buf bytes.Buffer
	if err := sitemapTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render sitemap: %w", err)
	}
	return buf.Bytes(), nil
}
