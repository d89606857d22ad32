package render

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/sidebar"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed assets/site.css
var siteCSS []byte

// CSSFile is the stylesheet path relative to the output directory.
const CSSFile = "assets/css/site.css"

var views = []string{"doc", "page", "home", "notfound"}

type sidebarLevel struct {
	Items  []*sidebar.Item
	Active string
}

func parseTemplates(cfg *config.Config) (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"sidebarLevel": func(items []*sidebar.Item, active string) sidebarLevel {
			return sidebarLevel{Items: items, Active: active}
		},
		"contains": func(it *sidebar.Item, docID string) bool {
			return docID != "" && it.Contains(docID)
		},
		"siteLink": func(item config.NavItem) string {
			return siteLink(cfg, item)
		},
		"urlPath": escapePath,
	}
	out := make(map[string]*template.Template, len(views))
	for _, v := range views {
		t, err := template.New(v).Funcs(funcs).ParseFS(templateFS, "templates/layout.tmpl", "templates/"+v+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", v, err)
		}
		out[v] = t
	}
	return out, nil
}

// siteLink resolves a navbar or footer item: href is used as-is, to is joined onto the base URL.
func siteLink(cfg *config.Config, item config.NavItem) string {
	if item.Href != "" {
		return item.Href
	}
	to := strings.TrimPrefix(item.To, "/")
	return cfg.BaseURL + to
}

// escapePath percent-encodes a site path so that "?" and "#" in a permalink
// are not read as a query or fragment.
func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}
