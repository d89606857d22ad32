package routes

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/docs"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// NotFoundFile is the output file rendered for the catch-all route.
const NotFoundFile = "404.html"

// Build assembles the route manifest for a discovered site. Docs must already
// carry their sidebar assignment. The result is validated.
func Build(cfg *config.Config, set *docs.Set) (*Manifest, error) {
	reg := newRegistry()
	m := &Manifest{BaseURL: cfg.BaseURL, TrailingSlash: cfg.TrailingSlash}
	docsOnly := cfg.Docs.RouteBasePath == ""

	hasHomePage := false
	for _, p := range set.Pages {
		if p.Permalink == cfg.BaseURL {
			hasHomePage = true
		}
	}
	if !hasHomePage && !docsOnly {
		ref, err := reg.add(cfg.BaseURL, Component{Kind: KindHome, File: FileFor(cfg.BaseURL, cfg.BaseURL, cfg.TrailingSlash), Permalink: cfg.BaseURL})
		if err != nil {
			return nil, err
		}
		m.Routes = append(m.Routes, &Entry{Path: cfg.BaseURL, Component: ref, Exact: true})
	}

	pages := make([]*docs.Page, len(set.Pages))
	copy(pages, set.Pages)
	sort.SliceStable(pages, func(i, j int) bool {
		// The home page leads, the rest follow in path order.
		if (pages[i].Permalink == cfg.BaseURL) != (pages[j].Permalink == cfg.BaseURL) {
			return pages[i].Permalink == cfg.BaseURL
		}
		return pages[i].Permalink < pages[j].Permalink
	})
	for _, p := range pages {
		kind := KindPage
		if p.Permalink == cfg.BaseURL {
			kind = KindHome
		}
		ref, err := reg.add(p.Permalink, Component{
			Kind:      kind,
			Source:    p.Source,
			File:      FileFor(p.Permalink, cfg.BaseURL, cfg.TrailingSlash),
			Permalink: p.Permalink,
		})
		if err != nil {
			return nil, err
		}
		m.Routes = append(m.Routes, &Entry{Path: p.Permalink, Component: ref, Exact: true})
	}

	if len(set.Docs) > 0 {
		rootPath := cfg.DocsBasePath()
		rootRef, err := reg.add(rootPath, Component{Kind: KindDocsRoot, Permalink: rootPath})
		if err != nil {
			return nil, err
		}
		root := &Entry{Path: rootPath, Component: rootRef}

		leaves := make([]*docs.Doc, len(set.Docs))
		copy(leaves, set.Docs)
		sort.Slice(leaves, func(i, j int) bool { return leaves[i].Permalink < leaves[j].Permalink })
		for _, d := range leaves {
			if !underPath(d.Permalink, rootPath) {
				return nil, fmt.Errorf("doc %q permalink %s is outside the docs root %s", d.ID, d.Permalink, rootPath)
			}
			ref, err := reg.add(d.Permalink, Component{
				Kind:      KindDoc,
				Source:    d.Source,
				File:      FileFor(d.Permalink, cfg.BaseURL, cfg.TrailingSlash),
				Permalink: d.Permalink,
				DocID:     d.ID,
			})
			if err != nil {
				return nil, err
			}
			root.Routes = append(root.Routes, &Entry{Path: d.Permalink, Component: ref, Exact: true, Sidebar: d.Sidebar})
		}
		m.Routes = append(m.Routes, root)
	}

	nfRef, err := reg.add(CatchAll, Component{Kind: KindNotFound, File: NotFoundFile})
	if err != nil {
		return nil, err
	}
	m.Routes = append(m.Routes, &Entry{Path: CatchAll, Component: nfRef})
	m.Components = reg.components

	if err := m.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("Route manifest built", logfields.Count(len(m.Components)))
	return m, nil
}

// FileFor maps a permalink to its output file relative to the output directory,
// which is served at baseURL. The site root maps to index.html, a trailing-slash
// path to <path>/index.html, anything else to <path>.html.
func FileFor(permalink, baseURL string, trailingSlash bool) string {
	rel := strings.TrimPrefix(permalink, baseURL)
	if rel == permalink {
		rel = strings.TrimPrefix(permalink, strings.TrimSuffix(baseURL, "/"))
	}
	rel = strings.TrimPrefix(rel, "/")
	switch {
	case rel == "":
		return "index.html"
	case strings.HasSuffix(rel, "/"):
		return rel + "index.html"
	case trailingSlash:
		return rel + "/index.html"
	default:
		return rel + ".html"
	}
}

func underPath(p, root string) bool {
	return hasPathPrefix(trimTrailingSlash(p), trimTrailingSlash(root))
}
