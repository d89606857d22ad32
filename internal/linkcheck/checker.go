// Package linkcheck verifies that every internal link and anchor in a
// rendered site resolves to a routed page or an output file.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/routes"
)

// ErrBrokenLinks is returned when findings exist under a throw policy.
var ErrBrokenLinks = errors.New("broken links found")

// Kind distinguishes missing targets from missing anchors.
type Kind string

const (
	KindLink   Kind = "link"
	KindAnchor Kind = "anchor"
)

// Finding is one broken reference.
type Finding struct {
	Kind Kind   `json:"kind"`
	Page string `json:"page"` // Output file containing the link
	URL  string `json:"url"`
}

// Report is the outcome of a check.
type Report struct {
	Pages    int       `json:"pages"`
	Links    int       `json:"links"`
	Findings []Finding `json:"findings"`
}

// Count returns the number of findings of a kind.
func (r *Report) Count(kind Kind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Checker checks the output of one build.
type Checker struct {
	cfg   *config.Config
	table *routes.Table
	site  *url.URL
}

// New creates a checker for the given route table.
func New(cfg *config.Config, table *routes.Table) *Checker {
	site, _ := url.Parse(cfg.URL)
	return &Checker{cfg: cfg, table: table, site: site}
}

// Check parses every HTML file among files (relative to the output directory)
// and reports broken internal links and anchors, applying the configured policies.
func (c *Checker) Check(ctx context.Context, files []string) (*Report, error) {
	out := c.cfg.OutputDir()
	pageURLs := c.pageURLs()

	pages := map[string]*page{}
	var htmlFiles []string
	for _, f := range files {
		if !strings.HasSuffix(f, ".html") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fh, err := os.Open(filepath.Join(out, filepath.FromSlash(f))) // #nosec G304 -- files are build outputs
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f, err)
		}
		p, err := parsePage(fh)
		_ = fh.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		pages[f] = p
		htmlFiles = append(htmlFiles, f)
	}
	sort.Strings(htmlFiles)

	report := &Report{Pages: len(htmlFiles), Findings: []Finding{}}
	for _, f := range htmlFiles {
		base := pageURLs[f]
		if base == "" {
			base = c.cfg.BaseURL + f
		}
		pageURL := &url.URL{Path: base}
		for _, l := range pages[f].links {
			if !c.internal(l.URL) {
				continue
			}
			report.Links++
			if finding, broken := c.checkLink(out, f, pageURL, l, pages); broken {
				report.Findings = append(report.Findings, finding)
			}
		}
	}

	c.report(report)
	if (c.cfg.Links.OnBrokenLinks.Fails() && report.Count(KindLink) > 0) ||
		(c.cfg.Links.OnBrokenAnchors.Fails() && report.Count(KindAnchor) > 0) {
		return report, fmt.Errorf("%w: %d link(s), %d anchor(s)", ErrBrokenLinks, report.Count(KindLink), report.Count(KindAnchor))
	}
	return report, nil
}

func (c *Checker) checkLink(out, file string, pageURL *url.URL, l Link, pages map[string]*page) (Finding, bool) {
	ref, err := url.Parse(l.URL)
	if err != nil {
		return Finding{Kind: KindLink, Page: file, URL: l.URL}, true
	}
	target := pageURL.ResolveReference(&url.URL{Path: ref.Path, RawQuery: ref.RawQuery, Fragment: ref.Fragment})

	// Same-page fragment.
	if ref.Path == "" {
		if ref.Fragment != "" && !pages[file].ids.Has(ref.Fragment) {
			return Finding{Kind: KindAnchor, Page: file, URL: l.URL}, true
		}
		return Finding{}, false
	}

	targetFile, ok := c.resolve(out, target.Path)
	if !ok {
		return Finding{Kind: KindLink, Page: file, URL: l.URL}, true
	}
	if ref.Fragment != "" {
		if tp, isPage := pages[targetFile]; isPage && !tp.ids.Has(ref.Fragment) {
			return Finding{Kind: KindAnchor, Page: file, URL: l.URL}, true
		}
	}
	return Finding{}, false
}

// resolve maps a site path to an output file: a routed component first, then a static file.
func (c *Checker) resolve(out, p string) (string, bool) {
	if m := c.table.Lookup(p); !m.NotFound {
		return m.Component.File, true
	}
	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	if p != base && !strings.HasPrefix(p, c.cfg.BaseURL) {
		return "", false
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(p, base), "/")
	if rel == "" {
		return "", false
	}
	rel = path.Clean(rel)
	if strings.HasPrefix(rel, "..") {
		return "", false
	}
	if st, err := os.Stat(filepath.Join(out, filepath.FromSlash(rel))); err == nil && !st.IsDir() {
		return rel, true
	}
	return "", false
}

// internal reports whether a link points into this site.
func (c *Checker) internal(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}
	switch u.Scheme {
	case "":
		return u.Host == ""
	case "http", "https":
		return c.site != nil && c.site.Host != "" && strings.EqualFold(u.Host, c.site.Host) && strings.HasPrefix(u.Path, c.cfg.BaseURL)
	default:
		return false
	}
}

func (c *Checker) pageURLs() map[string]string {
	m := c.table.Manifest()
	urls := make(map[string]string, len(m.Components))
	for _, comp := range m.Components {
		if comp.File != "" && comp.Permalink != "" {
			urls[comp.File] = comp.Permalink
		}
	}
	return urls
}

func (c *Checker) report(r *Report) {
	for _, f := range r.Findings {
		policy := c.cfg.Links.OnBrokenLinks
		msg := "Broken link"
		if f.Kind == KindAnchor {
			policy = c.cfg.Links.OnBrokenAnchors
			msg = "Broken anchor"
		}
		policy.Report(msg, logfields.File(f.Page), logfields.URL(f.URL))
	}
	slog.Info("Link check complete",
		slog.Int("pages", r.Pages),
		slog.Int("links", r.Links),
		slog.Int("broken_links", r.Count(KindLink)),
		slog.Int("broken_anchors", r.Count(KindAnchor)))
}
