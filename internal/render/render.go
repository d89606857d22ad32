// Package render writes a built site to the output directory: one HTML file
// per routed component, the 404 page, the route manifest, a sitemap and assets.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/docs"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/markdown"
	"git.home.luguber.info/inful/docsite/internal/routes"
	"git.home.luguber.info/inful/docsite/internal/sidebar"
)

// Site is everything the renderer needs for one build.
type Site struct {
	Docs     *docs.Set
	Sidebars *sidebar.Sidebars
	Manifest *routes.Manifest
}

// BrokenLink is a Markdown file link that did not resolve to a doc or page.
type BrokenLink struct {
	Source string
	Target string
}

// Result summarizes a render.
type Result struct {
	Files               []string // Written files relative to the output directory, sorted
	BrokenMarkdownLinks []BrokenLink
}

// Renderer renders sites for one configuration.
type Renderer struct {
	cfg       *config.Config
	md        *markdown.Renderer
	templates map[string]*template.Template
}

// New parses the embedded templates.
func New(cfg *config.Config) (*Renderer, error) {
	tmpl, err := parseTemplates(cfg)
	if err != nil {
		return nil, err
	}
	return &Renderer{cfg: cfg, md: markdown.New(), templates: tmpl}, nil
}

type siteData struct {
	Title         string
	Tagline       string
	BaseURL       string
	CSS           string
	NavbarTitle   string
	Navbar        []config.NavItem
	FooterStyle   string
	FooterColumns []config.FooterColumn
	Copyright     string
}

type lastUpdated struct {
	At string
	By string
}

type pageData struct {
	Site        siteData
	Kind        routes.Kind
	Title       string
	Description string
	Canonical   string
	ShowTitle   bool
	Content     template.HTML
	Doc         *docs.Doc
	Sidebar     []*sidebar.Item
	TOC         []markdown.Heading
	LastUpdated *lastUpdated
	Features    []config.Feature
	DocsLink    string
}

// Render writes the site into the configured output directory.
func (r *Renderer) Render(ctx context.Context, site Site) (*Result, error) {
	out := r.cfg.OutputDir()
	if err := r.prepareOutput(out); err != nil {
		return nil, err
	}
	w := &writer{root: out}
	res := &Result{}

	docsBySource := make(map[string]*docs.Doc, len(site.Docs.Docs))
	for _, d := range site.Docs.Docs {
		docsBySource[d.Source] = d
	}
	pagesBySource := make(map[string]*docs.Page, len(site.Docs.Pages))
	for _, p := range site.Docs.Pages {
		pagesBySource[p.Source] = p
	}

	refs := make([]string, 0, len(site.Manifest.Components))
	for ref := range site.Manifest.Components {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := site.Manifest.Components[ref]
		var (
			data pageData
			view string
		)
		switch c.Kind {
		case routes.KindDocsRoot:
			continue
		case routes.KindDoc:
			d, ok := docsBySource[c.Source]
			if !ok {
				return nil, fmt.Errorf("component %s references unknown doc %s", ref, c.Source)
			}
			rendered, err := r.md.Render(d.Body, site.Docs.Resolver(d.Source))
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", d.Source, err)
			}
			res.collectBroken(d.Source, rendered.BrokenLinks)
			data = r.docData(d, rendered, site.Sidebars)
			view = "doc"
		case routes.KindHome, routes.KindPage:
			if c.Source == "" {
				data = r.homeData()
				view = "home"
				break
			}
			p, ok := pagesBySource[c.Source]
			if !ok {
				return nil, fmt.Errorf("component %s references unknown page %s", ref, c.Source)
			}
			rendered, err := r.md.Render(p.Body, site.Docs.Resolver(p.Source))
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", p.Source, err)
			}
			res.collectBroken(p.Source, rendered.BrokenLinks)
			data = r.base(c.Kind, p.Title, p.Description, p.Permalink)
			data.Content = template.HTML(rendered.HTML) // #nosec G203 -- goldmark escapes raw HTML
			data.ShowTitle = rendered.Summary.Title == ""
			view = "page"
		case routes.KindNotFound:
			data = r.base(c.Kind, "Page Not Found", "", "")
			view = "notfound"
		default:
			return nil, fmt.Errorf("component %s has unknown kind %q", ref, c.Kind)
		}

		var buf bytes.Buffer
		if err := r.templates[view].ExecuteTemplate(&buf, "layout", data); err != nil {
			return nil, fmt.Errorf("execute %s template for %s: %w", view, c.Permalink, err)
		}
		if err := w.write(c.File, buf.Bytes()); err != nil {
			return nil, err
		}
		slog.Debug("Rendered", logfields.Component(ref), logfields.File(c.File))
	}

	manifest, err := site.Manifest.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode route manifest: %w", err)
	}
	if err := w.write(routes.ManifestFile, manifest); err != nil {
		return nil, err
	}
	sitemap, err := buildSitemap(r.cfg, site)
	if err != nil {
		return nil, err
	}
	if err := w.write(SitemapFile, sitemap); err != nil {
		return nil, err
	}
	if err := w.write(CSSFile, siteCSS); err != nil {
		return nil, err
	}
	for _, a := range site.Docs.Assets {
		if err := w.copyFile(AssetFile(r.cfg.BaseURL, a), a.Path); err != nil {
			return nil, err
		}
	}

	sort.Strings(w.files)
	res.Files = w.files
	r.reportBroken(res.BrokenMarkdownLinks)
	return res, nil
}

// AssetFile is the output path of a copied asset relative to the output directory.
func AssetFile(baseURL string, a docs.Asset) string {
	return strings.TrimPrefix(a.URL, baseURL)
}

// GeneratedFiles lists every file the renderer writes itself for m, mapped to
// what produces it. Assets must not be copied over any of them.
func GeneratedFiles(m *routes.Manifest) map[string]string {
	out := map[string]string{
		routes.ManifestFile: "route manifest",
		SitemapFile:         "sitemap",
		CSSFile:             "site stylesheet",
	}
	for ref, c := range m.Components {
		if c.File == "" {
			continue
		}
		owner := string(c.Kind) + " " + ref
		if c.Source != "" {
			owner = string(c.Kind) + " " + c.Source
		}
		out[c.File] = owner
	}
	return out
}

func (res *Result) collectBroken(source string, targets []string) {
	for _, t := range targets {
		res.BrokenMarkdownLinks = append(res.BrokenMarkdownLinks, BrokenLink{Source: source, Target: t})
	}
}

func (r *Renderer) reportBroken(links []BrokenLink) {
	policy := r.cfg.Links.OnBrokenMarkdownLinks
	for _, l := range links {
		policy.Report("Markdown link does not resolve to a document", logfields.File(l.Source), slog.String("target", l.Target))
	}
}

func (r *Renderer) prepareOutput(out string) error {
	if r.cfg.Output.Clean {
		if out == r.cfg.Root || out == filepath.Dir(out) {
			return fmt.Errorf("refusing to clean output directory %s", out)
		}
		if err := os.RemoveAll(out); err != nil {
			return fmt.Errorf("clean output directory: %w", err)
		}
	}
	if err := os.MkdirAll(out, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

func (r *Renderer) site() siteData {
	return siteData{
		Title:         r.cfg.Title,
		Tagline:       r.cfg.Tagline,
		BaseURL:       r.cfg.BaseURL,
		CSS:           r.cfg.BaseURL + CSSFile,
		NavbarTitle:   r.cfg.Navbar.Title,
		Navbar:        r.cfg.Navbar.Items,
		FooterStyle:   r.cfg.Footer.Style,
		FooterColumns: r.cfg.Footer.Links,
		Copyright:     r.cfg.Footer.Copyright,
	}
}

func (r *Renderer) base(kind routes.Kind, title, description, permalink string) pageData {
	data := pageData{Site: r.site(), Kind: kind, Title: title, Description: description}
	if permalink != "" {
		data.Canonical = r.cfg.SiteURL(permalink)
	}
	return data
}

func (r *Renderer) homeData() pageData {
	data := r.base(routes.KindHome, "", r.cfg.Tagline, r.cfg.BaseURL)
	data.Features = r.cfg.Home.Features
	if r.cfg.Docs.RouteBasePath != "" {
		data.DocsLink = r.cfg.DocsBasePath()
	}
	return data
}

func (r *Renderer) docData(d *docs.Doc, rendered *markdown.Result, sidebars *sidebar.Sidebars) pageData {
	data := r.base(routes.KindDoc, d.Title, d.Description, d.Permalink)
	data.Doc = d
	data.Content = template.HTML(rendered.HTML) // #nosec G203 -- goldmark escapes raw HTML
	data.ShowTitle = !d.HideTitle && rendered.Summary.Title == ""
	if !d.HideTableOfContents {
		data.TOC = rendered.Summary.Headings
	}
	if d.Sidebar != "" && sidebars != nil {
		data.Sidebar = sidebars.Items(d.Sidebar)
	}
	lu := &lastUpdated{}
	if r.cfg.Docs.ShowLastUpdateTime && d.LastUpdatedAt > 0 {
		lu.At = time.Unix(d.LastUpdatedAt, 0).UTC().Format("Jan 2, 2006")
	}
	if r.cfg.Docs.ShowLastUpdateAuthor {
		lu.By = d.LastUpdatedBy
	}
	if lu.At != "" || lu.By != "" {
		data.LastUpdated = lu
	}
	return data
}

// writer writes files below root and records them.
type writer struct {
	root    string
	files   []string
	written map[string]struct{}
}

func (w *writer) target(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || len(clean) > 2 && clean[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("output path %q escapes the output directory", rel)
	}
	rel = filepath.ToSlash(clean)
	if _, dup := w.written[rel]; dup {
		return "", fmt.Errorf("output file %s is written twice", rel)
	}
	full := filepath.Join(w.root, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if w.written == nil {
		w.written = map[string]struct{}{}
	}
	w.written[rel] = struct{}{}
	w.files = append(w.files, rel)
	return full, nil
}

func (w *writer) write(rel string, data []byte) error {
	full, err := w.target(rel)
	if err != nil {
		return err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil { // #nosec G306 -- site output is world readable
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

func (w *writer) copyFile(rel, src string) error {
	full, err := w.target(rel)
	if err != nil {
		return err
	}
	in, err := os.Open(src) // #nosec G304 -- src comes from discovery
	if err != nil {
		return fmt.Errorf("open asset %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()
	outFile, err := os.Create(full) // #nosec G304 -- full is validated to stay under the output root
	if err != nil {
		return fmt.Errorf("create %s: %w", rel, err)
	}
	if _, err := io.Copy(outFile, in); err != nil {
		_ = outFile.Close()
		return fmt.Errorf("copy %s: %w", rel, err)
	}
	return outFile.Close()
}
