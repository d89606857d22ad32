package docs

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/config"
	derrors "git.home.luguber.info/inful/docsite/internal/docs/errors"
	"git.home.luguber.info/inful/docsite/internal/frontmatter"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/markdown"
)

// Set is the discovered site content, sorted for deterministic iteration.
type Set struct {
	Docs   []*Doc
	Pages  []*Page
	Assets []Asset

	byID     map[string]*Doc
	bySource map[string]string // site-relative source -> permalink
}

// Discovery walks the docs and pages directories of a site.
type Discovery struct {
	cfg *config.Config
	md  *markdown.Renderer
}

// NewDiscovery creates a discovery for cfg.
func NewDiscovery(cfg *config.Config) *Discovery {
	return &Discovery{cfg: cfg, md: markdown.New()}
}

// Discover reads every document and page and derives their metadata.
func (d *Discovery) Discover() (*Set, error) {
	docsDir := d.cfg.DocsDir()
	if st, err := os.Stat(docsDir); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: %s", derrors.ErrDocsPathNotFound, docsDir)
	}

	set := &Set{byID: map[string]*Doc{}, bySource: map[string]string{}}
	permalinks := map[string]string{}

	err := walkContent(docsDir, func(p, rel string, markdownFile bool) error {
		if !markdownFile {
			set.Assets = append(set.Assets, d.asset(p, d.cfg.Docs.Path, rel, d.cfg.DocsBasePath()))
			return nil
		}
		doc, err := d.readDoc(p, rel)
		if err != nil {
			return err
		}
		if doc.Draft && !d.cfg.Docs.IncludeDrafts {
			slog.Debug("Skipping draft", logfields.DocID(doc.ID), logfields.File(rel))
			return nil
		}
		if _, dup := set.byID[doc.ID]; dup {
			return fmt.Errorf("%w: %q (%s)", derrors.ErrDuplicateID, doc.ID, doc.Source)
		}
		if other, dup := permalinks[doc.Permalink]; dup {
			return fmt.Errorf("%w: %s used by %s and %s", derrors.ErrDuplicatePermalink, doc.Permalink, other, doc.Source)
		}
		permalinks[doc.Permalink] = doc.Source
		set.byID[doc.ID] = doc
		set.bySource[doc.Source] = doc.Permalink
		set.Docs = append(set.Docs, doc)
		slog.Debug("Discovered doc", logfields.DocID(doc.ID), logfields.Route(doc.Permalink))
		return nil
	})
	if err != nil {
		return nil, err
	}

	pagesDir := d.cfg.PagesDir()
	if st, statErr := os.Stat(pagesDir); statErr == nil && st.IsDir() {
		err = walkContent(pagesDir, func(p, rel string, markdownFile bool) error {
			if !markdownFile {
				set.Assets = append(set.Assets, d.asset(p, d.cfg.Pages.Path, rel, d.cfg.BaseURL))
				return nil
			}
			page, err := d.readPage(p, rel)
			if err != nil {
				return err
			}
			if other, dup := permalinks[page.Permalink]; dup {
				return fmt.Errorf("%w: %s used by %s and %s", derrors.ErrDuplicatePermalink, page.Permalink, other, page.Source)
			}
			permalinks[page.Permalink] = page.Source
			set.bySource[page.Source] = page.Permalink
			set.Pages = append(set.Pages, page)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(set.Docs, func(i, j int) bool { return set.Docs[i].ID < set.Docs[j].ID })
	sort.Slice(set.Pages, func(i, j int) bool { return set.Pages[i].Permalink < set.Pages[j].Permalink })
	sort.Slice(set.Assets, func(i, j int) bool { return set.Assets[i].Source < set.Assets[j].Source })

	slog.Info("Content discovered",
		slog.Int("docs", len(set.Docs)),
		slog.Int("pages", len(set.Pages)),
		slog.Int("assets", len(set.Assets)))
	return set, nil
}

// walkContent visits regular files below root, skipping hidden and underscore-prefixed entries.
func walkContent(root string, visit func(p, rel string, markdownFile bool) error) error {
	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := entry.Name()
		if p != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		return visit(p, filepath.ToSlash(rel), isMarkdownFile(name))
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", derrors.ErrDocsDirWalkFailed, root, err)
	}
	return nil
}

func isMarkdownFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".mdx", ".markdown":
		return true
	}
	return false
}

func (d *Discovery) asset(p, contentDir, rel, baseURL string) Asset {
	return Asset{
		Path:   p,
		Source: path.Join(filepath.ToSlash(contentDir), rel),
		URL:    JoinURLPath(false, baseURL, rel),
	}
}

func (d *Discovery) readDoc(p, rel string) (*Doc, error) {
	content, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", derrors.ErrFileReadFailed, p, err)
	}
	parsed, err := frontmatter.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", derrors.ErrFrontMatterInvalid, rel, err)
	}
	fm := parsed.Fields
	summary := d.md.Inspect(parsed.Body)

	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	base := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	strippedDir := stripPrefixes(dir)
	strippedBase := stripNumberPrefix(base)

	doc := &Doc{
		ID:                  docID(fm.ID, strippedDir, strippedBase),
		Source:              path.Join(filepath.ToSlash(d.cfg.Docs.Path), rel),
		SourceDirName:       sourceDirName(dir),
		Slug:                docSlug(fm.Slug, strippedDir, strippedBase),
		Draft:               fm.Draft,
		Unlisted:            fm.Unlisted,
		SidebarLabel:        fm.SidebarLabel,
		SidebarPosition:     fm.SidebarPosition,
		PaginationLabel:     fm.PaginationLabel,
		Tags:                fm.Tags,
		Keywords:            fm.Keywords,
		FrontMatter:         parsed.Raw,
		HideTitle:           fm.HideTitle,
		HideTableOfContents: fm.HideTableOfContents,
		Path:                p,
		RelPath:             rel,
		Body:                parsed.Body,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	doc.Permalink = d.permalink(d.cfg.Docs.RouteBasePath, doc.Slug)

	doc.Title = firstNonEmpty(fm.Title, summary.Title, path.Base(doc.ID))
	doc.Description = firstNonEmpty(fm.Description, summary.Description)

	// custom_edit_url: null disables the link for this doc.
	if _, set := parsed.Raw["custom_edit_url"]; set {
		if fm.CustomEditURL != nil {
			doc.EditURL = *fm.CustomEditURL
		}
	} else if d.cfg.Docs.EditURL != "" {
		doc.EditURL = strings.TrimRight(d.cfg.Docs.EditURL, "/") + "/" + rel
	}

	doc.Fingerprint, err = frontmatter.Fingerprint(parsed.Raw, parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s: %w", rel, err)
	}
	return doc, nil
}

func (d *Discovery) readPage(p, rel string) (*Page, error) {
	content, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", derrors.ErrFileReadFailed, p, err)
	}
	parsed, err := frontmatter.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", derrors.ErrFrontMatterInvalid, rel, err)
	}
	summary := d.md.Inspect(parsed.Body)

	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	base := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	slug := parsed.Fields.Slug
	if slug == "" {
		slug = "/" + path.Join(dir, base)
		if strings.EqualFold(base, "index") {
			slug = "/" + dir
		}
	}

	page := &Page{
		Title:       firstNonEmpty(parsed.Fields.Title, summary.Title, base),
		Description: firstNonEmpty(parsed.Fields.Description, summary.Description),
		Source:      path.Join(filepath.ToSlash(d.cfg.Pages.Path), rel),
		Permalink:   d.permalink(slug),
		FrontMatter: parsed.Raw,
		Path:        p,
		RelPath:     rel,
		Body:        parsed.Body,
	}
	page.Fingerprint, err = frontmatter.Fingerprint(parsed.Raw, parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s: %w", rel, err)
	}
	return page, nil
}

// permalink joins segments under the base URL. A path equal to the site root is the base URL itself.
func (d *Discovery) permalink(segments ...string) string {
	p := JoinURLPath(d.cfg.TrailingSlash, append([]string{d.cfg.BaseURL}, segments...)...)
	if p == CleanURLPath(d.cfg.BaseURL, d.cfg.TrailingSlash) {
		return d.cfg.BaseURL
	}
	return p
}

func docID(fmID, dir, base string) string {
	if fmID != "" {
		if dir == "" || strings.Contains(fmID, "/") {
			return fmID
		}
		return dir + "/" + fmID
	}
	if dir == "" {
		return base
	}
	return dir + "/" + base
}

func docSlug(fmSlug, dir, base string) string {
	switch {
	case strings.HasPrefix(fmSlug, "/"):
		return fmSlug
	case fmSlug != "":
		return "/" + path.Join(dir, fmSlug)
	case isIndexName(base, dir):
		return "/" + dir
	default:
		return "/" + path.Join(dir, base)
	}
}

func sourceDirName(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
