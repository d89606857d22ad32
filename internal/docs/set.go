package docs

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/markdown"
)

// ByID returns the doc with the given id.
func (s *Set) ByID(id string) (*Doc, bool) {
	d, ok := s.byID[id]
	return d, ok
}

// PermalinkForSource returns the URL of a doc or page by its site-relative source path.
func (s *Set) PermalinkForSource(source string) (string, bool) {
	p, ok := s.bySource[source]
	return p, ok
}

// Resolver returns a link resolver for Markdown file references made from source.
func (s *Set) Resolver(source string) markdown.LinkResolver {
	dir := path.Dir(source)
	return func(target string) (string, bool) {
		joined := path.Clean(path.Join(dir, target))
		if p, ok := s.bySource[joined]; ok {
			return p, true
		}
		// Links may omit the .mdx/.md distinction.
		ext := path.Ext(joined)
		stem := strings.TrimSuffix(joined, ext)
		for _, alt := range []string{".md", ".mdx", ".markdown"} {
			if p, ok := s.bySource[stem+alt]; ok {
				return p, true
			}
		}
		return "", false
	}
}

// Listed returns the docs that appear in sidebars and the sitemap.
func (s *Set) Listed() []*Doc {
	out := make([]*Doc, 0, len(s.Docs))
	for _, d := range s.Docs {
		if !d.Unlisted {
			out = append(out, d)
		}
	}
	return out
}
