package markdown

import (
	"net/url"
	"path"
	"strings"

	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// LinkResolver maps a relative Markdown file reference (without fragment) to a site URL.
type LinkResolver func(target string) (string, bool)

var rewriteKey = parser.NewContextKey()

type rewriteState struct {
	resolve LinkResolver
	broken  []string
}

// linkRewriter replaces links to .md/.mdx files with the permalink of the target document.
type linkRewriter struct{}

func (*linkRewriter) Transform(doc *gmast.Document, _ text.Reader, pc parser.Context) {
	state, _ := pc.Get(rewriteKey).(*rewriteState)
	if state == nil || state.resolve == nil {
		return
	}
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		link, ok := n.(*gmast.Link)
		if !ok {
			return gmast.WalkContinue, nil
		}
		dest := string(link.Destination)
		target, fragment, ok := SplitDocLink(dest)
		if !ok {
			return gmast.WalkContinue, nil
		}
		resolved, found := state.resolve(target)
		if !found {
			state.broken = append(state.broken, dest)
			return gmast.WalkContinue, nil
		}
		resolved = (&url.URL{Path: resolved}).EscapedPath()
		if fragment != "" {
			resolved += "#" + fragment
		}
		link.Destination = []byte(resolved)
		return gmast.WalkContinue, nil
	})
}

// SplitDocLink reports whether dest is a relative link to a Markdown file and
// splits off its fragment. Absolute URLs, site-absolute paths and bare anchors are not doc links.
func SplitDocLink(dest string) (target, fragment string, ok bool) {
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") {
		return "", "", false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", "", false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".md", ".mdx":
		return u.Path, u.Fragment, true
	}
	return "", "", false
}
