// Package markdown renders document bodies with goldmark and extracts the
// title, description and table of contents used for navigation.
package markdown

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Heading is a table of contents entry.
type Heading struct {
	Level int
	Text  string
	ID    string
}

// Summary holds what discovery needs from a body without rendering it.
type Summary struct {
	Title       string // Text of the first level-1 heading
	Description string // Text of the first paragraph
	Headings    []Heading
}

// Result is a rendered document.
type Result struct {
	HTML        []byte
	Summary     Summary
	BrokenLinks []string // Markdown file links the resolver could not map
}

// Renderer converts Markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a Renderer with GFM, typographer and automatic heading ids.
// Raw HTML in documents is escaped.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Typographer),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(&linkRewriter{}, 100)),
		),
	)
	return &Renderer{md: md}
}

// Render converts body to HTML, rewriting Markdown file links through resolve.
// A nil resolve leaves every link untouched.
func (r *Renderer) Render(body []byte, resolve LinkResolver) (*Result, error) {
	ctx := parser.NewContext()
	state := &rewriteState{resolve: resolve}
	ctx.Set(rewriteKey, state)

	root := r.md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, root); err != nil {
		return nil, err
	}
	return &Result{
		HTML:        buf.Bytes(),
		Summary:     summarize(root, body),
		BrokenLinks: state.broken,
	}, nil
}

// Inspect parses body and summarizes it without rendering.
func (r *Renderer) Inspect(body []byte) Summary {
	root := r.md.Parser().Parse(text.NewReader(body))
	return summarize(root, body)
}

func summarize(root gmast.Node, src []byte) Summary {
	var s Summary
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Heading:
			txt := plainText(node, src)
			if node.Level == 1 && s.Title == "" {
				s.Title = txt
			}
			if node.Level >= 2 && node.Level <= 3 {
				id, _ := node.AttributeString("id")
				idStr, _ := id.([]byte)
				s.Headings = append(s.Headings, Heading{Level: node.Level, Text: txt, ID: string(idStr)})
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.Paragraph:
			if s.Description == "" && node.Parent() == root {
				s.Description = plainText(node, src)
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return s
}

// plainText concatenates the text segments below n.
func plainText(n gmast.Node, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		case *gmast.CodeSpan:
			for cc := t.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if seg, ok := cc.(*gmast.Text); ok {
					b.Write(seg.Segment.Value(src))
				}
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(html.UnescapeString(b.String()))
}
