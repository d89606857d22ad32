package linkcheck

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docsite/internal/util/sets"
)

// Link is a URL reference found in a generated page.
type Link struct {
	URL  string
	Tag  string
	Attr string
}

// page is the parsed view of one HTML file.
type page struct {
	links []Link
	ids   sets.Set[string]
}

var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"source": "src",
	"video":  "src",
	"audio":  "src",
	"iframe": "src",
}

// parsePage collects outgoing links and anchor targets (id and a[name]).
func parsePage(r io.Reader) (*page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	p := &page{ids: sets.New[string]()}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := attr(n, "id"); id != "" {
				p.ids.Add(id)
			}
			if n.Data == "a" {
				if name := attr(n, "name"); name != "" {
					p.ids.Add(name)
				}
			}
			if key, ok := linkAttrs[n.Data]; ok {
				if v := strings.TrimSpace(attr(n, key)); v != "" {
					p.links = append(p.links, Link{URL: v, Tag: n.Data, Attr: key})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return p, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
