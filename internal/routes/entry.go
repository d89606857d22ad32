// Package routes holds the static route table of a built site: the tree of
// route entries, the component registry and the lookup used when serving.
package routes

// CatchAll is the path of the fallback entry that renders the not-found view.
const CatchAll = "*"

// Kind classifies what a component renders.
type Kind string

const (
	KindHome     Kind = "home"
	KindPage     Kind = "page"
	KindDoc      Kind = "doc"
	KindDocsRoot Kind = "docs-root"
	KindNotFound Kind = "not-found"
)

// Entry is one node of the route tree. Entries are created at build time and never mutated while serving.
type Entry struct {
	Path      string   `json:"path"`
	Component string   `json:"component"`
	Exact     bool     `json:"exact,omitempty"`
	Sidebar   string   `json:"sidebar,omitempty"`
	Routes    []*Entry `json:"routes,omitempty"`
}

// IsLeaf reports whether the entry renders a page rather than wrapping child routes.
func (e *Entry) IsLeaf() bool { return len(e.Routes) == 0 }

// Component is a registered render target.
type Component struct {
	Kind      Kind   `json:"kind"`
	Source    string `json:"source,omitempty"`    // Site-relative source file, empty for generated views
	File      string `json:"file,omitempty"`      // Output file relative to the output directory, empty for layouts
	Permalink string `json:"permalink,omitempty"` // URL the component is rendered for
	DocID     string `json:"docId,omitempty"`
}
