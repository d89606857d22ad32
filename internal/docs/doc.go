// Package docs discovers Markdown documents and pages and derives their
// ids, slugs, permalinks and navigation metadata.
package docs

// NavLink points at a neighbouring document in sidebar order.
type NavLink struct {
	Title     string `json:"title"`
	Permalink string `json:"permalink"`
}

// Doc is a discovered documentation file with its derived metadata.
type Doc struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Source          string         `json:"source"`
	SourceDirName   string         `json:"sourceDirName"`
	Slug            string         `json:"slug"`
	Permalink       string         `json:"permalink"`
	EditURL         string         `json:"editUrl,omitempty"`
	Draft           bool           `json:"draft"`
	Unlisted        bool           `json:"unlisted"`
	SidebarLabel    string         `json:"sidebarLabel,omitempty"`
	SidebarPosition *float64       `json:"sidebarPosition,omitempty"`
	PaginationLabel string         `json:"paginationLabel,omitempty"`
	Tags            []string       `json:"tags"`
	Keywords        []string       `json:"keywords,omitempty"`
	FrontMatter     map[string]any `json:"frontMatter"`
	Sidebar         string         `json:"sidebar,omitempty"`
	Previous        *NavLink       `json:"previous,omitempty"`
	Next            *NavLink       `json:"next,omitempty"`
	LastUpdatedAt   int64          `json:"lastUpdatedAt,omitempty"`
	LastUpdatedBy   string         `json:"lastUpdatedBy,omitempty"`
	Fingerprint     string         `json:"fingerprint"`

	HideTitle           bool `json:"-"`
	HideTableOfContents bool `json:"-"`

	Path    string `json:"-"` // Absolute file path
	RelPath string `json:"-"` // Slash path relative to the docs directory
	Body    []byte `json:"-"`
}

// Label is the text used for the doc in sidebars.
func (d *Doc) Label() string {
	if d.SidebarLabel != "" {
		return d.SidebarLabel
	}
	return d.Title
}

// NavTitle is the text used in previous/next pagination.
func (d *Doc) NavTitle() string {
	if d.PaginationLabel != "" {
		return d.PaginationLabel
	}
	return d.Label()
}

// Page is a standalone Markdown page outside the docs tree.
type Page struct {
	Title       string
	Description string
	Source      string
	Permalink   string
	Fingerprint string
	FrontMatter map[string]any

	Path    string
	RelPath string
	Body    []byte
}

// Asset is a non-Markdown file in the docs or pages tree, copied verbatim.
type Asset struct {
	Path   string // Absolute file path
	Source string // Slash path relative to the site root
	URL    string // Site path the file is served at
}
