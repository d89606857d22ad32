package config

// Config is the site configuration loaded from docsite.yaml.
type Config struct {
	Title         string `yaml:"title"`
	Tagline       string `yaml:"tagline,omitempty"`
	URL           string `yaml:"url"`      // Production origin, e.g. https://rshade.github.io
	BaseURL       string `yaml:"base_url"` // Path prefix the site is served under, e.g. /cronai/
	TrailingSlash bool   `yaml:"trailing_slash"`

	Docs         DocsConfig               `yaml:"docs"`
	Pages        PagesConfig              `yaml:"pages"`
	Home         HomeConfig               `yaml:"home,omitempty"`
	Sidebars     map[string][]SidebarItem `yaml:"sidebars,omitempty"`
	SidebarsFile string                   `yaml:"sidebars_file,omitempty"`
	Navbar       NavbarConfig             `yaml:"navbar,omitempty"`
	Footer       FooterConfig             `yaml:"footer,omitempty"`
	Links        LinksConfig              `yaml:"links"`

	Output  OutputConfig  `yaml:"output"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	History HistoryConfig `yaml:"history"`
	Events  EventsConfig  `yaml:"events,omitempty"`

	// Root is the directory relative paths are resolved against (the config file's directory).
	Root string `yaml:"-"`
}

// DocsConfig configures the documentation content plugin.
type DocsConfig struct {
	Path                 string `yaml:"path"`            // Directory holding the Markdown docs
	RouteBasePath        string `yaml:"route_base_path"` // URL segment under base_url, "" serves docs at the root
	EditURL              string `yaml:"edit_url,omitempty"`
	ShowLastUpdateTime   bool   `yaml:"show_last_update_time,omitempty"`
	ShowLastUpdateAuthor bool   `yaml:"show_last_update_author,omitempty"`
	IncludeDrafts        bool   `yaml:"include_drafts,omitempty"`

	routeBasePathSet bool
}

// PagesConfig configures standalone (non-doc) Markdown pages.
type PagesConfig struct {
	Path string `yaml:"path"`
}

// HomeConfig configures the generated home page used when pages/ has no index.
type HomeConfig struct {
	Features []Feature `yaml:"features,omitempty"`
}

// Feature is a home page feature card.
type Feature struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// NavbarConfig describes the top navigation bar.
type NavbarConfig struct {
	Title string    `yaml:"title,omitempty"`
	Items []NavItem `yaml:"items,omitempty"`
}

// NavItem is a navbar or footer link. To is a site-relative path, Href an absolute URL.
type NavItem struct {
	Label    string `yaml:"label"`
	To       string `yaml:"to,omitempty"`
	Href     string `yaml:"href,omitempty"`
	Position string `yaml:"position,omitempty"`
}

// FooterConfig describes the page footer.
type FooterConfig struct {
	Style     string         `yaml:"style,omitempty"`
	Links     []FooterColumn `yaml:"links,omitempty"`
	Copyright string         `yaml:"copyright,omitempty"`
}

// FooterColumn is a titled group of footer links.
type FooterColumn struct {
	Title string    `yaml:"title"`
	Items []NavItem `yaml:"items"`
}

// LinksConfig sets how integrity problems are reported.
type LinksConfig struct {
	OnBrokenLinks         BrokenLinkPolicy `yaml:"on_broken_links"`
	OnBrokenMarkdownLinks BrokenLinkPolicy `yaml:"on_broken_markdown_links"`
	OnBrokenAnchors       BrokenLinkPolicy `yaml:"on_broken_anchors"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"`

	cleanSet bool
}

// ServerConfig configures the static server.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	LiveReload bool   `yaml:"live_reload"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HistoryConfig configures the SQLite build history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// EventsConfig configures build event publication. An empty NATSURL disables it.
type EventsConfig struct {
	NATSURL   string `yaml:"nats_url,omitempty"`
	Subject   string `yaml:"subject,omitempty"`
	JetStream bool   `yaml:"jetstream,omitempty"` // Publish with JetStream acknowledgements
}
