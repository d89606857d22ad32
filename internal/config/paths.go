package config

import (
	"net"
	"path/filepath"
	"strconv"
	"strings"
)

// ResolvePath makes p absolute relative to the config root.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

func (c *Config) DocsDir() string   { return c.ResolvePath(c.Docs.Path) }
func (c *Config) PagesDir() string  { return c.ResolvePath(c.Pages.Path) }
func (c *Config) OutputDir() string { return c.ResolvePath(c.Output.Directory) }
func (c *Config) HistoryPath() string {
	if c.History.Path == ":memory:" {
		return c.History.Path
	}
	return c.ResolvePath(c.History.Path)
}

// DocsBasePath is the URL path of the docs root, e.g. /cronai/docs. In docs-only mode it is the base URL.
func (c *Config) DocsBasePath() string {
	if c.Docs.RouteBasePath == "" {
		return c.BaseURL
	}
	return c.BaseURL + c.Docs.RouteBasePath
}

// SiteURL joins the production origin with a site path.
func (c *Config) SiteURL(path string) string {
	return strings.TrimRight(c.URL, "/") + path
}

// ListenAddr is the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
