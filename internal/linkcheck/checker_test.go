package linkcheck

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/routes"
)

func writeOutput(t *testing.T, root string, files map[string]string) []string {
	t.Helper()
	names := make([]string, 0, len(files))
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		names = append(names, rel)
	}
	return names
}

func testTable(t *testing.T) *routes.Table {
	t.Helper()
	m := &routes.Manifest{
		BaseURL: "/cronai/",
		Routes: []*routes.Entry{
			{Path: "/cronai/", Component: "hom", Exact: true},
			{Path: "/cronai/docs", Component: "lay", Routes: []*routes.Entry{
				{Path: "/cronai/docs", Component: "int", Exact: true},
				{Path: "/cronai/docs/api", Component: "api", Exact: true},
			}},
			{Path: routes.CatchAll, Component: "nf0"},
		},
		Components: map[string]routes.Component{
			"hom": {Kind: routes.KindHome, File: "index.html", Permalink: "/cronai/"},
			"lay": {Kind: routes.KindDocsRoot, Permalink: "/cronai/docs"},
			"int": {Kind: routes.KindDoc, File: "docs.html", Permalink: "/cronai/docs"},
			"api": {Kind: routes.KindDoc, File: "docs/api.html", Permalink: "/cronai/docs/api"},
			"nf0": {Kind: routes.KindNotFound, File: routes.NotFoundFile},
		},
	}
	table, err := routes.NewTable(m)
	require.NoError(t, err)
	return table
}

func testConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	cfg := &config.Config{Title: "CronAI", URL: "https://rshade.github.io", BaseURL: "/cronai/"}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, config.FromStruct(cfg, t.TempDir()))
	return cfg
}

const apiPage = `<html><body>
<h2 id="endpoints">Endpoints</h2>
<a name="legacy"></a>
<a href="/cronai/docs">intro</a>
<a href="../docs#welcome">intro anchor</a>
<a href="#endpoints">self</a>
<a href="#legacy">legacy</a>
<a href="https://rshade.github.io/cronai/docs/api?x=1">absolute same host</a>
<a href="https://github.com/rshade/cronai">external</a>
<a href="mailto:someone@example.com">mail</a>
<img src="img/diagram.png">
<link rel="stylesheet" href="/cronai/assets/css/site.css">
</body></html>`

func TestCheckCleanSite(t *testing.T) {
	cfg := testConfig(t, nil)
	files := writeOutput(t, cfg.OutputDir(), map[string]string{
		"index.html":           `<a href="/cronai/docs/api#endpoints">api</a>`,
		"docs.html":            `<h1 id="welcome">Welcome</h1><a href="docs/api">api</a><a href="/cronai/">home</a>`,
		"docs/api.html":        apiPage,
		"docs/img/diagram.png": "png",
		"assets/css/site.css":  "body{}",
		"404.html":             `<a href="/cronai/">home</a>`,
	})

	report, err := New(cfg, testTable(t)).Check(context.Background(), files)
	require.NoError(t, err)
	require.Equal(t, 4, report.Pages)
	require.Empty(t, report.Findings)
	require.Equal(t, 11, report.Links)
}

func TestCheckFindsBrokenLinksAndAnchors(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Links.OnBrokenLinks = config.PolicyWarn
		c.Links.OnBrokenAnchors = config.PolicyWarn
	})
	files := writeOutput(t, cfg.OutputDir(), map[string]string{
		"index.html": `<a href="/cronai/docs/missing">gone</a>
<a href="/cronai/docs/api#nope">bad anchor</a>
<a href="#top">bad self anchor</a>
<a href="/elsewhere/page">outside base</a>
<img src="/cronai/img/none.png">`,
		"docs/api.html": `<h2 id="endpoints">Endpoints</h2>`,
	})

	report, err := New(cfg, testTable(t)).Check(context.Background(), files)
	require.NoError(t, err)
	require.Equal(t, 3, report.Count(KindLink))
	require.Equal(t, 2, report.Count(KindAnchor))
	require.Contains(t, report.Findings, Finding{Kind: KindLink, Page: "index.html", URL: "/cronai/docs/missing"})
	require.Contains(t, report.Findings, Finding{Kind: KindAnchor, Page: "index.html", URL: "/cronai/docs/api#nope"})
}

func TestCheckThrowPolicyFails(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Links.OnBrokenLinks = config.PolicyThrow
		c.Links.OnBrokenAnchors = config.PolicyIgnore
	})
	files := writeOutput(t, cfg.OutputDir(), map[string]string{
		"index.html": `<a href="/cronai/docs/api#nope">anchor only</a>`,
	})
	checker := New(cfg, testTable(t))

	_, err := checker.Check(context.Background(), files)
	require.NoError(t, err, "anchors are ignored")

	files = writeOutput(t, cfg.OutputDir(), map[string]string{
		"index.html": `<a href="/cronai/nowhere">gone</a>`,
	})
	report, err := checker.Check(context.Background(), files)
	require.ErrorIs(t, err, ErrBrokenLinks)
	require.NotNil(t, report)
	require.Equal(t, 1, report.Count(KindLink))
}

func TestCheckSkipsNonHTML(t *testing.T) {
	cfg := testConfig(t, nil)
	files := writeOutput(t, cfg.OutputDir(), map[string]string{
		"routes.json": `{"routes": "<a href=\"/broken\">"}`,
	})
	report, err := New(cfg, testTable(t)).Check(context.Background(), files)
	require.NoError(t, err)
	require.Zero(t, report.Pages)
}

func TestInternal(t *testing.T) {
	c := New(testConfig(t, nil), testTable(t))
	for raw, want := range map[string]bool{
		"/cronai/docs":                      true,
		"relative/page":                     true,
		"#frag":                             true,
		"https://rshade.github.io/cronai/x": true,
		"https://rshade.github.io/other":    false,
		"https://example.com/cronai/x":      false,
		"//cdn.example.com/lib.js":          false,
		"mailto:a@b.c":                      false,
		"javascript:void(0)":                false,
		"data:image/png;base64," + strings.Repeat("A", 4): false,
	} {
		require.Equal(t, want, c.internal(raw), raw)
	}
}
