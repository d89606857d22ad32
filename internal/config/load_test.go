package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "title: CronAI\nurl: https://rshade.github.io\nbase_url: /cronai\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/cronai/", cfg.BaseURL)
	require.Equal(t, "docs", cfg.Docs.Path)
	require.Equal(t, "docs", cfg.Docs.RouteBasePath)
	require.Equal(t, "pages", cfg.Pages.Path)
	require.Equal(t, "build", cfg.Output.Directory)
	require.True(t, cfg.Output.Clean)
	require.Equal(t, 3000, cfg.Server.Port)
	require.Equal(t, PolicyThrow, cfg.Links.OnBrokenLinks)
	require.Equal(t, PolicyWarn, cfg.Links.OnBrokenAnchors)
	require.Equal(t, LogLevelInfo, cfg.Logging.Level)
	require.Equal(t, "/cronai/docs", cfg.DocsBasePath())
	require.Equal(t, filepath.Dir(path), cfg.Root)
	require.Equal(t, filepath.Join(cfg.Root, "build"), cfg.OutputDir())
}

func TestLoadKeepsExplicitZeroValues(t *testing.T) {
	path := writeConfig(t, `title: Docs
url: https://example.com
docs:
  route_base_path: ""
output:
  clean: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, cfg.Docs.RouteBasePath)
	require.False(t, cfg.Output.Clean)
	require.Equal(t, "/", cfg.DocsBasePath())
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("DOCSITE_TEST_URL", "https://docs.example.com")
	path := writeConfig(t, "title: Docs\nurl: ${DOCSITE_TEST_URL}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://docs.example.com", cfg.URL)
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := writeConfig(t, "title: ${DOCSITE_TEST_TITLE}\nurl: https://example.com\n")
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte("DOCSITE_TEST_TITLE=FromDotEnv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DOCSITE_TEST_TITLE") })

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "FromDotEnv", cfg.Title)
}

func TestLoadLogLevelOverride(t *testing.T) {
	t.Setenv("DOCSITE_LOG_LEVEL", "WARNING")
	path := writeConfig(t, "title: Docs\nurl: https://example.com\nlogging:\n  level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, LogLevelWarn, cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "title: Docs\nurl: https://example.com\nthemeConfig: {}\n")

	_, err := Load(path)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	path := writeConfig(t, "title: Docs\nurl: https://example.com\nlinks:\n  on_broken_links: explode\n")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "explode")
}

func TestLoadSidebarsFile(t *testing.T) {
	path := writeConfig(t, "title: Docs\nurl: https://example.com\nsidebars_file: sidebars.yaml\n")
	sidebars := `tutorialSidebar:
  - intro
  - type: category
    label: Guides
    items: [systemd, logging]
  - label: GitHub
    href: https://github.com/rshade/cronai
`
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "sidebars.yaml"), []byte(sidebars), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	items := cfg.Sidebars["tutorialSidebar"]
	require.Len(t, items, 3)
	require.Equal(t, SidebarItem{Type: SidebarDoc, ID: "intro"}, items[0])
	require.Equal(t, SidebarCategory, items[1].Type)
	require.Equal(t, "systemd", items[1].Items[0].ID)
	require.True(t, items[1].IsCollapsed())
	require.Equal(t, SidebarLink, items[2].Type)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.NotNil(t, cfg)
}

func TestFromStruct(t *testing.T) {
	cfg := &Config{Title: "Docs", URL: "https://example.com", BaseURL: "cronai"}
	require.NoError(t, FromStruct(cfg, "/srv/site"))
	require.Equal(t, "/cronai/", cfg.BaseURL)
	require.Equal(t, "/srv/site/docs", cfg.DocsDir())
	require.Equal(t, "127.0.0.1:3000", cfg.ListenAddr())
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site", DefaultFile)
	require.NoError(t, Init(path, false))
	require.FileExists(t, filepath.Join(filepath.Dir(path), "docs", "intro.md"))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "CronAI", cfg.Title)
	require.Equal(t, "/cronai/", cfg.BaseURL)
	require.Len(t, cfg.Sidebars["tutorialSidebar"], 1)
	require.Equal(t, SidebarAutogenerated, cfg.Sidebars["tutorialSidebar"][0].Type)
	require.Len(t, cfg.Home.Features, 3)

	err = Init(path, false)
	require.Error(t, err)
	require.NoError(t, Init(path, true))
}
