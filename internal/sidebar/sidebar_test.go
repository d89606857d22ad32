package sidebar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/docs"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func discover(t *testing.T, root string) (*config.Config, *docs.Set) {
	t.Helper()
	cfg := &config.Config{Title: "CronAI", URL: "https://rshade.github.io", BaseURL: "/cronai/"}
	require.NoError(t, config.FromStruct(cfg, root))
	set, err := docs.NewDiscovery(cfg).Discover()
	require.NoError(t, err)
	return cfg, set
}

func cronaiDocs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for id, title := range map[string]string{
		"intro":                        "Introduction",
		"architecture":                 "Architecture",
		"limitations-and-improvements": "Limitations and Improvements",
		"systemd":                      "Systemd Service",
		"prompt-management":            "Prompt Management",
		"model-parameters":             "Model Parameters",
		"logging":                      "Logging",
		"troubleshooting":              "Troubleshooting",
		"api":                          "API",
	} {
		writeFile(t, root, "docs/"+id+".md", "# "+title+"\n")
	}
	writeFile(t, root, "docs/hidden.md", "---\nunlisted: true\n---\n# Hidden\n")
	return root
}

func cronaiSidebars() map[string][]config.SidebarItem {
	open := false
	return map[string][]config.SidebarItem{
		"tutorialSidebar": {
			{Type: config.SidebarCategory, Label: "Introduction", Collapsed: &open, Items: []config.SidebarItem{
				{Type: config.SidebarDoc, ID: "intro"},
				{Type: config.SidebarDoc, ID: "architecture"},
				{Type: config.SidebarDoc, ID: "limitations-and-improvements"},
			}},
			{Type: config.SidebarCategory, Label: "Guides", Items: []config.SidebarItem{
				{Type: config.SidebarDoc, ID: "systemd"},
				{Type: config.SidebarDoc, ID: "prompt-management"},
				{Type: config.SidebarDoc, ID: "model-parameters"},
				{Type: config.SidebarDoc, ID: "logging"},
				{Type: config.SidebarDoc, ID: "troubleshooting"},
			}},
			{Type: config.SidebarCategory, Label: "Reference", Items: []config.SidebarItem{
				{Type: config.SidebarDoc, ID: "api"},
				{Type: config.SidebarDoc, ID: "hidden"},
			}},
			{Type: config.SidebarLink, Label: "GitHub", Href: "https://github.com/rshade/cronai"},
		},
	}
}

func TestResolveConfiguredSidebar(t *testing.T) {
	cfg, set := discover(t, cronaiDocs(t))

	sb, err := Resolve(cronaiSidebars(), set, cfg.DocsDir())
	require.NoError(t, err)
	require.Equal(t, []string{"tutorialSidebar"}, sb.Names())

	items := sb.Items("tutorialSidebar")
	require.Len(t, items, 4)
	require.Equal(t, "Introduction", items[0].Label)
	require.False(t, items[0].Collapsed)
	require.True(t, items[1].Collapsed)
	require.Equal(t, "/cronai/docs/intro", items[0].Items[0].Href)
	require.Len(t, items[2].Items, 1, "unlisted docs stay out of the sidebar")
	require.Equal(t, ItemLink, items[3].Type)
	require.True(t, items[1].Contains("logging"))
	require.False(t, items[1].Contains("api"))

	require.Equal(t, "tutorialSidebar", sb.SidebarOf("api"))
	require.Empty(t, sb.SidebarOf("hidden"))
}

func TestApplyPagination(t *testing.T) {
	cfg, set := discover(t, cronaiDocs(t))
	sb, err := Resolve(cronaiSidebars(), set, cfg.DocsDir())
	require.NoError(t, err)
	sb.Apply(set)

	intro, _ := set.ByID("intro")
	require.Equal(t, "tutorialSidebar", intro.Sidebar)
	require.Nil(t, intro.Previous)
	require.Equal(t, &docs.NavLink{Title: "Architecture", Permalink: "/cronai/docs/architecture"}, intro.Next)

	systemd, _ := set.ByID("systemd")
	require.Equal(t, "Limitations and Improvements", systemd.Previous.Title)
	require.Equal(t, "Prompt Management", systemd.Next.Title)

	api, _ := set.ByID("api")
	require.Equal(t, "Troubleshooting", api.Previous.Title)
	require.Nil(t, api.Next)

	hidden, _ := set.ByID("hidden")
	require.Empty(t, hidden.Sidebar)
	require.Nil(t, hidden.Next)
}

func TestResolveUnknownDoc(t *testing.T) {
	cfg, set := discover(t, cronaiDocs(t))
	_, err := Resolve(map[string][]config.SidebarItem{
		"s": {{Type: config.SidebarDoc, ID: "does-not-exist"}},
	}, set, cfg.DocsDir())
	require.ErrorIs(t, err, ErrUnknownDoc)
}

func TestAutogeneratedDefaultSidebar(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/intro.md", "---\nsidebar_position: 1\n---\n# Intro\n")
	writeFile(t, root, "docs/zeta.md", "# Zeta\n")
	writeFile(t, root, "docs/alpha.md", "# Alpha\n")
	writeFile(t, root, "docs/02-model_parameters/index.md", "---\nsidebar_position: 2\n---\n# Params\n")
	writeFile(t, root, "docs/02-model_parameters/temperature.md", "# Temperature\n")
	writeFile(t, root, "docs/guides/b.md", "# B\n")
	writeFile(t, root, "docs/guides/a.md", "---\nsidebar_label: First guide\n---\n# A\n")
	writeFile(t, root, "docs/guides/_category_.yml", "label: How-to\ncollapsed: false\n")

	cfg, set := discover(t, root)
	sb, err := Resolve(nil, set, cfg.DocsDir())
	require.NoError(t, err)
	require.Equal(t, []string{DefaultName}, sb.Names())

	items := sb.Items(DefaultName)
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	require.Equal(t, []string{"Intro", "Model Parameters", "Alpha", "How-to", "Zeta"}, labels)

	params := items[1]
	require.Equal(t, ItemCategory, params.Type)
	require.Equal(t, "model_parameters/index", params.DocID)
	require.Equal(t, "/cronai/docs/model_parameters", params.Href)
	require.Len(t, params.Items, 1)
	require.True(t, params.Collapsed)

	guides := items[3]
	require.False(t, guides.Collapsed)
	require.Equal(t, "First guide", guides.Items[0].Label)

	sb.Apply(set)
	intro, _ := set.ByID("intro")
	require.Equal(t, "Params", intro.Next.Title)
	params2, _ := set.ByID("model_parameters/index")
	require.Equal(t, "Temperature", params2.Next.Title)
}

func TestAutogeneratedSubdirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/intro.md", "# Intro\n")
	writeFile(t, root, "docs/guides/a.md", "# A\n")

	cfg, set := discover(t, root)
	sb, err := Resolve(map[string][]config.SidebarItem{
		"guides": {{Type: config.SidebarAutogenerated, Dir: "guides"}},
	}, set, cfg.DocsDir())
	require.NoError(t, err)
	require.Len(t, sb.Items("guides"), 1)
	require.Equal(t, "guides/a", sb.Items("guides")[0].DocID)

	_, err = Resolve(map[string][]config.SidebarItem{
		"missing": {{Type: config.SidebarAutogenerated, Dir: "nope"}},
	}, set, cfg.DocsDir())
	require.Error(t, err)
}
