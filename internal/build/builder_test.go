package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/events"
	derrors "git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/history"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/routes"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func testSite(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "docs/intro.md", "---\ntitle: Introduction\nslug: /\n---\nCronAI runs prompts on a schedule. See [architecture](architecture.md).\n")
	writeFile(t, root, "docs/architecture.md", "# Architecture\n\n## Overview\n\nComponents. Back to the [intro](intro.md).\n")
	writeFile(t, root, "docs/guides/prompts.md", "---\nsidebar_position: 1\n---\n# Prompts\n\nWrite prompts.\n")

	cfg := &config.Config{Title: "CronAI", URL: "https://rshade.github.io", BaseURL: "/cronai/"}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, config.FromStruct(cfg, root))
	return cfg
}

func openHistory(t *testing.T) *history.SQLiteStore {
	t.Helper()
	store, err := history.Open(history.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.BuildEvent
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, ev events.BuildEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *capturePublisher) Close() error { return nil }

type countingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	outcomes map[metrics.BuildOutcomeLabel]int
	stages   map[string]metrics.ResultLabel
	docs     int
	broken   map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		outcomes: map[metrics.BuildOutcomeLabel]int{},
		stages:   map[string]metrics.ResultLabel{},
		broken:   map[string]int{},
	}
}

func (r *countingRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[o]++
}

func (r *countingRecorder) IncStageResult(stage string, res metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage] = res
}

func (r *countingRecorder) SetSiteSize(docs, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = docs
}

func (r *countingRecorder) AddBrokenLinks(kind string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broken[kind] += n
}

func TestRunBuildsSite(t *testing.T) {
	cfg := testSite(t, nil)
	rec := newCountingRecorder()
	rep, err := New(cfg).WithRecorder(rec).Run(context.Background(), Options{})
	require.NoError(t, err)

	require.Equal(t, StatusSuccess, rep.Outcome)
	require.NotEmpty(t, rep.BuildID)
	require.Equal(t, 3, rep.Docs)
	require.Zero(t, rep.BrokenLinks)
	require.Len(t, rep.InputHash, 64)
	require.Len(t, rep.OutputHash, 64)
	require.NotNil(t, rep.Table)

	var names []string
	for _, s := range rep.Stages {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{StageDiscover, StageSidebars, StageGitInfo, StageInputHash, StageManifest, StageRender, StageLinkCheck, StageHash}, names)

	// Every documented page resolves to exactly one rendered component.
	for _, e := range rep.Table.Entries() {
		if e.Path == routes.CatchAll {
			continue
		}
		m := rep.Table.Lookup(e.Path)
		require.False(t, m.NotFound, e.Path)
		require.Equal(t, e.Component, m.Ref)
		require.FileExists(t, filepath.Join(cfg.OutputDir(), filepath.FromSlash(m.Component.File)))
	}
	require.True(t, rep.Table.Lookup("/cronai/docs/nope").NotFound)
	require.FileExists(t, filepath.Join(cfg.OutputDir(), routes.ManifestFile))

	require.Equal(t, 1, rec.outcomes[metrics.BuildOutcomeSuccess])
	require.Equal(t, metrics.ResultSuccess, rec.stages[StageLinkCheck])
	require.Equal(t, 3, rec.docs)
}

func TestRebuildIsDeterministic(t *testing.T) {
	cfg := testSite(t, nil)
	store := openHistory(t)
	b := New(cfg).WithHistory(store)

	first, err := b.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Nil(t, first.Unchanged)

	second, err := b.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.NotEqual(t, first.BuildID, second.BuildID)
	require.Equal(t, first.InputHash, second.InputHash)
	require.Equal(t, first.OutputHash, second.OutputHash)
	require.NotNil(t, second.Unchanged)
	require.True(t, *second.Unchanged)

	records, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestInputHashTracksContentAndConfig(t *testing.T) {
	cfg := testSite(t, nil)
	first, err := New(cfg).Run(context.Background(), Options{})
	require.NoError(t, err)

	writeFile(t, cfg.Root, "docs/architecture.md", "# Architecture\n\nChanged.\n")
	second, err := New(cfg).Run(context.Background(), Options{})
	require.NoError(t, err)
	require.NotEqual(t, first.InputHash, second.InputHash)
	require.NotEqual(t, first.OutputHash, second.OutputHash)

	cfg.Tagline = "Scheduled prompts"
	third, err := New(cfg).Run(context.Background(), Options{})
	require.NoError(t, err)
	require.NotEqual(t, second.InputHash, third.InputHash)

	// Serving settings do not shape the output.
	cfg.Server.Port = 8081
	cfg.Server.LiveReload = true
	fourth, err := New(cfg).Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, third.InputHash, fourth.InputHash)
	require.Equal(t, third.OutputHash, fourth.OutputHash)
}

func TestBrokenLinksFailUnderThrow(t *testing.T) {
	cfg := testSite(t, func(c *config.Config) {
		c.Links.OnBrokenLinks = config.PolicyThrow
	})
	writeFile(t, cfg.Root, "docs/broken.md", "# Broken\n\nSee [missing](/cronai/docs/missing).\n")

	pub := &capturePublisher{}
	rec := newCountingRecorder()
	rep, err := New(cfg).WithPublisher(pub).WithRecorder(rec).Run(context.Background(), Options{})
	require.Error(t, err)
	require.True(t, derrors.HasCategory(err, derrors.CategoryLinks))
	require.Equal(t, StatusFailed, rep.Outcome)
	require.Equal(t, 1, rep.BrokenLinks)
	require.Empty(t, rep.OutputHash)
	require.NotEmpty(t, rep.Error)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	require.Equal(t, "failed", ev.Outcome)
	require.Len(t, ev.BrokenLinks, 1)
	require.Equal(t, "link", ev.BrokenLinks[0].Kind)
	require.Equal(t, "/cronai/docs/missing", ev.BrokenLinks[0].Target)

	require.Equal(t, 1, rec.outcomes[metrics.BuildOutcomeFailed])
	require.Equal(t, metrics.ResultFatal, rec.stages[StageLinkCheck])
	require.Equal(t, 1, rec.broken["link"])
}

func TestBrokenLinksWarnUnderWarn(t *testing.T) {
	cfg := testSite(t, func(c *config.Config) {
		c.Links.OnBrokenLinks = config.PolicyWarn
	})
	writeFile(t, cfg.Root, "docs/broken.md", "# Broken\n\nSee [missing](/cronai/docs/missing).\n")

	rep, err := New(cfg).Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, StatusWarning, rep.Outcome)
	require.True(t, rep.Outcome.IsSuccess())
	require.Len(t, rep.Findings, 1)
	require.NotEmpty(t, rep.OutputHash)
}

func TestBrokenMarkdownLinksFailUnderThrow(t *testing.T) {
	cfg := testSite(t, func(c *config.Config) {
		c.Links.OnBrokenMarkdownLinks = config.PolicyThrow
	})
	writeFile(t, cfg.Root, "docs/broken.md", "# Broken\n\nSee [gone](gone.md).\n")

	rep, err := New(cfg).Run(context.Background(), Options{})
	require.Error(t, err)
	require.True(t, derrors.HasCategory(err, derrors.CategoryLinks))
	require.Len(t, rep.BrokenMarkdownLinks, 1)
	require.Equal(t, "gone.md", rep.BrokenMarkdownLinks[0].Target)
}

func TestMissingDocsDirIsDocsError(t *testing.T) {
	cfg := testSite(t, nil)
	require.NoError(t, os.RemoveAll(filepath.Join(cfg.Root, "docs")))

	rep, err := New(cfg).Run(context.Background(), Options{})
	require.Error(t, err)
	require.True(t, derrors.HasCategory(err, derrors.CategoryDocs))
	require.Equal(t, StatusFailed, rep.Outcome)
	require.Len(t, rep.Stages, 1)
}

func TestAssetOverGeneratedFileIsDocsError(t *testing.T) {
	for _, tt := range []struct {
		asset string
		file  string
	}{
		{asset: "pages/routes.json", file: "routes.json"},
		{asset: "docs/architecture.html", file: "docs/architecture.html"},
		{asset: "pages/sitemap.xml", file: "sitemap.xml"},
		{asset: "pages/404.html", file: "404.html"},
	} {
		t.Run(tt.asset, func(t *testing.T) {
			cfg := testSite(t, nil)
			writeFile(t, cfg.Root, tt.asset, "{\"hijacked\":true}\n")

			rep, err := New(cfg).Run(context.Background(), Options{})
			require.Error(t, err)
			require.True(t, derrors.HasCategory(err, derrors.CategoryDocs))
			require.Contains(t, err.Error(), "asset would overwrite a generated file")
			require.Equal(t, StatusFailed, rep.Outcome)
			require.Equal(t, StageManifest, rep.Stages[len(rep.Stages)-1].Name)
			require.NoFileExists(t, filepath.Join(cfg.OutputDir(), tt.file))

			_, err = Manifest(cfg)
			require.True(t, derrors.HasCategory(err, derrors.CategoryDocs))
		})
	}
}

func TestUnknownSidebarDocIsConfigError(t *testing.T) {
	cfg := testSite(t, func(c *config.Config) {
		c.Sidebars = map[string][]config.SidebarItem{
			"docs": {{Type: "doc", ID: "does-not-exist"}},
		}
	})
	_, err := New(cfg).Run(context.Background(), Options{})
	require.Error(t, err)
	require.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
}

func TestCanceledBuild(t *testing.T) {
	cfg := testSite(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := &capturePublisher{}
	rep, err := New(cfg).WithPublisher(pub).Run(ctx, Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StatusCanceled, rep.Outcome)
	require.Len(t, pub.events, 1)
	require.Equal(t, "canceled", pub.events[0].Outcome)
}

func TestSkipUnchanged(t *testing.T) {
	cfg := testSite(t, nil)
	store := openHistory(t)
	rec := newCountingRecorder()
	b := New(cfg).WithHistory(store).WithRecorder(rec)

	// Nothing recorded yet.
	first, err := b.Run(context.Background(), Options{SkipIfUnchanged: true})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, first.Outcome)

	second, err := b.Run(context.Background(), Options{SkipIfUnchanged: true})
	require.NoError(t, err)
	require.Equal(t, StatusSkipped, second.Outcome)
	require.Equal(t, SkipReasonUnchanged, second.SkipReason)
	require.Equal(t, first.OutputHash, second.OutputHash)
	require.NotNil(t, second.Table)
	require.Equal(t, first.Routes, second.Routes)
	require.Equal(t, 1, rec.outcomes[metrics.BuildOutcomeSkipped])

	// A tampered output forces a rebuild that restores it.
	writeFile(t, cfg.OutputDir(), "docs/architecture.html", "tampered")
	third, err := b.Run(context.Background(), Options{SkipIfUnchanged: true})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, third.Outcome)
	require.Equal(t, first.OutputHash, third.OutputHash)

	// Changed input.
	writeFile(t, cfg.Root, "docs/intro.md", "---\ntitle: Introduction\nslug: /\n---\nUpdated.\n")
	fourth, err := b.Run(context.Background(), Options{SkipIfUnchanged: true})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, fourth.Outcome)
	require.NotEqual(t, first.InputHash, fourth.InputHash)
}

func TestSkipRequiresHistory(t *testing.T) {
	cfg := testSite(t, nil)
	_, err := New(cfg).Run(context.Background(), Options{})
	require.NoError(t, err)

	rep, err := New(cfg).Run(context.Background(), Options{SkipIfUnchanged: true})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, rep.Outcome)
}

func TestPublishFailureDoesNotFailBuild(t *testing.T) {
	cfg := testSite(t, nil)
	pub := &capturePublisher{err: errors.New("nats: no servers available")}
	rep, err := New(cfg).WithPublisher(pub).Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, rep.Outcome)
	require.Len(t, pub.events, 1)
	require.Equal(t, rep.BuildID, pub.events[0].BuildID)
	require.Equal(t, "/cronai/", pub.events[0].BaseURL)
	require.WithinDuration(t, rep.StartedAt.Add(rep.Duration), pub.events[0].FinishedAt, time.Millisecond)
}

func TestOutputHash(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.html", "a")
	writeFile(t, dir, "sub/b.html", "b")
	h1, err := OutputHash(dir)
	require.NoError(t, err)

	h2, err := OutputHash(dir)
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	writeFile(t, dir, "sub/b.html", "c")
	h3, err := OutputHash(dir)
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)

	require.NoError(t, os.Rename(filepath.Join(dir, "sub", "b.html"), filepath.Join(dir, "sub", "d.html")))
	h4, err := OutputHash(dir)
	require.NoError(t, err)
	require.NotEqual(t, h3, h4)
}

func TestManifestMatchesBuild(t *testing.T) {
	cfg := testSite(t, nil)
	m, err := Manifest(cfg)
	require.NoError(t, err)

	rep, err := New(cfg).Run(context.Background(), Options{})
	require.NoError(t, err)

	want, err := rep.Table.Manifest().Marshal()
	require.NoError(t, err)
	got, err := m.Marshal()
	require.NoError(t, err)
	require.JSONEq(t, string(want), string(got))
}
