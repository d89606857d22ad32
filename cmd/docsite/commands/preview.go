package commands

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/config"
	derrors "git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/history"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/preview"
	"git.home.luguber.info/inful/docsite/internal/server"
)

// PreviewCmd builds the site with drafts, serves it and rebuilds on change.
type PreviewCmd struct {
	Host         string        `help:"Override server.host"`
	Port         int           `short:"p" help:"Override server.port"`
	NoLiveReload bool          `name:"no-live-reload" help:"Disable LiveReload SSE and script injection"`
	Debounce     time.Duration `default:"300ms" help:"Quiet period after the last change before rebuilding"`
}

type discardBroadcaster struct{}

func (discardBroadcaster) Broadcast(string) {}

func (p *PreviewCmd) Run(_ *Global, root *CLI) error {
	cfg, err := p.loadConfig(root)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	reg, rec := newMetrics(cfg)
	deps, err := openBuildDeps(cfg, rec)
	if err != nil {
		return err
	}
	defer deps.Close()

	var (
		hub    *server.LiveReloadHub
		notify preview.Broadcaster = discardBroadcaster{}
	)
	if !p.NoLiveReload {
		hub = server.NewLiveReloadHub()
		notify = hub
	}
	srv := server.New(cfg, server.Options{Registry: reg, Recorder: rec, LiveReload: hub, Logger: slog.Default()})

	rebuild := func(ctx context.Context) (string, error) {
		// Pick up config edits; server settings stay as started.
		fresh, err := p.loadConfig(root)
		if err != nil {
			return "", err
		}
		if fresh.BaseURL != cfg.BaseURL || fresh.OutputDir() != cfg.OutputDir() {
			return "", derrors.ConfigError("base_url or output directory changed, restart preview").UserAction().Build()
		}
		rep, err := deps.builder(fresh).Run(ctx, build.Options{})
		if err != nil {
			return "", err
		}
		srv.SetTable(rep.Table)
		return rep.OutputHash, nil
	}
	if _, err := rebuild(ctx); err != nil {
		slog.Error("Initial build failed, waiting for changes", logfields.Error(err))
	}

	w := preview.NewWatcher(p.watchPaths(cfg, root.Config), rebuild, notify,
		preview.WithDebounce(p.Debounce),
		preview.WithIgnore(p.ignoredDirs(cfg)...))

	watchErr := make(chan error, 1)
	go func() { watchErr <- w.Run(ctx) }()

	err = srv.Run(ctx)
	cancel()
	if werr := <-watchErr; werr != nil && err == nil {
		err = derrors.InternalError("file watcher").WithCause(werr).Build()
	}
	return err
}

func (p *PreviewCmd) loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	cfg.Docs.IncludeDrafts = true
	applyServerOverrides(cfg, p.Host, p.Port)
	return cfg, nil
}

func (p *PreviewCmd) watchPaths(cfg *config.Config, configPath string) []string {
	paths := []string{cfg.DocsDir(), cfg.PagesDir(), configPath}
	if cfg.SidebarsFile != "" {
		paths = append(paths, cfg.ResolvePath(cfg.SidebarsFile))
	}
	for _, name := range []string{".env", ".env.local"} {
		paths = append(paths, filepath.Join(filepath.Dir(configPath), name))
	}
	return paths
}

func (p *PreviewCmd) ignoredDirs(cfg *config.Config) []string {
	dirs := []string{cfg.OutputDir()}
	if cfg.History.Enabled && cfg.History.Path != history.MemoryPath {
		if dir := filepath.Dir(cfg.HistoryPath()); dir != cfg.Root {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
