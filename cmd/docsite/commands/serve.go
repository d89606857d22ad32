package commands

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/config"
	derrors "git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/scheduler"
	"git.home.luguber.info/inful/docsite/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Host         string        `help:"Override server.host"`
	Port         int           `short:"p" help:"Override server.port"`
	Build        bool          `help:"Build the site before serving"`
	RebuildEvery time.Duration `name:"rebuild-every" help:"Rebuild periodically, e.g. 15m"`
	RebuildCron  string        `name:"rebuild-cron" help:"Rebuild on a cron schedule, e.g. '*/30 * * * *'"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	applyServerOverrides(cfg, s.Host, s.Port)

	ctx, cancel := signalContext()
	defer cancel()

	reg, rec := newMetrics(cfg)
	var hub *server.LiveReloadHub
	if cfg.Server.LiveReload {
		hub = server.NewLiveReloadHub()
	}
	srv := server.New(cfg, server.Options{Registry: reg, Recorder: rec, LiveReload: hub, Logger: slog.Default()})

	scheduled := s.RebuildEvery > 0 || s.RebuildCron != ""
	var rebuild func(context.Context) error
	if s.Build || scheduled {
		deps, err := openBuildDeps(cfg, rec)
		if err != nil {
			return err
		}
		defer deps.Close()
		builder := deps.builder(cfg)
		rebuild = func(ctx context.Context) error {
			rep, err := builder.Run(ctx, build.Options{SkipIfUnchanged: true})
			if err != nil {
				return err
			}
			srv.SetTable(rep.Table)
			if hub != nil && rep.Outcome != build.StatusSkipped {
				hub.Broadcast(rep.OutputHash)
			}
			return nil
		}
	}

	if s.Build {
		if err := rebuild(ctx); err != nil {
			return err
		}
	} else if err := srv.Reload(); err != nil {
		return err
	}

	if scheduled {
		sched, err := scheduler.New()
		if err != nil {
			return derrors.InternalError("create scheduler").WithCause(err).Build()
		}
		task := func(ctx context.Context) {
			if err := rebuild(ctx); err != nil {
				slog.Error("Scheduled rebuild failed, keeping the current site", logfields.Error(err))
			}
		}
		if s.RebuildEvery > 0 {
			if _, err := sched.ScheduleEvery("rebuild", s.RebuildEvery, task); err != nil {
				return derrors.ConfigError("invalid --rebuild-every").WithCause(err).UserAction().Build()
			}
		}
		if s.RebuildCron != "" {
			if _, err := sched.ScheduleCron("rebuild-cron", s.RebuildCron, task); err != nil {
				return derrors.ConfigError("invalid --rebuild-cron").WithCause(err).UserAction().Build()
			}
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				slog.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	return srv.Run(ctx)
}

func applyServerOverrides(cfg *config.Config, host string, port int) {
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
}
