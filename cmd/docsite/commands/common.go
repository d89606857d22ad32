// Package commands implements the docsite command line.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/events"
	derrors "git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/history"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
)

// Global is shared state bound into every command.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docsite.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the site into the output directory"`
	Serve   ServeCmd   `cmd:"" help:"Serve the built site"`
	Preview PreviewCmd `cmd:"" help:"Build, serve and rebuild on change with live reload"`
	Routes  RoutesCmd  `cmd:"" help:"Print the route table"`
	Check   CheckCmd   `cmd:"" help:"Build into a scratch directory and fail on any broken link"`
	Init    InitCmd    `cmd:"" help:"Write a starter configuration and doc"`
	History HistoryCmd `cmd:"" help:"List recorded builds"`
}

// AfterApply runs after flag parsing and sets up logging until a config is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if env := os.Getenv("DOCSITE_LOG_LEVEL"); env != "" {
		level = config.NormalizeLogLevel(env).SlogLevel()
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig loads the configuration and applies its logging settings.
func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	configureLogging(cfg.Logging, root.Verbose)
	return cfg, nil
}

func configureLogging(lc config.LoggingConfig, verbose bool) {
	level := lc.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if lc.Format == config.LogFormatJSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// newMetrics returns a registry and recorder when metrics are enabled.
func newMetrics(cfg *config.Config) (*prom.Registry, metrics.Recorder) {
	if !cfg.Metrics.Enabled {
		return nil, metrics.NoopRecorder{}
	}
	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewPrometheusRecorder(reg)
}

// buildDeps are the long-lived collaborators of builds: metrics, history and events.
type buildDeps struct {
	recorder metrics.Recorder
	history  history.Store
	events   events.Publisher
}

// openBuildDeps opens history and events as configured.
func openBuildDeps(cfg *config.Config, rec metrics.Recorder) (*buildDeps, error) {
	d := &buildDeps{recorder: rec, events: events.NoopPublisher{}}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, derrors.StoreError("open build history").WithCause(err).
				WithContext("path", cfg.HistoryPath()).Build()
		}
		d.history = store
	}
	pub, err := events.New(cfg.Events)
	if err != nil {
		// Build events are best effort.
		slog.Warn("Build events disabled", logfields.URL(cfg.Events.NATSURL), logfields.Error(err))
	} else {
		d.events = pub
	}
	return d, nil
}

// builder returns a Builder for cfg sharing these collaborators.
func (d *buildDeps) builder(cfg *config.Config) *build.Builder {
	b := build.New(cfg).WithRecorder(d.recorder).WithPublisher(d.events)
	if d.history != nil {
		b.WithHistory(d.history)
	}
	return b
}

func (d *buildDeps) Close() {
	if d.history != nil {
		if err := d.history.Close(); err != nil {
			slog.Warn("Failed to close build history", logfields.Error(err))
		}
	}
	if err := d.events.Close(); err != nil {
		slog.Warn("Failed to close event publisher", logfields.Error(err))
	}
}

// signalContext is replaced in tests.
var signalContext = func() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
