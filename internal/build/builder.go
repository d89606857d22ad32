package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/docs"
	"git.home.luguber.info/inful/docsite/internal/events"
	derrors "git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/gitinfo"
	"git.home.luguber.info/inful/docsite/internal/history"
	"git.home.luguber.info/inful/docsite/internal/linkcheck"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/observability"
	"git.home.luguber.info/inful/docsite/internal/render"
	"git.home.luguber.info/inful/docsite/internal/routes"
	"git.home.luguber.info/inful/docsite/internal/sidebar"
)

// brokenMarkdownKind labels unresolved Markdown links in metrics and events.
const brokenMarkdownKind = "markdown"

const publishTimeout = 5 * time.Second

// Builder runs builds for one configuration. It is safe to reuse across builds
// but not for concurrent builds writing the same output directory.
type Builder struct {
	cfg       *config.Config
	recorder  metrics.Recorder
	history   history.Store
	publisher events.Publisher
}

var _ Service = (*Builder)(nil)

// New creates a Builder with no history, no events and a no-op recorder.
func New(cfg *config.Config) *Builder {
	return &Builder{
		cfg:       cfg,
		recorder:  metrics.NoopRecorder{},
		publisher: events.NoopPublisher{},
	}
}

// WithRecorder sets the metrics recorder.
func (b *Builder) WithRecorder(r metrics.Recorder) *Builder {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	b.recorder = r
	return b
}

// WithHistory records every build in store.
func (b *Builder) WithHistory(store history.Store) *Builder {
	b.history = store
	return b
}

// WithPublisher publishes a BuildEvent after every build.
func (b *Builder) WithPublisher(p events.Publisher) *Builder {
	if p == nil {
		p = events.NoopPublisher{}
	}
	b.publisher = p
	return b
}

// Run executes the pipeline. The report is returned even when the build fails.
func (b *Builder) Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	rep := &Report{
		BuildID:   uuid.NewString(),
		StartedAt: start.UTC(),
		Outcome:   StatusSuccess,
	}
	ctx = observability.WithBuildID(ctx, rep.BuildID)
	observability.InfoContext(ctx, "Build started",
		slog.String("site", b.cfg.Title),
		logfields.Path(b.cfg.OutputDir()))

	err := b.execute(ctx, opts, rep)
	rep.Duration = time.Since(start)
	b.finish(ctx, rep, err)
	return rep, err
}

// stageFunc runs one stage. warned marks a stage that completed with reportable problems.
type stageFunc func(ctx context.Context) (warned bool, err error)

func (b *Builder) stage(ctx context.Context, rep *Report, name string, fn stageFunc) error {
	ctx = observability.WithStage(ctx, name)
	start := time.Now()
	warned, err := fn(ctx)
	d := time.Since(start)
	rep.Stages = append(rep.Stages, StageTiming{Name: name, Duration: d})
	b.recorder.ObserveStageDuration(name, d)

	switch {
	case err == nil && warned:
		b.recorder.IncStageResult(name, metrics.ResultWarning)
		if rep.Outcome == StatusSuccess {
			rep.Outcome = StatusWarning
		}
	case err == nil:
		b.recorder.IncStageResult(name, metrics.ResultSuccess)
	case isCanceled(err):
		b.recorder.IncStageResult(name, metrics.ResultCanceled)
		observability.WarnContext(ctx, "Stage canceled")
		return err
	default:
		b.recorder.IncStageResult(name, metrics.ResultFatal)
		observability.ErrorContext(ctx, "Stage failed", logfields.Error(err))
		return err
	}
	observability.DebugContext(ctx, "Stage complete", logfields.DurationMS(float64(d.Microseconds())/1000))
	return nil
}

func (b *Builder) execute(ctx context.Context, opts Options, rep *Report) error {
	cfg := b.cfg
	var (
		set      *docs.Set
		sidebars *sidebar.Sidebars
		table    *routes.Table
		manifest *routes.Manifest
		files    []string
	)

	steps := []struct {
		name string
		fn   stageFunc
	}{
		{StageDiscover, func(context.Context) (bool, error) {
			var err error
			if set, err = discover(cfg); err != nil {
				return false, err
			}
			rep.Docs = len(set.Docs)
			return false, nil
		}},
		{StageSidebars, func(context.Context) (bool, error) {
			var err error
			sidebars, err = resolveSidebars(cfg, set)
			return false, err
		}},
		{StageGitInfo, func(ctx context.Context) (bool, error) {
			if !cfg.Docs.ShowLastUpdateTime && !cfg.Docs.ShowLastUpdateAuthor {
				return false, nil
			}
			repo, err := gitinfo.Open(cfg.DocsDir())
			if errors.Is(err, gitinfo.ErrNotRepository) {
				observability.DebugContext(ctx, "Docs are not in a git repository, skipping last update info")
				return false, nil
			}
			if err != nil {
				observability.WarnContext(ctx, "Failed to open git repository", logfields.Error(err))
				return true, nil
			}
			repo.Apply(set)
			return false, nil
		}},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.stage(ctx, rep, s.name, s.fn); err != nil {
			return err
		}
	}

	skipped := false
	err := b.stage(ctx, rep, StageInputHash, func(ctx context.Context) (bool, error) {
		digest, err := configDigest(cfg)
		if err != nil {
			return false, derrors.InternalError("hash configuration").WithCause(err).Build()
		}
		rep.InputHash, err = set.InputHash(digest, lastUpdateDigest(set))
		if err != nil {
			return false, derrors.FileSystemError("hash inputs").WithCause(err).Build()
		}
		if !opts.SkipIfUnchanged {
			return false, nil
		}
		st := &skipState{outDir: cfg.OutputDir(), inputHash: rep.InputHash, store: b.history}
		ok, reason := newSkipEvaluator().evaluate(ctx, st)
		if !ok {
			observability.InfoContext(ctx, "Build cannot be skipped", slog.String("reason", reason))
			return false, nil
		}
		m, err := routes.ReadFile(filepath.Join(st.outDir, routes.ManifestFile))
		if err != nil {
			observability.InfoContext(ctx, "Build cannot be skipped", slog.String("reason", "manifest_unreadable"))
			return false, nil
		}
		t, err := routes.NewTable(m)
		if err != nil {
			observability.InfoContext(ctx, "Build cannot be skipped", slog.String("reason", "manifest_invalid"))
			return false, nil
		}
		skipped = true
		rep.Table = t
		rep.Routes = len(t.Entries())
		rep.OutputHash = st.outputHash
		rep.SkipReason = reason
		return false, nil
	})
	if err != nil {
		return err
	}
	if skipped {
		rep.Outcome = StatusSkipped
		observability.InfoContext(ctx, "Build skipped, no changes detected", slog.String("input_hash", rep.InputHash))
		return nil
	}

	steps = []struct {
		name string
		fn   stageFunc
	}{
		{StageManifest, func(context.Context) (bool, error) {
			var err error
			if manifest, err = buildManifest(cfg, set); err != nil {
				return false, err
			}
			table, err = routes.NewTable(manifest)
			if err != nil {
				return false, derrors.RoutesError("load route table").WithCause(err).Build()
			}
			rep.Table = table
			rep.Routes = len(table.Entries())
			return false, nil
		}},
		{StageRender, func(ctx context.Context) (bool, error) {
			r, err := render.New(cfg)
			if err != nil {
				return false, derrors.RenderError("parse templates").WithCause(err).Build()
			}
			res, err := r.Render(ctx, render.Site{Docs: set, Sidebars: sidebars, Manifest: manifest})
			if isCanceled(err) {
				return false, err
			}
			if err != nil {
				return false, derrors.RenderError("render site").WithCause(err).
					WithContext("output_dir", cfg.OutputDir()).Build()
			}
			files = res.Files
			rep.Files = len(res.Files)
			rep.BrokenMarkdownLinks = res.BrokenMarkdownLinks
			n := len(res.BrokenMarkdownLinks)
			if n > 0 && cfg.Links.OnBrokenMarkdownLinks.Fails() {
				return false, derrors.LinksError(fmt.Sprintf("%d broken Markdown link(s)", n)).
					WithContext("policy", string(cfg.Links.OnBrokenMarkdownLinks)).UserAction().Build()
			}
			return n > 0, nil
		}},
		{StageLinkCheck, func(ctx context.Context) (bool, error) {
			if opts.SkipLinkCheck {
				return false, nil
			}
			report, err := linkcheck.New(cfg, table).Check(ctx, files)
			if report != nil {
				rep.Findings = report.Findings
			}
			switch {
			case isCanceled(err):
				return false, err
			case errors.Is(err, linkcheck.ErrBrokenLinks):
				return false, derrors.LinksError("broken links").WithCause(err).UserAction().Build()
			case err != nil:
				return false, derrors.LinksError("check links").WithCause(err).Build()
			}
			return len(rep.Findings) > 0, nil
		}},
		{StageHash, func(context.Context) (bool, error) {
			var err error
			rep.OutputHash, err = OutputHash(cfg.OutputDir())
			if err != nil {
				return false, derrors.FileSystemError("hash output").WithCause(err).Build()
			}
			return false, nil
		}},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.stage(ctx, rep, s.name, s.fn); err != nil {
			return err
		}
	}
	return nil
}

// finish settles the outcome and reports the build to history, events and metrics.
func (b *Builder) finish(ctx context.Context, rep *Report, err error) {
	rep.BrokenLinks = len(rep.Findings) + len(rep.BrokenMarkdownLinks)
	if err != nil {
		rep.Outcome = StatusFailed
		if isCanceled(err) {
			rep.Outcome = StatusCanceled
		}
		rep.Error = err.Error()
	}
	// Reporting outlives a canceled build.
	rctx := context.WithoutCancel(ctx)

	if b.history != nil {
		b.compareWithHistory(rctx, rep)
		if herr := b.history.Record(rctx, recordFor(rep)); herr != nil {
			observability.WarnContext(rctx, "Failed to record build history", logfields.Error(herr))
		}
	}

	pctx, cancel := context.WithTimeout(rctx, publishTimeout)
	if perr := b.publisher.Publish(pctx, b.eventFor(rep)); perr != nil {
		observability.WarnContext(rctx, "Failed to publish build event", logfields.Error(perr))
	}
	cancel()

	b.recorder.ObserveBuildDuration(rep.Duration)
	b.recorder.IncBuildOutcome(metrics.BuildOutcomeLabel(rep.Outcome))
	if rep.Outcome.IsSuccess() {
		b.recorder.SetSiteSize(rep.Docs, rep.Routes)
	}
	b.recorder.AddBrokenLinks(string(linkcheck.KindLink), countKind(rep.Findings, linkcheck.KindLink))
	b.recorder.AddBrokenLinks(string(linkcheck.KindAnchor), countKind(rep.Findings, linkcheck.KindAnchor))
	b.recorder.AddBrokenLinks(brokenMarkdownKind, len(rep.BrokenMarkdownLinks))

	attrs := []slog.Attr{
		slog.String("outcome", string(rep.Outcome)),
		slog.Int("docs", rep.Docs),
		slog.Int("routes", rep.Routes),
		slog.Int("broken_links", rep.BrokenLinks),
		slog.String(logfields.KeyOutputHash, rep.OutputHash),
		logfields.DurationMS(float64(rep.Duration.Microseconds()) / 1000),
	}
	if err != nil {
		attrs = append(attrs, logfields.Error(err))
		observability.ErrorContext(ctx, "Build failed", attrs...)
		return
	}
	observability.InfoContext(ctx, "Build complete", attrs...)
}

// compareWithHistory logs whether the output matches the last build of the same input.
func (b *Builder) compareWithHistory(ctx context.Context, rep *Report) {
	if rep.OutputHash == "" || rep.Outcome == StatusSkipped {
		return
	}
	prev, ok, err := b.history.LastWithInput(ctx, rep.InputHash)
	if err != nil {
		observability.WarnContext(ctx, "Failed to read build history", logfields.Error(err))
		return
	}
	if !ok {
		return
	}
	unchanged := prev.OutputHash == rep.OutputHash
	rep.Unchanged = &unchanged
	if unchanged {
		observability.InfoContext(ctx, "Output identical to previous build of the same input",
			slog.String("previous_build", prev.BuildID))
		return
	}
	observability.WarnContext(ctx, "Output differs from previous build of the same input",
		slog.String("previous_build", prev.BuildID),
		slog.String("previous_output_hash", prev.OutputHash),
		slog.String(logfields.KeyOutputHash, rep.OutputHash))
}

func recordFor(rep *Report) history.Record {
	return history.Record{
		BuildID:     rep.BuildID,
		StartedAt:   rep.StartedAt,
		Duration:    rep.Duration,
		Outcome:     string(rep.Outcome),
		Docs:        rep.Docs,
		Routes:      rep.Routes,
		BrokenLinks: rep.BrokenLinks,
		InputHash:   rep.InputHash,
		OutputHash:  rep.OutputHash,
		Error:       rep.Error,
	}
}

func (b *Builder) eventFor(rep *Report) events.BuildEvent {
	ev := events.BuildEvent{
		BuildID:    rep.BuildID,
		Site:       b.cfg.Title,
		BaseURL:    b.cfg.BaseURL,
		Outcome:    string(rep.Outcome),
		Docs:       rep.Docs,
		Routes:     rep.Routes,
		InputHash:  rep.InputHash,
		OutputHash: rep.OutputHash,
		DurationMS: rep.Duration.Milliseconds(),
		FinishedAt: rep.StartedAt.Add(rep.Duration),
		Error:      rep.Error,
	}
	for _, f := range rep.Findings {
		ev.BrokenLinks = append(ev.BrokenLinks, events.BrokenLink{Kind: string(f.Kind), Page: f.Page, Target: f.URL})
	}
	for _, l := range rep.BrokenMarkdownLinks {
		ev.BrokenLinks = append(ev.BrokenLinks, events.BrokenLink{Kind: brokenMarkdownKind, Page: l.Source, Target: l.Target})
	}
	return ev
}

// lastUpdateDigest covers git metadata that ends up in rendered pages.
func lastUpdateDigest(set *docs.Set) []byte {
	var lines []string
	for _, d := range set.Docs {
		if d.LastUpdatedAt == 0 && d.LastUpdatedBy == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s\x00%d\x00%s\n", d.ID, d.LastUpdatedAt, d.LastUpdatedBy))
	}
	sort.Strings(lines)
	var out []byte
	for _, l := range lines {
		out = append(out, l...)
	}
	return out
}

func countKind(findings []linkcheck.Finding, kind linkcheck.Kind) int {
	n := 0
	for _, f := range findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
