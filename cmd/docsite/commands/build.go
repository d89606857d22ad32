package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/config"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	SkipUnchanged bool `name:"skip-unchanged" help:"Skip the build when history shows the same input already produced the current output"`
	NoLinkCheck   bool `name:"no-link-check" help:"Skip the link integrity check"`
	Drafts        bool `help:"Include draft documents"`
	JSON          bool `name:"json" help:"Print the build report as JSON"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if b.Drafts {
		cfg.Docs.IncludeDrafts = true
	}
	ctx, cancel := signalContext()
	defer cancel()

	_, rec := newMetrics(cfg)
	deps, err := openBuildDeps(cfg, rec)
	if err != nil {
		return err
	}
	defer deps.Close()

	rep, err := deps.builder(cfg).Run(ctx, build.Options{SkipIfUnchanged: b.SkipUnchanged, SkipLinkCheck: b.NoLinkCheck})
	if b.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(rep); encErr != nil {
			return encErr
		}
		return err
	}
	if err != nil {
		return err
	}
	printSummary(g.out(), cfg, rep)
	return nil
}

func printSummary(w io.Writer, cfg *config.Config, rep *build.Report) {
	switch rep.Outcome {
	case build.StatusSkipped:
		_, _ = fmt.Fprintf(w, "Build skipped: %s is up to date (%s)\n", cfg.OutputDir(), rep.SkipReason)
	default:
		_, _ = fmt.Fprintf(w, "Built %d docs, %d routes into %s in %s\n",
			rep.Docs, rep.Routes, cfg.OutputDir(), rep.Duration.Round(time.Millisecond))
		if rep.BrokenLinks > 0 {
			_, _ = fmt.Fprintf(w, "%d broken link(s) reported\n", rep.BrokenLinks)
		}
	}
}
