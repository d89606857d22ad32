package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/config"
	derrors "git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

// CheckCmd builds into a scratch directory with every broken-link policy set to throw.
type CheckCmd struct {
	Drafts bool `help:"Include draft documents"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	scratch, err := os.MkdirTemp("", "docsite-check-*")
	if err != nil {
		return derrors.FileSystemError("create scratch directory").WithCause(err).Build()
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	cfg.Output.Directory = scratch
	cfg.Output.Clean = true
	cfg.Docs.IncludeDrafts = c.Drafts
	cfg.Links = config.LinksConfig{
		OnBrokenLinks:         config.PolicyThrow,
		OnBrokenMarkdownLinks: config.PolicyThrow,
		OnBrokenAnchors:       config.PolicyThrow,
	}

	ctx, cancel := signalContext()
	defer cancel()
	rep, err := build.New(cfg).Run(ctx, build.Options{})
	if rep != nil {
		renderFindings(g.out(), rep)
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "OK: %d docs, %d routes, no broken links\n", rep.Docs, rep.Routes)
	return nil
}

func renderFindings(w io.Writer, rep *build.Report) {
	if len(rep.Findings) == 0 && len(rep.BrokenMarkdownLinks) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Kind", "Page", "Target"})
	for _, l := range rep.BrokenMarkdownLinks {
		tw.AppendRow(table.Row{"markdown", l.Source, l.Target})
	}
	for _, f := range rep.Findings {
		tw.AppendRow(table.Row{string(f.Kind), f.Page, f.URL})
	}
	tw.Render()
}
