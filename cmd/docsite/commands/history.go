package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	derrors "git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/history"
)

// HistoryCmd lists recorded builds, newest first.
type HistoryCmd struct {
	Limit int  `short:"n" default:"20" help:"Number of builds to show"`
	JSON  bool `name:"json" help:"Print records as JSON"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return derrors.ConfigError("build history is disabled").
			WithContext("hint", "set history.enabled: true").UserAction().Build()
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return derrors.StoreError("open build history").WithCause(err).Build()
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signalContext()
	defer cancel()
	records, err := store.List(ctx, h.Limit)
	if err != nil {
		return derrors.StoreError("list builds").WithCause(err).Build()
	}
	if h.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	renderHistory(g.out(), records)
	return nil
}

func renderHistory(w io.Writer, records []history.Record) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "(no builds recorded)")
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Build", "Started", "Outcome", "Docs", "Routes", "Broken", "Duration", "Output"})
	for _, r := range records {
		tw.AppendRow(table.Row{
			short(r.BuildID, 8),
			r.StartedAt.Local().Format(time.DateTime),
			r.Outcome,
			r.Docs,
			r.Routes,
			r.BrokenLinks,
			r.Duration.Round(time.Millisecond).String(),
			short(r.OutputHash, 12),
		})
	}
	tw.Render()
}

func short(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
