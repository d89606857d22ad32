package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/routes"
)

// RoutesCmd prints the route table derived from the sources.
type RoutesCmd struct {
	JSON bool `name:"json" help:"Print the manifest as routes.json would contain it"`
}

func (r *RoutesCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	m, err := build.Manifest(cfg)
	if err != nil {
		return err
	}
	if r.JSON {
		data, err := m.Marshal()
		if err != nil {
			return err
		}
		_, err = g.out().Write(append(data, '\n'))
		return err
	}
	t, err := routes.NewTable(m)
	if err != nil {
		return err
	}
	renderRoutes(g.out(), t)
	return nil
}

func renderRoutes(w io.Writer, t *routes.Table) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Path", "Component", "Kind", "Sidebar", "File"})
	m := t.Manifest()
	for _, e := range t.Entries() {
		c := m.Components[e.Component]
		tw.AppendRow(table.Row{e.Path, e.Component, string(c.Kind), e.Sidebar, c.File})
	}
	tw.Render()
	_, _ = fmt.Fprintf(w, "(%d routes)\n", len(t.Entries()))
}
