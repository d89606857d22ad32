package sidebar

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docsite/internal/docs"
)

// categoryMeta is the optional _category_.yml file of an autogenerated directory.
type categoryMeta struct {
	Label     string   `yaml:"label"`
	Position  *float64 `yaml:"position"`
	Collapsed *bool    `yaml:"collapsed"`
}

var categoryFiles = []string{"_category_.yml", "_category_.yaml", "_category_.json"}

type dirNode struct {
	name     string
	rel      string
	docs     []*docs.Doc
	children map[string]*dirNode
}

type generator struct {
	docsDir string
	root    *dirNode
	title   cases.Caser
}

func newGenerator(set *docs.Set, docsDir string) *generator {
	g := &generator{
		docsDir: docsDir,
		root:    &dirNode{children: map[string]*dirNode{}},
		title:   cases.Title(language.English),
	}
	for _, d := range set.Listed() {
		node := g.root
		dir := path.Dir(d.RelPath)
		if dir != "." {
			for _, seg := range strings.Split(dir, "/") {
				child, ok := node.children[seg]
				if !ok {
					child = &dirNode{name: seg, rel: path.Join(node.rel, seg), children: map[string]*dirNode{}}
					node.children[seg] = child
				}
				node = child
			}
		}
		node.docs = append(node.docs, d)
	}
	return g
}

// generate builds items for the docs below dir, a slash path relative to the docs directory.
func (g *generator) generate(dir string) ([]*Item, error) {
	node := g.root
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir != "" {
		for _, seg := range strings.Split(dir, "/") {
			child, ok := node.children[seg]
			if !ok {
				return nil, fmt.Errorf("autogenerated sidebar dir %q has no docs", dir)
			}
			node = child
		}
	}
	return g.items(node, false)
}

type sortable struct {
	item     *Item
	position *float64
	key      string
}

func (g *generator) items(node *dirNode, skipIndex bool) ([]*Item, error) {
	var entries []sortable
	for _, d := range node.docs {
		if skipIndex && isIndexDoc(d, node.name) {
			continue
		}
		entries = append(entries, sortable{
			item:     &Item{Type: ItemDoc, Label: d.Label(), DocID: d.ID, Href: d.Permalink},
			position: d.SidebarPosition,
			key:      path.Base(d.RelPath),
		})
	}
	for _, child := range node.children {
		cat, pos, err := g.category(child)
		if err != nil {
			return nil, err
		}
		entries = append(entries, sortable{item: cat, position: pos, key: child.name})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.position != nil && b.position != nil && *a.position != *b.position:
			return *a.position < *b.position
		case a.position != nil && b.position == nil:
			return true
		case a.position == nil && b.position != nil:
			return false
		}
		return a.key < b.key
	})

	out := make([]*Item, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.item)
	}
	return out, nil
}

func (g *generator) category(node *dirNode) (*Item, *float64, error) {
	meta, err := g.readCategoryMeta(node.rel)
	if err != nil {
		return nil, nil, err
	}
	children, err := g.items(node, true)
	if err != nil {
		return nil, nil, err
	}

	cat := &Item{Type: ItemCategory, Label: meta.Label, Collapsed: true, Items: children}
	if cat.Label == "" {
		cat.Label = g.label(node.name)
	}
	if meta.Collapsed != nil {
		cat.Collapsed = *meta.Collapsed
	}
	pos := meta.Position
	for _, d := range node.docs {
		if isIndexDoc(d, node.name) {
			cat.DocID, cat.Href = d.ID, d.Permalink
			if pos == nil {
				pos = d.SidebarPosition
			}
			break
		}
	}
	return cat, pos, nil
}

func (g *generator) readCategoryMeta(rel string) (categoryMeta, error) {
	var meta categoryMeta
	if g.docsDir == "" {
		return meta, nil
	}
	for _, name := range categoryFiles {
		p := filepath.Join(g.docsDir, filepath.FromSlash(rel), name)
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &meta); err != nil {
			return meta, fmt.Errorf("parse %s: %w", p, err)
		}
		return meta, nil
	}
	return meta, nil
}

// label turns a directory name like "02-model_parameters" into "Model Parameters".
func (g *generator) label(dirName string) string {
	name := dirName
	if i := strings.IndexAny(name, "-_."); i > 0 && strings.Trim(name[:i], "0123456789") == "" {
		name = name[i+1:]
	}
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return g.title.String(name)
}

func isIndexDoc(d *docs.Doc, dirName string) bool {
	base := strings.TrimSuffix(path.Base(d.RelPath), path.Ext(d.RelPath))
	lower := strings.ToLower(base)
	return lower == "index" || lower == "readme" || (dirName != "" && strings.EqualFold(base, dirName))
}
