// Package sidebar resolves configured or autogenerated sidebars against the
// discovered docs and derives sidebar membership and pagination.
package sidebar

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/docs"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/util/sets"
)

// DefaultName is the sidebar generated when none are configured.
const DefaultName = "defaultSidebar"

// ErrUnknownDoc indicates a sidebar references a doc id that does not exist.
var ErrUnknownDoc = errors.New("sidebar references unknown doc")

// ItemType is the kind of a resolved sidebar item.
type ItemType string

const (
	ItemDoc      ItemType = "doc"
	ItemCategory ItemType = "category"
	ItemLink     ItemType = "link"
)

// Item is a resolved sidebar entry.
type Item struct {
	Type      ItemType `json:"type"`
	Label     string   `json:"label"`
	DocID     string   `json:"docId,omitempty"`
	Href      string   `json:"href,omitempty"`
	Collapsed bool     `json:"collapsed,omitempty"`
	Items     []*Item  `json:"items,omitempty"`
}

// Contains reports whether docID is this item or one of its descendants.
func (it *Item) Contains(docID string) bool {
	if it.DocID == docID {
		return true
	}
	for _, c := range it.Items {
		if c.Contains(docID) {
			return true
		}
	}
	return false
}

// Sidebars is the resolved set of sidebars for a site.
type Sidebars struct {
	bars    map[string][]*Item
	owner   map[string]string   // doc id -> sidebar name
	ordered map[string][]string // sidebar name -> doc ids in navigation order
}

// Resolve expands the configured sidebars. With no configuration, one
// autogenerated sidebar covers the whole docs directory.
func Resolve(configured map[string][]config.SidebarItem, set *docs.Set, docsDir string) (*Sidebars, error) {
	if len(configured) == 0 {
		configured = map[string][]config.SidebarItem{
			DefaultName: {{Type: config.SidebarAutogenerated, Dir: "."}},
		}
	}
	r := &resolver{set: set, gen: newGenerator(set, docsDir)}
	sb := &Sidebars{
		bars:    make(map[string][]*Item, len(configured)),
		owner:   map[string]string{},
		ordered: map[string][]string{},
	}

	names := make([]string, 0, len(configured))
	for name := range configured {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		items, err := r.items(configured[name])
		if err != nil {
			return nil, fmt.Errorf("sidebar %q: %w", name, err)
		}
		sb.bars[name] = items

		seen := sets.New[string]()
		var order []string
		walkDocs(items, func(id string) {
			if seen.Has(id) {
				return
			}
			seen.Add(id)
			order = append(order, id)
			if _, claimed := sb.owner[id]; !claimed {
				sb.owner[id] = name
			}
		})
		sb.ordered[name] = order
		slog.Debug("Sidebar resolved", logfields.Sidebar(name), logfields.Count(len(order)))
	}
	return sb, nil
}

// Names returns the sidebar ids in sorted order.
func (s *Sidebars) Names() []string {
	names := make([]string, 0, len(s.bars))
	for n := range s.bars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Items returns the tree of a sidebar.
func (s *Sidebars) Items(name string) []*Item {
	return s.bars[name]
}

// SidebarOf returns the sidebar a doc belongs to, or "" when it is in none.
func (s *Sidebars) SidebarOf(docID string) string {
	return s.owner[docID]
}

// Apply sets each doc's sidebar and previous/next links.
func (s *Sidebars) Apply(set *docs.Set) {
	for _, d := range set.Docs {
		d.Sidebar = s.owner[d.ID]
		d.Previous, d.Next = nil, nil
		if d.Sidebar == "" {
			continue
		}
		order := s.ordered[d.Sidebar]
		for i, id := range order {
			if id != d.ID {
				continue
			}
			if i > 0 {
				if prev, ok := set.ByID(order[i-1]); ok {
					d.Previous = &docs.NavLink{Title: prev.NavTitle(), Permalink: prev.Permalink}
				}
			}
			if i+1 < len(order) {
				if next, ok := set.ByID(order[i+1]); ok {
					d.Next = &docs.NavLink{Title: next.NavTitle(), Permalink: next.Permalink}
				}
			}
			break
		}
	}
}

func walkDocs(items []*Item, fn func(id string)) {
	for _, it := range items {
		if it.DocID != "" {
			fn(it.DocID)
		}
		walkDocs(it.Items, fn)
	}
}

type resolver struct {
	set *docs.Set
	gen *generator
}

func (r *resolver) items(in []config.SidebarItem) ([]*Item, error) {
	out := make([]*Item, 0, len(in))
	for _, ci := range in {
		switch ci.Type {
		case config.SidebarDoc:
			d, ok := r.set.ByID(ci.ID)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownDoc, ci.ID)
			}
			if d.Unlisted {
				continue
			}
			label := ci.Label
			if label == "" {
				label = d.Label()
			}
			out = append(out, &Item{Type: ItemDoc, Label: label, DocID: d.ID, Href: d.Permalink})
		case config.SidebarCategory:
			children, err := r.items(ci.Items)
			if err != nil {
				return nil, err
			}
			cat := &Item{Type: ItemCategory, Label: ci.Label, Collapsed: ci.IsCollapsed(), Items: children}
			if ci.Link != "" {
				d, ok := r.set.ByID(ci.Link)
				if !ok {
					return nil, fmt.Errorf("%w: %q (category %q link)", ErrUnknownDoc, ci.Link, ci.Label)
				}
				cat.DocID, cat.Href = d.ID, d.Permalink
			}
			out = append(out, cat)
		case config.SidebarLink:
			out = append(out, &Item{Type: ItemLink, Label: ci.Label, Href: ci.Href})
		case config.SidebarAutogenerated:
			generated, err := r.gen.generate(ci.Dir)
			if err != nil {
				return nil, err
			}
			out = append(out, generated...)
		}
	}
	return out, nil
}
