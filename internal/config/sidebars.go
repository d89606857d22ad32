package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SidebarItemType enumerates sidebar entry kinds.
type SidebarItemType string

const (
	SidebarDoc           SidebarItemType = "doc"
	SidebarCategory      SidebarItemType = "category"
	SidebarLink          SidebarItemType = "link"
	SidebarAutogenerated SidebarItemType = "autogenerated"
)

// SidebarItem is one entry of a configured sidebar. A bare string is shorthand for a doc id.
type SidebarItem struct {
	Type      SidebarItemType `yaml:"type,omitempty"`
	ID        string          `yaml:"id,omitempty"`
	Label     string          `yaml:"label,omitempty"`
	Href      string          `yaml:"href,omitempty"`
	Dir       string          `yaml:"dir,omitempty"`
	Link      string          `yaml:"link,omitempty"` // Doc id used as the category's own page
	Collapsed *bool           `yaml:"collapsed,omitempty"`
	Items     []SidebarItem   `yaml:"items,omitempty"`
}

// UnmarshalYAML accepts both the scalar shorthand and the mapping form.
func (s *SidebarItem) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = SidebarItem{Type: SidebarDoc, ID: node.Value}
		return nil
	}
	type plain SidebarItem
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = SidebarItem(p)
	if s.Type == "" {
		s.Type = s.inferType()
	}
	switch s.Type {
	case SidebarDoc, SidebarCategory, SidebarLink, SidebarAutogenerated:
		return nil
	default:
		return fmt.Errorf("line %d: unknown sidebar item type %q", node.Line, s.Type)
	}
}

func (s *SidebarItem) inferType() SidebarItemType {
	switch {
	case len(s.Items) > 0:
		return SidebarCategory
	case s.Href != "":
		return SidebarLink
	case s.Dir != "":
		return SidebarAutogenerated
	default:
		return SidebarDoc
	}
}

// IsCollapsed reports the category's initial state; categories collapse unless told otherwise.
func (s SidebarItem) IsCollapsed() bool {
	return s.Collapsed == nil || *s.Collapsed
}

// LoadSidebars reads a standalone sidebars file: a mapping of sidebar id to items.
func LoadSidebars(path string) (map[string][]SidebarItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sidebars file: %w", err)
	}
	var sidebars map[string][]SidebarItem
	if err := yaml.Unmarshal(data, &sidebars); err != nil {
		return nil, fmt.Errorf("parse sidebars file %s: %w", path, err)
	}
	return sidebars, nil
}
