package frontmatter

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Fields is the typed view of the front matter keys that drive routing and navigation.
type Fields struct {
	ID                  string   `yaml:"id"`
	Title               string   `yaml:"title"`
	Description         string   `yaml:"description"`
	Slug                string   `yaml:"slug"`
	SidebarLabel        string   `yaml:"sidebar_label"`
	SidebarPosition     *float64 `yaml:"sidebar_position"`
	PaginationLabel     string   `yaml:"pagination_label"`
	Draft               bool     `yaml:"draft"`
	Unlisted            bool     `yaml:"unlisted"`
	Tags                []string `yaml:"tags"`
	Keywords            []string `yaml:"keywords"`
	HideTitle           bool     `yaml:"hide_title"`
	HideTableOfContents bool     `yaml:"hide_table_of_contents"`
	CustomEditURL       *string  `yaml:"custom_edit_url"`
}

// Document is a parsed Markdown source.
type Document struct {
	Fields Fields
	Raw    map[string]any
	Body   []byte
	HadFM  bool
}

// Parse splits and decodes a document. Unknown keys are kept in Raw only.
func Parse(content []byte) (*Document, error) {
	fm, body, had, err := Split(content)
	if err != nil {
		return nil, err
	}
	doc := &Document{Body: body, HadFM: had, Raw: map[string]any{}}
	if len(fm) == 0 {
		return doc, nil
	}
	if err := yaml.Unmarshal(fm, &doc.Raw); err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}
	if doc.Raw == nil {
		doc.Raw = map[string]any{}
	}
	if err := yaml.Unmarshal(fm, &doc.Fields); err != nil {
		return nil, fmt.Errorf("decode front matter fields: %w", err)
	}
	return doc, nil
}
