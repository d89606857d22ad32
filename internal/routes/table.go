package routes

import (
	"strings"
)

// Match is the result of a lookup.
type Match struct {
	Chain     []*Entry  // Layout entries from the top level down to Entry
	Entry     *Entry    // Matched leaf, or the catch-all
	Ref       string    // Component ref of Entry
	Component Component // Registered component of Entry
	NotFound  bool      // True when no documented route matched
}

// Table answers path lookups against an immutable manifest.
type Table struct {
	manifest *Manifest
	catchAll *Entry
	leaves   []*Entry
}

// NewTable validates m and wraps it for lookups.
func NewTable(m *Manifest) (*Table, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	t := &Table{manifest: m}
	for _, e := range m.Routes {
		if e.Path == CatchAll {
			t.catchAll = e
		}
	}
	collectLeaves(m.Routes, &t.leaves)
	return t, nil
}

// Manifest returns the manifest the table was built from.
func (t *Table) Manifest() *Manifest { return t.manifest }

// Entries returns every leaf entry in tree order, the catch-all last.
func (t *Table) Entries() []*Entry {
	out := make([]*Entry, len(t.leaves))
	copy(out, t.leaves)
	return out
}

// Lookup resolves a decoded request path such as url.URL.Path; callers strip
// the query and fragment. A trailing slash matches the same entry as the path
// without it. Unmatched paths resolve to the catch-all entry with NotFound set.
func (t *Table) Lookup(rawPath string) Match {
	p := normalizeLookupPath(rawPath)
	for _, e := range t.manifest.Routes {
		if e == t.catchAll {
			continue
		}
		if chain := match(e, p, nil); chain != nil {
			leaf := chain[len(chain)-1]
			return Match{
				Chain:     chain[:len(chain)-1],
				Entry:     leaf,
				Ref:       leaf.Component,
				Component: t.manifest.Components[leaf.Component],
			}
		}
	}
	return Match{
		Entry:     t.catchAll,
		Ref:       t.catchAll.Component,
		Component: t.manifest.Components[t.catchAll.Component],
		NotFound:  true,
	}
}

func match(e *Entry, p string, chain []*Entry) []*Entry {
	ep := trimTrailingSlash(e.Path)
	if e.IsLeaf() || e.Exact {
		if ep == p {
			return append(chain, e)
		}
		return nil
	}
	if !hasPathPrefix(p, ep) {
		return nil
	}
	chain = append(chain, e)
	for _, child := range e.Routes {
		if found := match(child, p, chain); found != nil {
			return found
		}
	}
	return nil
}

func hasPathPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func normalizeLookupPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return trimTrailingSlash(p)
}

func trimTrailingSlash(p string) string {
	if len(p) > 1 {
		return strings.TrimRight(p, "/")
	}
	return p
}

func collectLeaves(entries []*Entry, out *[]*Entry) {
	for _, e := range entries {
		if e.IsLeaf() {
			*out = append(*out, e)
			continue
		}
		collectLeaves(e.Routes, out)
	}
}
