package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ManifestFile is the name of the serialized manifest in the output directory.
const ManifestFile = "routes.json"

// ErrInvalidManifest wraps every structural problem found by Validate.
var ErrInvalidManifest = errors.New("invalid route manifest")

// Manifest is the complete static route table of a site.
type Manifest struct {
	BaseURL       string               `json:"baseUrl"`
	TrailingSlash bool                 `json:"trailingSlash"`
	Routes        []*Entry             `json:"routes"`
	Components    map[string]Component `json:"components"`
}

// Validate checks the structural invariants of the route tree:
// sibling paths are unique, leaves are exact, child paths lie under their parent,
// a single catch-all comes last, and every component ref is registered.
func (m *Manifest) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(m.Routes) == 0 {
		fail("no routes")
	}
	catchAlls := 0
	for i, e := range m.Routes {
		if e.Path != CatchAll {
			continue
		}
		catchAlls++
		if i != len(m.Routes)-1 {
			fail("catch-all entry must be the last top-level route")
		}
		if !e.IsLeaf() {
			fail("catch-all entry must not have child routes")
		}
		if c, ok := m.Components[e.Component]; ok && c.Kind != KindNotFound {
			fail("catch-all component %s has kind %s", e.Component, c.Kind)
		}
	}
	if catchAlls != 1 {
		fail("expected exactly one catch-all entry, found %d", catchAlls)
	}

	m.validateLevel(m.Routes, "", fail)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidManifest, errors.Join(errs...))
}

func (m *Manifest) validateLevel(entries []*Entry, parent string, fail func(string, ...any)) {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e == nil {
			fail("nil route entry under %q", parent)
			continue
		}
		key := e.Path
		if key != CatchAll {
			key = trimTrailingSlash(e.Path)
			if !strings.HasPrefix(e.Path, "/") {
				fail("route path %q must be absolute", e.Path)
			}
			if parent != "" && !hasPathPrefix(key, parent) {
				fail("route %q is not under its parent %q", e.Path, parent)
			}
		}
		if _, dup := seen[key]; dup {
			fail("duplicate route path %q", e.Path)
		}
		seen[key] = struct{}{}

		c, ok := m.Components[e.Component]
		switch {
		case e.Component == "":
			fail("route %q has no component", e.Path)
		case !ok:
			fail("route %q references unregistered component %q", e.Path, e.Component)
		case e.IsLeaf() && c.File == "":
			fail("leaf route %q component %q has no output file", e.Path, e.Component)
		}

		if e.IsLeaf() {
			if !e.Exact && e.Path != CatchAll {
				fail("leaf route %q must be exact", e.Path)
			}
			continue
		}
		m.validateLevel(e.Routes, trimTrailingSlash(e.Path), fail)
	}
}

// Marshal encodes the manifest as indented JSON with a trailing newline.
// Component keys are sorted by encoding/json, so equal manifests encode identically.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes and validates a manifest.
func Unmarshal(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode route manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadFile loads a manifest written by a previous build.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
