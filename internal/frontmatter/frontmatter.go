// Package frontmatter splits YAML front matter from Markdown documents and
// decodes the fields the site builder understands.
package frontmatter

import (
	"bytes"
	"errors"
)

// ErrMissingClosingDelimiter indicates the document opened a front matter block but never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// Split separates `---` delimited YAML front matter from the Markdown body.
// When the document has no front matter, had is false and body is the full input.
func Split(content []byte) (fm []byte, body []byte, had bool, err error) {
	nl := newline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}
	rest := content[len(open):]

	// Empty block: the closing delimiter follows immediately.
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], true, nil
	}
	if bytes.Equal(bytes.TrimRight(rest, "\r\n"), []byte("---")) {
		return []byte{}, nil, true, nil
	}

	closing := []byte(nl + "---")
	for off := 0; ; {
		idx := bytes.Index(rest[off:], closing)
		if idx < 0 {
			return nil, nil, false, ErrMissingClosingDelimiter
		}
		end := off + idx
		after := rest[end+len(closing):]
		switch {
		case len(after) == 0:
			return rest[:end+len(nl)], []byte{}, true, nil
		case bytes.HasPrefix(after, []byte(nl)):
			return rest[:end+len(nl)], after[len(nl):], true, nil
		}
		// "---" followed by more text on the same line is content, keep scanning.
		off = end + len(closing)
	}
}

func newline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
