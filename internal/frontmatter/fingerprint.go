package frontmatter

import (
	"strings"

	"github.com/inful/mdfp"
)

// Fingerprint hashes a document's canonical front matter together with its body.
// The fingerprint field itself is excluded so a stored fingerprint does not change the result.
func Fingerprint(raw map[string]any, body []byte) (string, error) {
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == mdfp.FingerprintField {
			continue
		}
		fields[k] = v
	}
	canonical, err := Canonical(fields)
	if err != nil {
		return "", err
	}
	return mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(string(canonical), "\n"), string(body)), nil
}
