package docs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type hashEntry struct {
	Source      string `json:"source"`
	Permalink   string `json:"permalink,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// InputHash is a deterministic digest of all discovered content plus extra inputs
// (for example the serialized configuration). Iteration order comes from the sorted Set.
func (s *Set) InputHash(extra ...[]byte) (string, error) {
	entries := make([]hashEntry, 0, len(s.Docs)+len(s.Pages)+len(s.Assets))
	for _, d := range s.Docs {
		entries = append(entries, hashEntry{Source: d.Source, Permalink: d.Permalink, Fingerprint: d.Fingerprint})
	}
	for _, p := range s.Pages {
		entries = append(entries, hashEntry{Source: p.Source, Permalink: p.Permalink, Fingerprint: p.Fingerprint})
	}
	for _, a := range s.Assets {
		sum, err := fileSHA256(a.Path)
		if err != nil {
			return "", err
		}
		entries = append(entries, hashEntry{Source: a.Source, Permalink: a.URL, Fingerprint: sum})
	}

	h := sha256.New()
	enc := json.NewEncoder(h)
	if err := enc.Encode(entries); err != nil {
		return "", fmt.Errorf("encode content manifest: %w", err)
	}
	for _, e := range extra {
		_, _ = h.Write(e)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileSHA256(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
