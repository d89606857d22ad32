package build

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/version"
)

// OutputHash digests every file below dir: relative path and content, in lexical order.
func OutputHash(dir string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		sum, err := fileDigest(p)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(h, "%s\x00%s\n", filepath.ToSlash(rel), sum)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("hash output directory: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileDigest(p string) (string, error) {
	f, err := os.Open(p) // #nosec G304 -- p comes from walking the output directory
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

// configDigest serializes the parts of cfg that shape the rendered output.
func configDigest(cfg *config.Config) ([]byte, error) {
	c := *cfg
	c.Server = config.ServerConfig{}
	c.Logging = config.LoggingConfig{}
	c.Metrics = config.MetricsConfig{}
	c.History = config.HistoryConfig{}
	c.Events = config.EventsConfig{}
	c.SidebarsFile = ""
	data, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("encode configuration: %w", err)
	}
	return append([]byte(version.Version+"\n"), data...), nil
}
