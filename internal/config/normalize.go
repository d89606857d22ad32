package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// NormalizationResult carries non-fatal notes about values that were rewritten.
type NormalizationResult struct {
	Warnings []string
}

func (r *NormalizationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Normalize canonicalizes enumerations and URL shapes in place. Unknown policy values are errors.
func Normalize(cfg *Config) (*NormalizationResult, error) {
	res := &NormalizationResult{}

	if env := os.Getenv("DOCSITE_LOG_LEVEL"); env != "" {
		cfg.Logging.Level = LogLevel(env)
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))

	policies := []*BrokenLinkPolicy{&cfg.Links.OnBrokenLinks, &cfg.Links.OnBrokenMarkdownLinks, &cfg.Links.OnBrokenAnchors}
	for _, p := range policies {
		if *p == "" {
			continue
		}
		v, err := ParseBrokenLinkPolicy(string(*p))
		if err != nil {
			return nil, err
		}
		*p = v
	}

	if cfg.BaseURL != "" {
		normalized := "/" + strings.Trim(cfg.BaseURL, "/") + "/"
		if normalized == "//" {
			normalized = "/"
		}
		if normalized != cfg.BaseURL {
			res.warnf("normalized base_url from %q to %q", cfg.BaseURL, normalized)
			cfg.BaseURL = normalized
		}
	}
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if trimmed := strings.Trim(cfg.Docs.RouteBasePath, "/"); trimmed != cfg.Docs.RouteBasePath {
		res.warnf("normalized docs.route_base_path from %q to %q", cfg.Docs.RouteBasePath, trimmed)
		cfg.Docs.RouteBasePath = trimmed
	}
	cfg.Metrics.Path = strings.TrimSpace(cfg.Metrics.Path)
	return res, nil
}

// UnmarshalYAML records whether route_base_path was given so "" can mean docs-only mode.
func (d *DocsConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain DocsConfig
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = DocsConfig(p)
	d.routeBasePathSet = hasKey(node, "route_base_path")
	return nil
}

// UnmarshalYAML records whether clean was given; it defaults to true.
func (o *OutputConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain OutputConfig
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*o = OutputConfig(p)
	o.cleanSet = hasKey(node, "clean")
	return nil
}

func hasKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
