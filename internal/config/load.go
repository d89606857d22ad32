package config

import (
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

// DefaultFile is the configuration file name looked up when --config is not given.
const DefaultFile = "docsite.yaml"

// Load reads, normalizes, defaults and validates a configuration file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles(filepath.Dir(configPath))

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").WithContext("path", configPath).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").WithContext("path", configPath).Build()
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse config file").
			WithSeverity(errors.SeverityFatal).
			WithContext("path", configPath).
			Build()
	}

	root, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "resolve config directory").Build()
	}
	cfg.Root = root

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into a Config without normalizing it. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

// FromStruct runs the normalize, default and validate passes over an in-memory config.
// root is used to resolve relative paths; empty means the working directory.
func FromStruct(cfg *Config, root string) error {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "resolve working directory").Build()
		}
		root = wd
	}
	cfg.Root = root
	return finish(cfg)
}

func finish(cfg *Config) error {
	res, err := Normalize(cfg)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "normalize configuration").Fatal().Build()
	}
	for _, w := range res.Warnings {
		slog.Warn("config normalization", "warning", w)
	}
	ApplyDefaults(cfg)

	if len(cfg.Sidebars) == 0 && cfg.SidebarsFile != "" {
		sidebars, err := LoadSidebars(cfg.ResolvePath(cfg.SidebarsFile))
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "load sidebars").Fatal().Build()
		}
		cfg.Sidebars = sidebars
	}

	if err := Validate(cfg); err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "configuration validation failed").Fatal().UserAction().Build()
	}
	return nil
}

// loadEnvFiles loads .env and .env.local next to the config file, without overriding
// variables already present in the process environment.
func loadEnvFiles(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load environment file", "path", path, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", path)
	}
}
