package build

import (
	"errors"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/docs"
	derrors "git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/render"
	"git.home.luguber.info/inful/docsite/internal/routes"
	"git.home.luguber.info/inful/docsite/internal/sidebar"
)

// Manifest derives the route manifest from the sources without rendering.
func Manifest(cfg *config.Config) (*routes.Manifest, error) {
	set, err := discover(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := resolveSidebars(cfg, set); err != nil {
		return nil, err
	}
	return buildManifest(cfg, set)
}

func discover(cfg *config.Config) (*docs.Set, error) {
	set, err := docs.NewDiscovery(cfg).Discover()
	if err != nil {
		return nil, derrors.DocsError("discover documents").WithCause(err).
			WithContext("docs_dir", cfg.DocsDir()).UserAction().Build()
	}
	return set, nil
}

// resolveSidebars resolves the configured sidebars and assigns docs to them.
func resolveSidebars(cfg *config.Config, set *docs.Set) (*sidebar.Sidebars, error) {
	sb, err := sidebar.Resolve(cfg.Sidebars, set, cfg.DocsDir())
	if errors.Is(err, sidebar.ErrUnknownDoc) {
		return nil, derrors.ConfigError("invalid sidebar").WithCause(err).UserAction().Build()
	}
	if err != nil {
		return nil, derrors.DocsError("resolve sidebars").WithCause(err).Build()
	}
	sb.Apply(set)
	return sb, nil
}

func buildManifest(cfg *config.Config, set *docs.Set) (*routes.Manifest, error) {
	m, err := routes.Build(cfg, set)
	if err != nil {
		return nil, derrors.RoutesError("build route manifest").WithCause(err).Build()
	}
	if err := checkAssets(cfg, set, m); err != nil {
		return nil, err
	}
	return m, nil
}

// checkAssets fails when a copied asset would replace a generated file.
func checkAssets(cfg *config.Config, set *docs.Set, m *routes.Manifest) error {
	generated := render.GeneratedFiles(m)
	for _, a := range set.Assets {
		file := render.AssetFile(cfg.BaseURL, a)
		if owner, taken := generated[file]; taken {
			return derrors.DocsError("asset would overwrite a generated file").
				WithContext("asset", a.Source).
				WithContext("file", file).
				WithContext("generated_by", owner).
				UserAction().Build()
		}
	}
	return nil
}
