package config

// Default returns a configuration with every default applied and no content settings.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields. It runs after Normalize.
func ApplyDefaults(cfg *Config) {
	if cfg.Title == "" {
		cfg.Title = "Documentation"
	}
	if cfg.URL == "" {
		cfg.URL = "http://localhost"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "/"
	}

	if cfg.Docs.Path == "" {
		cfg.Docs.Path = "docs"
	}
	if !cfg.Docs.routeBasePathSet && cfg.Docs.RouteBasePath == "" {
		cfg.Docs.RouteBasePath = "docs"
	}
	if cfg.Pages.Path == "" {
		cfg.Pages.Path = "pages"
	}
	if cfg.Navbar.Title == "" {
		cfg.Navbar.Title = cfg.Title
	}

	if cfg.Links.OnBrokenLinks == "" {
		cfg.Links.OnBrokenLinks = PolicyThrow
	}
	if cfg.Links.OnBrokenMarkdownLinks == "" {
		cfg.Links.OnBrokenMarkdownLinks = PolicyWarn
	}
	if cfg.Links.OnBrokenAnchors == "" {
		cfg.Links.OnBrokenAnchors = PolicyWarn
	}

	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "build"
	}
	if !cfg.Output.cleanSet {
		cfg.Output.Clean = true
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = ".docsite/history.db"
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = "docsite.builds"
	}
}
