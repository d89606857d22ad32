package config

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func init() {
	validation.ErrorTag = "yaml"
}

var policyRule = validation.In(PolicyIgnore, PolicyLog, PolicyWarn, PolicyThrow)

// Validate checks a normalized, defaulted configuration.
func Validate(cfg *Config) error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.Title, validation.Required),
		validation.Field(&cfg.URL, validation.Required, is.RequestURL),
		validation.Field(&cfg.BaseURL, validation.Required, validation.By(slashWrapped)),
		validation.Field(&cfg.Docs),
		validation.Field(&cfg.Links),
		validation.Field(&cfg.Output),
		validation.Field(&cfg.Server),
		validation.Field(&cfg.Metrics),
		validation.Field(&cfg.Events),
		validation.Field(&cfg.Sidebars, validation.By(validSidebars)),
	)
}

func (d DocsConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Path, validation.Required),
		validation.Field(&d.RouteBasePath, validation.By(noSlashEdges)),
		validation.Field(&d.EditURL, is.URL),
	)
}

func (l LinksConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.OnBrokenLinks, validation.Required, policyRule),
		validation.Field(&l.OnBrokenMarkdownLinks, validation.Required, policyRule),
		validation.Field(&l.OnBrokenAnchors, validation.Required, policyRule),
	)
}

func (o OutputConfig) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Directory, validation.Required, validation.NotIn(".", "/")),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Host, validation.Required),
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

func (m MetricsConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Path, validation.When(m.Enabled, validation.Required, validation.By(leadingSlash))),
	)
}

func (e EventsConfig) Validate() error {
	enabled := e.NATSURL != ""
	return validation.ValidateStruct(&e,
		validation.Field(&e.NATSURL, validation.When(enabled, validation.By(natsURL))),
		validation.Field(&e.Subject, validation.When(enabled, validation.Required, validation.By(noWildcards))),
	)
}

func natsURL(value any) error {
	s, _ := value.(string)
	for _, server := range strings.Split(s, ",") {
		if !strings.Contains(strings.TrimSpace(server), "://") {
			return validation.NewError("validation_nats_url", "must be a nats:// URL or a comma-separated list of them")
		}
	}
	return nil
}

func noWildcards(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, "*> ") {
		return validation.NewError("validation_subject", "must not contain wildcards or spaces")
	}
	return nil
}

func slashWrapped(value any) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "/") || !strings.HasSuffix(s, "/") {
		return validation.NewError("validation_base_url", "must start and end with /")
	}
	return nil
}

func leadingSlash(value any) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "/") {
		return validation.NewError("validation_leading_slash", "must start with /")
	}
	return nil
}

func noSlashEdges(value any) error {
	s, _ := value.(string)
	if strings.HasPrefix(s, "/") || strings.HasSuffix(s, "/") {
		return validation.NewError("validation_route_base_path", "must not start or end with /")
	}
	return nil
}

func validSidebars(value any) error {
	sidebars, _ := value.(map[string][]SidebarItem)
	for name, items := range sidebars {
		if strings.TrimSpace(name) == "" {
			return validation.NewError("validation_sidebar_name", "sidebar ids must not be empty")
		}
		if err := validateSidebarItems(items, name); err != nil {
			return err
		}
	}
	return nil
}

func validateSidebarItems(items []SidebarItem, where string) error {
	for i, item := range items {
		at := fmt.Sprintf("%s[%d]", where, i)
		switch item.Type {
		case SidebarDoc:
			if item.ID == "" {
				return validation.NewError("validation_sidebar_doc", at+": doc item needs an id")
			}
		case SidebarCategory:
			if item.Label == "" {
				return validation.NewError("validation_sidebar_category", at+": category needs a label")
			}
			if err := validateSidebarItems(item.Items, at); err != nil {
				return err
			}
		case SidebarLink:
			if item.Label == "" || item.Href == "" {
				return validation.NewError("validation_sidebar_link", at+": link needs a label and href")
			}
		}
	}
	return nil
}
