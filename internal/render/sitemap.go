package render

import (
	"encoding/xml"
	"sort"
	"time"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/routes"
)

// SitemapFile is the sitemap path relative to the output directory.
const SitemapFile = "sitemap.xml"

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// buildSitemap lists the home page, pages and listed docs. Unlisted docs and the catch-all are left out.
func buildSitemap(cfg *config.Config, site Site) ([]byte, error) {
	unlisted := map[string]bool{}
	lastMod := map[string]string{}
	for _, d := range site.Docs.Docs {
		if d.Unlisted {
			unlisted[d.Permalink] = true
		}
		if d.LastUpdatedAt > 0 {
			lastMod[d.Permalink] = time.Unix(d.LastUpdatedAt, 0).UTC().Format("2006-01-02")
		}
	}

	set := urlset{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, c := range site.Manifest.Components {
		switch c.Kind {
		case routes.KindHome, routes.KindPage, routes.KindDoc:
		default:
			continue
		}
		if unlisted[c.Permalink] {
			continue
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        cfg.SiteURL(c.Permalink),
			LastMod:    lastMod[c.Permalink],
			ChangeFreq: "weekly",
			Priority:   "0.5",
		})
	}
	sort.Slice(set.URLs, func(i, j int) bool { return set.URLs[i].Loc < set.URLs[j].Loc })

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
