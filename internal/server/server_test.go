package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/docs"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/render"
	"git.home.luguber.info/inful/docsite/internal/routes"
	"git.home.luguber.info/inful/docsite/internal/sidebar"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

// builtSite renders a small site and returns its config.
func builtSite(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "docs/intro.md", "---\ntitle: Introduction\n---\nCronAI runs prompts.\n")
	writeFile(t, root, "docs/architecture.md", "# Architecture\n\n## Overview\n\nComponents.\n")

	cfg := &config.Config{Title: "CronAI", URL: "https://rshade.github.io", BaseURL: "/cronai/"}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, config.FromStruct(cfg, root))

	set, err := docs.NewDiscovery(cfg).Discover()
	require.NoError(t, err)
	sb, err := sidebar.Resolve(nil, set, cfg.DocsDir())
	require.NoError(t, err)
	sb.Apply(set)
	m, err := routes.Build(cfg, set)
	require.NoError(t, err)
	r, err := render.New(cfg)
	require.NoError(t, err)
	_, err = r.Render(context.Background(), render.Site{Docs: set, Sidebars: sb, Manifest: m})
	require.NoError(t, err)
	return cfg
}

func newLoadedServer(t *testing.T, cfg *config.Config, opts Options) *Server {
	t.Helper()
	s := New(cfg, opts)
	require.NoError(t, s.Reload())
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServeRoutedPages(t *testing.T) {
	s := newLoadedServer(t, builtSite(t, nil), Options{})
	h := s.Handler()

	rec := get(t, h, "/cronai/docs/architecture")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<h1")
	require.Contains(t, rec.Body.String(), "Architecture")

	rec = get(t, h, "/cronai/docs/architecture/?tab=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Architecture")

	rec = get(t, h, "/cronai/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestEveryRouteResolvesToItsComponentFile(t *testing.T) {
	cfg := builtSite(t, nil)
	s := newLoadedServer(t, cfg, Options{})

	for _, e := range s.Table().Entries() {
		if e.Path == routes.CatchAll {
			continue
		}
		rec := get(t, s.Handler(), e.Path)
		require.Equal(t, http.StatusOK, rec.Code, e.Path)
		want, err := os.ReadFile(filepath.Join(cfg.OutputDir(), filepath.FromSlash(s.Table().Manifest().Components[e.Component].File)))
		require.NoError(t, err)
		require.Equal(t, string(want), rec.Body.String(), e.Path)
	}
}

func TestUnknownPathsRenderNotFound(t *testing.T) {
	s := newLoadedServer(t, builtSite(t, nil), Options{})

	for _, p := range []string{"/cronai/docs/missing", "/cronai/nope/deeper/", "/elsewhere", "/cronai/../docsite.yaml"} {
		rec := get(t, s.Handler(), p)
		require.Equal(t, http.StatusNotFound, rec.Code, p)
		require.Contains(t, rec.Body.String(), "Page Not Found", p)
	}
}

func TestNotFoundFallsBackToBuiltinPage(t *testing.T) {
	cfg := builtSite(t, nil)
	s := newLoadedServer(t, cfg, Options{})
	require.NoError(t, os.Remove(filepath.Join(cfg.OutputDir(), routes.NotFoundFile)))

	rec := get(t, s.Handler(), "/cronai/gone")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Page Not Found")
}

func TestServesStaticAssets(t *testing.T) {
	s := newLoadedServer(t, builtSite(t, nil), Options{})

	rec := get(t, s.Handler(), "/cronai/"+render.CSSFile)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/css")

	rec = get(t, s.Handler(), "/cronai/"+render.SitemapFile)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<urlset")
}

func TestRootRedirectsToBaseURL(t *testing.T) {
	s := newLoadedServer(t, builtSite(t, nil), Options{})

	for _, p := range []string{"/", "/cronai"} {
		rec := get(t, s.Handler(), p)
		require.Equal(t, http.StatusFound, rec.Code, p)
		require.Equal(t, "/cronai/", rec.Header().Get("Location"), p)
	}
}

func TestNotReadyBeforeFirstLoad(t *testing.T) {
	s := New(builtSite(t, nil), Options{})

	rec := get(t, s.Handler(), "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = get(t, s.Handler(), "/cronai/docs/intro")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = get(t, s.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, s.Reload())
	rec = get(t, s.Handler(), "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReloadFailsWithoutManifest(t *testing.T) {
	cfg := &config.Config{Title: "CronAI", URL: "https://rshade.github.io", BaseURL: "/cronai/"}
	require.NoError(t, config.FromStruct(cfg, t.TempDir()))
	require.Error(t, New(cfg, Options{}).Reload())
}

func TestRoutesEndpoint(t *testing.T) {
	s := newLoadedServer(t, builtSite(t, nil), Options{})

	rec := get(t, s.Handler(), "/_routes")
	require.Equal(t, http.StatusOK, rec.Code)
	m, err := routes.Unmarshal(rec.Body.Bytes())
	require.NoError(t, err)
	require.Equal(t, "/cronai/", m.BaseURL)
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := builtSite(t, func(c *config.Config) { c.Metrics.Enabled = true })
	reg := prom.NewRegistry()
	s := newLoadedServer(t, cfg, Options{Registry: reg, Recorder: metrics.NewPrometheusRecorder(reg)})

	get(t, s.Handler(), "/cronai/docs/intro")
	get(t, s.Handler(), "/cronai/missing")

	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `docsite_http_requests_total{kind="route",status="200"} 1`)
	require.Contains(t, rec.Body.String(), `docsite_http_requests_total{kind="not-found",status="404"} 1`)
}

func TestLiveReloadInjection(t *testing.T) {
	s := newLoadedServer(t, builtSite(t, nil), Options{LiveReload: NewLiveReloadHub()})

	rec := get(t, s.Handler(), "/cronai/docs/intro")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, scriptTag+"</body>")
	require.Empty(t, rec.Header().Get("Content-Length"))

	rec = get(t, s.Handler(), "/cronai/missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), scriptTag)

	rec = get(t, s.Handler(), "/cronai/"+render.CSSFile)
	require.NotContains(t, rec.Body.String(), scriptTag)

	rec = get(t, s.Handler(), "/livereload.js")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "EventSource('/livereload')")
}

func TestLiveReloadDisabledByDefault(t *testing.T) {
	s := newLoadedServer(t, builtSite(t, nil), Options{})
	rec := get(t, s.Handler(), "/cronai/docs/intro")
	require.NotContains(t, rec.Body.String(), scriptTag)
	rec = get(t, s.Handler(), "/livereload.js")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPanicsAreRecovered(t *testing.T) {
	s := newLoadedServer(t, builtSite(t, nil), Options{})
	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := get(t, s.Handler(), "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "internal", payload["code"])
}

func TestLiveReloadBroadcast(t *testing.T) {
	hub := NewLiveReloadHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Broadcast("abc123")

	var data string
	for data == "" {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
	require.JSONEq(t, `{"hash":"abc123"}`, data)
}

func TestLiveReloadHubIgnoresRepeatsAndErrors(t *testing.T) {
	hub := NewLiveReloadHub()
	hub.Broadcast("h1")
	hub.Broadcast(ErrorHashPrefix + "b1")
	require.Equal(t, "h1", hub.lastHash)
	hub.Shutdown()
	hub.Broadcast("h2")
	require.Equal(t, "h1", hub.lastHash)

	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livereload", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartAndStop(t *testing.T) {
	cfg := builtSite(t, nil)
	cfg.Server.Port = 0
	s := newLoadedServer(t, cfg, Options{})
	require.NoError(t, s.Start(context.Background()))

	resp, err := http.Get("http://" + s.Addr() + "/cronai/docs/intro")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
