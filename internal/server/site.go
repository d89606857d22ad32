package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/routes"
)

const (
	kindRoute    = "route"
	kindStatic   = "static"
	kindNotFound = "not-found"
)

const fallbackNotFound = `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>Page Not Found</title></head>
<body><main><h1>Page Not Found</h1><p>We could not find what you were looking for.</p></main></body></html>
`

// serveSite resolves a request under the base URL: a routed component, then a
// static output file, then the not-found view.
func (s *Server) serveSite(w http.ResponseWriter, r *http.Request) {
	t := s.table.Load()
	if t == nil {
		s.errorAdapter.WriteErrorResponse(w, r, notBuilt())
		return
	}

	m := t.Lookup(r.URL.Path)
	if !m.NotFound && m.Component.File != "" {
		if s.serveFile(w, r, m.Component.File) {
			s.opts.Recorder.IncRequest(kindRoute, http.StatusOK)
			return
		}
		s.opts.Logger.Warn("Routed component file missing",
			logfields.Route(m.Entry.Path), logfields.File(m.Component.File))
	}

	if rel, ok := s.staticPath(r.URL.Path); ok && s.serveFile(w, r, rel) {
		s.opts.Recorder.IncRequest(kindStatic, http.StatusOK)
		return
	}

	notFound := routes.NotFoundFile
	if m.NotFound && m.Component.File != "" {
		notFound = m.Component.File
	}
	s.serveNotFound(w, r, notFound)
}

// staticPath maps a URL path to a file relative to the output directory.
func (s *Server) staticPath(urlPath string) (string, bool) {
	base := s.cfg.BaseURL
	if !strings.HasPrefix(urlPath, base) {
		return "", false
	}
	rel := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(urlPath, base)), "/")
	if rel == "" {
		return "index.html", true
	}
	return rel, true
}

// serveFile writes the output file rel with status 200. It reports false when
// rel is missing or a directory without an index.html.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, rel string) bool {
	p := filepath.Join(s.outDir, filepath.FromSlash(rel))
	f, err := os.Open(p)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return false
	}
	if info.IsDir() {
		return s.serveFile(w, r, path.Join(rel, "index.html"))
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

func (s *Server) serveNotFound(w http.ResponseWriter, r *http.Request, rel string) {
	s.opts.Recorder.IncRequest(kindNotFound, http.StatusNotFound)
	body, err := os.ReadFile(filepath.Join(s.outDir, filepath.FromSlash(rel)))
	if err != nil {
		body = []byte(fallbackNotFound)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}
