// Package logfields holds the canonical slog attribute keys used across docsite.
package logfields

import "log/slog"

const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyDocID      = "doc_id"
	KeyRoute      = "route"
	KeyComponent  = "component"
	KeySidebar    = "sidebar"
	KeyCount      = "count"
	KeyURL        = "url"
	KeyError      = "error"
	KeyRequestID  = "request_id"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyOutputHash = "output_hash"
)

func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func DocID(id string) slog.Attr       { return slog.String(KeyDocID, id) }
func Route(p string) slog.Attr        { return slog.String(KeyRoute, p) }
func Component(ref string) slog.Attr  { return slog.String(KeyComponent, ref) }
func Sidebar(name string) slog.Attr   { return slog.String(KeySidebar, name) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
