// Package metrics records build and serving metrics.
//
// Components receive a Recorder and default to NoopRecorder, so metrics
// collection needs no nil checks at call sites:
//
//	b := build.New(cfg) // NoopRecorder
//	b.WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// The Prometheus recorder registers its collectors on the given registry,
// which HTTPHandler then exposes for scraping.
package metrics
