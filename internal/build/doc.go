// Package build runs the site build pipeline.
//
// A build moves through fixed stages: discover, sidebars, git info, input
// hashing (with optional skip evaluation), manifest, render, link check and
// output hashing. Every stage is timed into the metrics recorder and logged
// with the build ID. The resulting Report is recorded in the build history
// and published as an event when those are configured.
package build
