package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/docsite/internal/linkcheck"
	"git.home.luguber.info/inful/docsite/internal/render"
	"git.home.luguber.info/inful/docsite/internal/routes"
)

// Service is the interface commands use to run builds.
type Service interface {
	Run(ctx context.Context, opts Options) (*Report, error)
}

// Options modifies a single build.
type Options struct {
	// SkipIfUnchanged skips rendering when history shows an identical build whose output is intact.
	SkipIfUnchanged bool
	// SkipLinkCheck disables the link check stage.
	SkipLinkCheck bool
}

// Status represents the outcome of a build.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusWarning  Status = "warning" // Built, with broken links reported under non-failing policies
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
	StatusCanceled Status = "canceled"
)

// IsSuccess reports whether the output directory holds a usable site.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusWarning || s == StatusSkipped
}

// Stage names.
const (
	StageDiscover  = "discover"
	StageSidebars  = "sidebars"
	StageGitInfo   = "gitinfo"
	StageInputHash = "input_hash"
	StageManifest  = "manifest"
	StageRender    = "render"
	StageLinkCheck = "linkcheck"
	StageHash      = "hash"
)

// StageTiming records how long a stage took.
type StageTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Report is the result of one build.
type Report struct {
	BuildID     string        `json:"buildId"`
	StartedAt   time.Time     `json:"startedAt"`
	Docs        int           `json:"docs"`
	Routes      int           `json:"routes"`
	Files       int           `json:"files"`
	BrokenLinks int           `json:"brokenLinks"`
	InputHash   string        `json:"inputHash"`
	OutputHash  string        `json:"outputHash"`
	Duration    time.Duration `json:"duration"`
	Outcome     Status        `json:"outcome"`
	SkipReason  string        `json:"skipReason,omitempty"`
	Stages      []StageTiming `json:"stages"`
	Error       string        `json:"error,omitempty"`

	// Unchanged is set when history holds a previous build of the same input:
	// true when its output hash matched this build.
	Unchanged *bool `json:"unchanged,omitempty"`

	Findings            []linkcheck.Finding `json:"findings,omitempty"`
	BrokenMarkdownLinks []render.BrokenLink `json:"-"`
	Table               *routes.Table       `json:"-"`
}
