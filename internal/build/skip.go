package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docsite/internal/history"
	"git.home.luguber.info/inful/docsite/internal/routes"
)

// Skip reasons.
const (
	SkipReasonUnchanged = "no_changes"
)

// skipRule returns a non-empty reason to veto skipping a build.
type skipRule func(ctx context.Context, s *skipState) string

type skipState struct {
	outDir    string
	inputHash string
	store     history.Store

	previous   history.Record
	outputHash string
}

// skipEvaluator runs rules in order and stops at the first veto.
type skipEvaluator struct {
	rules []skipRule
}

func newSkipEvaluator() *skipEvaluator {
	return &skipEvaluator{rules: []skipRule{
		ruleManifestPresent,
		rulePreviousBuild,
		ruleOutputIntact,
	}}
}

// evaluate reports whether the build can be skipped, with the reason when it cannot.
func (e *skipEvaluator) evaluate(ctx context.Context, st *skipState) (bool, string) {
	for _, rule := range e.rules {
		if reason := rule(ctx, st); reason != "" {
			return false, reason
		}
	}
	return true, SkipReasonUnchanged
}

func ruleManifestPresent(_ context.Context, s *skipState) string {
	if _, err := os.Stat(filepath.Join(s.outDir, routes.ManifestFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "output_missing"
		}
		return "output_unreadable"
	}
	return ""
}

func rulePreviousBuild(ctx context.Context, s *skipState) string {
	if s.store == nil {
		return "no_history"
	}
	rec, ok, err := s.store.LastWithInput(ctx, s.inputHash)
	if err != nil {
		return "history_error"
	}
	if !ok || !Status(rec.Outcome).IsSuccess() {
		return "input_changed"
	}
	s.previous = rec
	return ""
}

func ruleOutputIntact(_ context.Context, s *skipState) string {
	sum, err := OutputHash(s.outDir)
	if err != nil {
		return "output_unreadable"
	}
	if sum != s.previous.OutputHash {
		return "output_modified"
	}
	s.outputHash = sum
	return ""
}
