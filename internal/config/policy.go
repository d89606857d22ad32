package config

import (
	"log/slog"

	"git.home.luguber.info/inful/docsite/internal/foundation/normalization"
)

// BrokenLinkPolicy decides what happens when a link or anchor does not resolve.
type BrokenLinkPolicy string

const (
	PolicyIgnore BrokenLinkPolicy = "ignore"
	PolicyLog    BrokenLinkPolicy = "log"
	PolicyWarn   BrokenLinkPolicy = "warn"
	PolicyThrow  BrokenLinkPolicy = "throw"
)

var policyNormalizer = normalization.NewNormalizer("broken link policy", map[string]BrokenLinkPolicy{
	"ignore": PolicyIgnore,
	"log":    PolicyLog,
	"warn":   PolicyWarn,
	"throw":  PolicyThrow,
}, PolicyWarn)

// ParseBrokenLinkPolicy parses a policy; empty input yields warn.
func ParseBrokenLinkPolicy(raw string) (BrokenLinkPolicy, error) {
	return policyNormalizer.Parse(raw)
}

// Fails reports whether the policy aborts the build.
func (p BrokenLinkPolicy) Fails() bool { return p == PolicyThrow }

// Report logs a broken link finding at the level the policy implies.
// ignore drops it, log uses info, warn uses warn and throw uses error.
func (p BrokenLinkPolicy) Report(msg string, args ...any) {
	switch p {
	case PolicyIgnore:
	case PolicyLog:
		slog.Info(msg, args...)
	case PolicyThrow:
		slog.Error(msg, args...)
	default:
		slog.Warn(msg, args...)
	}
}
