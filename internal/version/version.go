// Package version implements the semantic-version arithmetic used to turn a
// resolved bump severity into a concrete target version, and the requirement
// checks that decide whether a dependency bump breaks a dependent.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ariel-frischer/changeset/internal/changeset"
)

// ZeroPolicy controls how bumps apply to versions with major component 0.
type ZeroPolicy string

const (
	// ZeroLiteral treats 0.x exactly like >=1.x: a major bump yields 1.0.0.
	ZeroLiteral ZeroPolicy = "literal"
	// ZeroShift shifts bumps down one level while major is 0: major bumps the
	// minor component and minor bumps the patch component.
	ZeroShift ZeroPolicy = "shift"
)

// ParseZeroPolicy parses a policy name; empty yields ZeroLiteral.
func ParseZeroPolicy(s string) (ZeroPolicy, error) {
	switch ZeroPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ZeroLiteral:
		return ZeroLiteral, nil
	case ZeroShift:
		return ZeroShift, nil
	default:
		return "", fmt.Errorf("invalid zero-version policy %q (valid: literal, shift)", s)
	}
}

// Parse parses a strict semantic version such as "1.2.3".
func Parse(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return v, nil
}

// Effective returns the severity actually applied to current under policy.
func Effective(current *semver.Version, severity changeset.Severity, policy ZeroPolicy) changeset.Severity {
	if policy != ZeroShift || current.Major() != 0 {
		return severity
	}
	switch severity {
	case changeset.Major:
		return changeset.Minor
	case changeset.Minor:
		return changeset.Patch
	default:
		return severity
	}
}

// Bump returns the version that follows current for the given severity.
// Prerelease and build metadata are dropped. A None severity returns current.
func Bump(current *semver.Version, severity changeset.Severity, policy ZeroPolicy) *semver.Version {
	major, minor, patch := current.Major(), current.Minor(), current.Patch()

	switch Effective(current, severity, policy) {
	case changeset.Major:
		major, minor, patch = major+1, 0, 0
	case changeset.Minor:
		minor, patch = minor+1, 0
	case changeset.Patch:
		patch++
	default:
		return current
	}
	return semver.New(major, minor, patch, "", "")
}

// Requirement is a parsed dependency version requirement.
// The zero value (empty or "*") accepts every version.
type Requirement struct {
	raw        string
	constraint *semver.Constraints
}

// ParseRequirement parses a requirement such as "^1.0.0", "~1.2" or ">=1, <3".
func ParseRequirement(s string) (Requirement, error) {
	raw := strings.TrimSpace(s)
	if raw == "" || raw == "*" {
		return Requirement{raw: raw}, nil
	}
	c, err := semver.NewConstraint(raw)
	if err != nil {
		return Requirement{}, fmt.Errorf("invalid version requirement %q: %w", s, err)
	}
	return Requirement{raw: raw, constraint: c}, nil
}

// String returns the requirement as written.
func (r Requirement) String() string {
	return r.raw
}

// IsAny reports whether the requirement accepts every version.
func (r Requirement) IsAny() bool {
	return r.constraint == nil
}

// Satisfied reports whether v meets the requirement.
func (r Requirement) Satisfied(v *semver.Version) bool {
	if r.constraint == nil {
		return true
	}
	return r.constraint.Check(v)
}

// Rewrite returns a requirement string that accepts target, keeping the
// leading operator of a simple requirement ("^1.0.0" -> "^2.0.0"). Compound
// requirements become a caret requirement on target.
func (r Requirement) Rewrite(target *semver.Version) string {
	if r.constraint == nil {
		return r.raw
	}
	op := "^"
	if !strings.ContainsAny(r.raw, ", |") {
		trimmed := strings.TrimLeft(r.raw, "^~=>< ")
		prefix := strings.TrimSpace(r.raw[:len(r.raw)-len(trimmed)])
		switch prefix {
		case "^", "~", "=", ">=":
			op = prefix
		case "":
			op = ""
		}
	}
	return op + target.String()
}
