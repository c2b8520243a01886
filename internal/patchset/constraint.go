package patchset

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var orSeparator = regexp.MustCompile(`\s*\|\|?\s*`)

// Satisfies reports whether version matches constraint. An empty constraint
// always matches; a version that is not semver-like (e.g. "dev-main") never
// matches a non-empty constraint.
func Satisfies(constraint, version string) (bool, error) {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" || constraint == "*" {
		return true, nil
	}

	c, err := semver.NewConstraint(orSeparator.ReplaceAllString(constraint, " || "))
	if err != nil {
		return false, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	v, err := semver.NewVersion(normalizeVersion(version))
	if err != nil {
		return false, nil
	}
	return c.Check(v), nil
}

// normalizeVersion trims Composer's four-part normalized form ("1.2.0.0")
// down to three parts so it parses as semver.
func normalizeVersion(version string) string {
	version = strings.TrimSpace(version)
	core, suffix := version, ""
	if i := strings.IndexAny(version, "-+"); i >= 0 {
		core, suffix = version[:i], version[i:]
	}
	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, ".") + suffix
}
