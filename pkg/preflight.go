package rema

import (
	"fmt"
	"regexp"

	"golang.org/x/mod/semver"
)

var toolVersionRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// ToolVersion extracts the first dotted version from the output of a
// `<tool> --version` invocation, e.g. "2.39.3" from
// "git version 2.39.3 (Apple Git-146)". A missing patch component is 0.
func ToolVersion(output string) (Version, error) {
	m := toolVersionRe.FindStringSubmatch(output)
	if m == nil {
		return Version{}, fmt.Errorf("no version found in %q", output)
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	return ParseVersion(m[1] + "." + m[2] + "." + patch)
}

// CheckToolVersion verifies that the version reported by name is within
// [min, max). Either bound may be empty to leave it open. Failures wrap
// ErrUnsupportedTool.
func CheckToolVersion(name, output, min, max string) (Version, error) {
	v, err := ToolVersion(output)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %s: %v", ErrUnsupportedTool, name, err)
	}
	if min != "" {
		lo, err := ParseVersion(min)
		if err != nil {
			return v, fmt.Errorf("invalid minimum %s version %q: %w", name, min, err)
		}
		if semver.Compare(v.canonical(), lo.canonical()) < 0 {
			return v, fmt.Errorf("%w: %s %s is older than the minimum %s", ErrUnsupportedTool, name, v, lo)
		}
	}
	if max != "" {
		hi, err := ParseVersion(max)
		if err != nil {
			return v, fmt.Errorf("invalid maximum %s version %q: %w", name, max, err)
		}
		if semver.Compare(v.canonical(), hi.canonical()) >= 0 {
			return v, fmt.Errorf("%w: %s %s is not below %s", ErrUnsupportedTool, name, v, hi)
		}
	}
	return v, nil
}
