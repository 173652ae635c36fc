package rema

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a parsed semantic version. Build metadata is carried along but
// never takes part in ordering.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
	Pre   string // pre-release identifier without the leading "-", e.g. "beta.3"
	Build string // build metadata without the leading "+"
}

// ParseVersion parses a strict MAJOR.MINOR.PATCH[-PRE][+BUILD] string.
// A leading "v" is not accepted here; callers strip it first.
func ParseVersion(s string) (Version, error) {
	var v Version
	if s == "" {
		return v, fmt.Errorf("empty version")
	}
	// x/mod/semver accepts shorthands like "v1.2"; the explicit triple check
	// below rejects those.
	if !semver.IsValid("v" + s) {
		return v, fmt.Errorf("invalid semantic version %q", s)
	}

	rest := s
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		v.Build = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		v.Pre = rest[i+1:]
		rest = rest[:i]
	}
	numParts := strings.Split(rest, ".")
	if len(numParts) != 3 {
		return Version{}, fmt.Errorf("unexpected version format: %s", s)
	}

	var err error
	if v.Major, err = strconv.ParseUint(numParts[0], 10, 64); err != nil {
		return Version{}, err
	}
	if v.Minor, err = strconv.ParseUint(numParts[1], 10, 64); err != nil {
		return Version{}, err
	}
	if v.Patch, err = strconv.ParseUint(numParts[2], 10, 64); err != nil {
		return Version{}, err
	}
	return v, nil
}

// MustParseVersion is like ParseVersion but panics on error. Meant for
// constants and tests.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String formats the version without a "v" prefix.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// canonical returns the form understood by x/mod/semver.
func (v Version) canonical() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	return s
}

// Compare returns -1, 0 or +1 following semver precedence. A pre-release
// sorts below the final release of the same triple.
func (v Version) Compare(o Version) int {
	return semver.Compare(v.canonical(), o.canonical())
}

// Less reports whether v has lower precedence than o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// IsPrerelease reports whether v carries a pre-release identifier.
func (v Version) IsPrerelease() bool {
	return v.Pre != ""
}

// SameTriple reports whether v and o share major, minor and patch.
func (v Version) SameTriple(o Version) bool {
	return v.Major == o.Major && v.Minor == o.Minor && v.Patch == o.Patch
}

// SameIdentity reports whether v and o share the (major, minor, patch, pre)
// tuple, the identity used for de-duplication within a package.
func (v Version) SameIdentity(o Version) bool {
	return v.SameTriple(o) && v.Pre == o.Pre
}
