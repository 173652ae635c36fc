package rema

import (
	"fmt"
	"strconv"
	"strings"
)

// BumpKind selects how the next version is derived from the current one.
type BumpKind int

const (
	BumpMajor BumpKind = iota
	BumpMinor
	BumpPatch
	BumpPre                // increment the existing pre-release number
	BumpPreNew             // start a new pre-release lineage
	BumpRetainIfUnreleased // publish the local manifest version as-is
)

var bumpKindNames = map[BumpKind]string{
	BumpMajor:              "major",
	BumpMinor:              "minor",
	BumpPatch:              "patch",
	BumpPre:                "pre",
	BumpPreNew:             "pre-new",
	BumpRetainIfUnreleased: "retain",
}

func (k BumpKind) String() string {
	if s, ok := bumpKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("BumpKind(%d)", int(k))
}

// PreReleaseKind is the label of a pre-release lineage.
type PreReleaseKind string

const (
	Alpha PreReleaseKind = "alpha"
	Beta  PreReleaseKind = "beta"
	RC    PreReleaseKind = "rc"
)

// PreReleaseKinds lists the supported lineages in release order.
var PreReleaseKinds = []PreReleaseKind{Alpha, Beta, RC}

// BaseBump selects the numeric bump applied before a new pre-release.
type BaseBump int

const (
	BaseMajor BaseBump = iota
	BaseMinor
	BasePatch
	BaseRetain
)

var baseBumpNames = map[BaseBump]string{
	BaseMajor:  "major",
	BaseMinor:  "minor",
	BasePatch:  "patch",
	BaseRetain: "retain",
}

func (b BaseBump) String() string {
	if s, ok := baseBumpNames[b]; ok {
		return s
	}
	return fmt.Sprintf("BaseBump(%d)", int(b))
}

// BumpRequest is the operator's choice. PreKind and Base are only read for BumpPreNew.
type BumpRequest struct {
	Kind    BumpKind
	PreKind PreReleaseKind
	Base    BaseBump
}

func (r BumpRequest) String() string {
	if r.Kind == BumpPreNew {
		return fmt.Sprintf("%s(%s, %s)", r.Kind, r.PreKind, r.Base)
	}
	return r.Kind.String()
}

// ParseBumpRequest maps CLI words to a request. pre and base are only
// consulted for "pre-new"; base defaults to "patch".
func ParseBumpRequest(bump, pre, base string) (BumpRequest, error) {
	var req BumpRequest
	switch strings.ToLower(bump) {
	case "major":
		req.Kind = BumpMajor
	case "minor":
		req.Kind = BumpMinor
	case "patch":
		req.Kind = BumpPatch
	case "pre", "prerelease":
		req.Kind = BumpPre
	case "retain", "use-local":
		req.Kind = BumpRetainIfUnreleased
	case "pre-new", "prenew":
		req.Kind = BumpPreNew
		kind, err := parsePreReleaseKind(pre)
		if err != nil {
			return req, err
		}
		req.PreKind = kind
		if base == "" {
			base = "patch"
		}
		b, err := ParseBaseBump(base)
		if err != nil {
			return req, err
		}
		req.Base = b
	default:
		return req, fmt.Errorf("unknown bump argument: %s", bump)
	}
	return req, nil
}

// IsPreNew reports whether bump names a new pre-release lineage.
func IsPreNew(bump string) bool {
	switch strings.ToLower(bump) {
	case "pre-new", "prenew":
		return true
	}
	return false
}

func parsePreReleaseKind(s string) (PreReleaseKind, error) {
	for _, k := range PreReleaseKinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown pre-release kind %q: expected one of alpha, beta, rc", s)
}

// ParseBaseBump maps a CLI word to a BaseBump.
func ParseBaseBump(s string) (BaseBump, error) {
	for b, name := range baseBumpNames {
		if strings.EqualFold(s, name) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown pre-release base %q: expected one of major, minor, patch, retain", s)
}

// Bump computes the record that follows current under req. history is the
// package's full release history, used to enforce pre-release lineages.
// current is never modified.
func Bump(current ReleaseRecord, req BumpRequest, history []ReleaseRecord) (ReleaseRecord, error) {
	next := current
	v := current.Version
	v.Build = ""

	switch req.Kind {
	case BumpMajor:
		v = Version{Major: v.Major + 1}
	case BumpMinor:
		v = Version{Major: v.Major, Minor: v.Minor + 1}
	case BumpPatch:
		v = Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	case BumpRetainIfUnreleased:
		if !current.LocalOnly {
			return ReleaseRecord{}, ErrRetainRequiresUnreleased
		}
	case BumpPre:
		pre, err := incrementPre(v.Pre)
		if err != nil {
			return ReleaseRecord{}, err
		}
		v.Pre = pre
	case BumpPreNew:
		candidate := Version{
			Major: v.Major,
			Minor: v.Minor,
			Patch: v.Patch,
			Pre:   string(req.PreKind) + ".1",
		}
		candidate = applyBase(candidate, req.Base)
		if conflict, ok := findPreRelease(history, candidate, req.PreKind); ok {
			return ReleaseRecord{}, &PreReleaseLineageError{
				Package:   current.Package,
				Candidate: candidate,
				Conflict:  conflict,
			}
		}
		v = candidate
	default:
		return ReleaseRecord{}, fmt.Errorf("unknown bump kind: %v", req.Kind)
	}

	next.Version = v
	return next, nil
}

func applyBase(v Version, base BaseBump) Version {
	switch base {
	case BaseMajor:
		v.Major, v.Minor, v.Patch = v.Major+1, 0, 0
	case BaseMinor:
		v.Minor, v.Patch = v.Minor+1, 0
	case BasePatch:
		v.Patch++
	}
	return v
}

// incrementPre bumps the number after the first "." of a pre-release
// identifier: "beta.3" becomes "beta.4".
func incrementPre(pre string) (string, error) {
	ident, num, ok := strings.Cut(pre, ".")
	if !ok {
		return "", &InvalidPreReleaseFormatError{PreRelease: pre}
	}
	n, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return "", &InvalidPreReleaseFormatError{PreRelease: pre}
	}
	return ident + "." + strconv.FormatUint(n+1, 10), nil
}

// findPreRelease returns the first record with the same triple as v whose
// pre-release starts with kind.
func findPreRelease(history []ReleaseRecord, v Version, kind PreReleaseKind) (ReleaseRecord, bool) {
	for _, rec := range history {
		if rec.Version.SameTriple(v) && rec.Version.Pre != "" && strings.HasPrefix(rec.Version.Pre, string(kind)) {
			return rec, true
		}
	}
	return ReleaseRecord{}, false
}

// AvailablePreReleaseKinds lists the kinds a BumpPreNew with base could
// still produce from current without breaking a lineage.
func AvailablePreReleaseKinds(current ReleaseRecord, base BaseBump, history []ReleaseRecord) ([]PreReleaseKind, error) {
	target := applyBase(Version{Major: current.Version.Major, Minor: current.Version.Minor, Patch: current.Version.Patch}, base)
	var kinds []PreReleaseKind
	for _, k := range PreReleaseKinds {
		if _, taken := findPreRelease(history, target, k); !taken {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil, ErrNoPreReleaseKinds
	}
	return kinds, nil
}

// NextRelease looks up pkg and bumps its latest record.
func NextRelease(pkg string, req BumpRequest, latest map[string]ReleaseRecord, history History) (ReleaseRecord, error) {
	current, ok := latest[pkg]
	if !ok {
		return ReleaseRecord{}, &NoPackageSelectedError{Package: pkg}
	}
	return Bump(current, req, history[pkg])
}
