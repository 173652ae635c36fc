package rema

import (
	"sort"

	"go.uber.org/multierr"
)

// History maps a package name to every release known for it, in the order
// the tags were seen. The unnamed package of a single-package repository is "".
type History map[string][]ReleaseRecord

// Add appends rec to its package unless a record with the same
// (major, minor, patch, pre) tuple is already present. It reports whether
// the record was added.
func (h History) Add(rec ReleaseRecord) bool {
	for _, existing := range h[rec.Package] {
		if existing.Version.SameIdentity(rec.Version) {
			return false
		}
	}
	h[rec.Package] = append(h[rec.Package], rec)
	return true
}

// AllVersions builds the history from a list of raw tags.
//
// Malformed tags do not stop the build: the returned history holds every
// well-formed tag and the error combines one *MalformedTagError per
// rejected tag.
func AllVersions(tags []string) (History, error) {
	h := make(History)
	var errs error
	for _, tag := range tags {
		rec, err := ParseTag(tag)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		h.Add(rec)
	}
	return h, errs
}

// TagNames extracts the tag names from hosted releases.
func TagNames(releases []Release) []string {
	tags := make([]string, 0, len(releases))
	for _, r := range releases {
		tags = append(tags, r.TagName)
	}
	return tags
}

// Latest returns the highest version per package. Ties keep the record
// seen first. The chosen record's HasVPrefix becomes the package's prefix
// convention for the next release.
func Latest(h History) map[string]ReleaseRecord {
	latest := make(map[string]ReleaseRecord, len(h))
	for pkg, recs := range h {
		for _, rec := range recs {
			cur, ok := latest[pkg]
			if !ok || cur.Version.Less(rec.Version) {
				latest[pkg] = rec
			}
		}
	}
	return latest
}

// MatchLocal attaches local manifests to the latest release of the package
// they declare. Manifests without a published package produce a LocalOnly
// record carrying the manifest's own version, or 0.0.0 when it has none.
// The input map is not modified.
func MatchLocal(latest map[string]ReleaseRecord, manifests []ManifestRef) (map[string]ReleaseRecord, error) {
	out := make(map[string]ReleaseRecord, len(latest)+len(manifests))
	for pkg, rec := range latest {
		out[pkg] = rec
	}

	for i := range manifests {
		m := &manifests[i]
		if rec, ok := latest[m.Name]; ok {
			out[m.Name] = rec.WithManifest(m)
			continue
		}

		v := Version{}
		if declared := m.DeclaredVersion(); declared != "" {
			parsed, err := ParseVersion(declared)
			if err != nil {
				return nil, &ManifestError{Path: m.Primary.Path, Op: "parse", Err: err}
			}
			v = parsed
		}
		out[m.Name] = ReleaseRecord{
			Package:    m.Name,
			Version:    v,
			HasVPrefix: false,
			Manifest:   m,
			LocalOnly:  true,
		}
	}
	return out, nil
}

// PackageNames returns the package names of latest in sorted order.
func PackageNames(latest map[string]ReleaseRecord) []string {
	names := make([]string, 0, len(latest))
	for name := range latest {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
