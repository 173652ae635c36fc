package rema

import "strings"

// ReleaseRecord is one known release (or unreleased local version) of a
// package. Records are values; every transformation returns a new one.
type ReleaseRecord struct {
	Package    string
	Version    Version
	HasVPrefix bool
	Manifest   *ManifestRef // nil when no local manifest is associated
	LocalOnly  bool         // synthesized from a manifest without a published tag
}

// ParseTag turns a raw release tag into a ReleaseRecord.
//
// "<pkg>@v<version>" and "<pkg>@<version>" name a package in a multi-package
// repository; a tag without "@" belongs to the unnamed package "".
func ParseTag(raw string) (ReleaseRecord, error) {
	var rec ReleaseRecord
	text := raw
	if pkg, ver, ok := strings.Cut(raw, "@"); ok {
		rec.Package = pkg
		text = ver
	}
	if strings.HasPrefix(text, "v") {
		rec.HasVPrefix = true
		text = text[1:]
	}
	v, err := ParseVersion(text)
	if err != nil {
		return ReleaseRecord{}, &MalformedTagError{Tag: raw, Err: err}
	}
	rec.Version = v
	return rec, nil
}

// TagName renders the tag this record is (or would be) published under.
func (r ReleaseRecord) TagName() string {
	v := r.Version.String()
	if r.HasVPrefix {
		v = "v" + v
	}
	if r.Package == "" {
		return v
	}
	return r.Package + "@" + v
}

// WithManifest returns a copy of r associated with m.
func (r ReleaseRecord) WithManifest(m *ManifestRef) ReleaseRecord {
	r.Manifest = m
	return r
}
