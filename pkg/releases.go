package rema

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
)

var releasesJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteReleasesFile serializes releases as indented JSON, in the same shape
// `gh release list --json` produces.
func WriteReleasesFile(fsys afero.Fs, path string, releases []Release) error {
	if releases == nil {
		releases = []Release{}
	}
	data, err := releasesJSON.MarshalIndent(releases, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize releases: %w", err)
	}
	data = append(data, '\n')
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write releases to %s: %w", path, err)
	}
	return nil
}

// ReadReleasesFile loads releases written by WriteReleasesFile or gh.
func ReadReleasesFile(fsys afero.Fs, path string) ([]Release, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read releases file %s: %w", path, err)
	}
	var releases []Release
	if err := releasesJSON.Unmarshal(data, &releases); err != nil {
		return nil, fmt.Errorf("failed to parse releases file %s: %w", path, err)
	}
	return releases, nil
}
