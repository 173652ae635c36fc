package rema

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleasesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	releases := []Release{
		{Name: "web v1.0.0", TagName: "web@v1.0.0", PublishedAt: "2024-01-02T03:04:05Z", IsLatest: true},
		{Name: "api 0.2.0-rc.1", TagName: "api@0.2.0-rc.1", IsPrerelease: true},
	}
	require.NoError(t, WriteReleasesFile(fs, "/releases.json", releases))

	data := readReleases(t, fs)
	assert.Contains(t, data, `"tagName": "web@v1.0.0"`)
	assert.Contains(t, data, `"isPrerelease": true`)

	got, err := ReadReleasesFile(fs, "/releases.json")
	require.NoError(t, err)
	assert.Equal(t, releases, got)
}

func TestReleasesFileEmptyAndErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, WriteReleasesFile(fs, "/empty.json", nil))
	got, err := ReadReleasesFile(fs, "/empty.json")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ReadReleasesFile(fs, "/missing.json")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/bad.json", []byte(`{"tagName": 1}`), 0o644))
	_, err = ReadReleasesFile(fs, "/bad.json")
	assert.Error(t, err)
}

func readReleases(t *testing.T, fs afero.Fs) string {
	t.Helper()
	data, err := afero.ReadFile(fs, "/releases.json")
	require.NoError(t, err)
	return string(data)
}
