package rema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pkgJSON  = "{\n  \"name\": \"web\",\n  \"version\": \"1.2.3\"\n}\n"
	lockJSON = "{\n  \"name\": \"web\",\n  \"version\": \"1.2.3\",\n  \"lockfileVersion\": 3\n}\n"
)

// failingRenameFs fails every rename onto one path.
type failingRenameFs struct {
	afero.Fs
	target string
	err    error
}

func (f *failingRenameFs) Rename(oldname, newname string) error {
	if newname == f.target {
		return f.err
	}
	return f.Fs.Rename(oldname, newname)
}

func webRecord(version string) ReleaseRecord {
	return ReleaseRecord{
		Package:    "web",
		Version:    MustParseVersion(version),
		HasVPrefix: true,
		Manifest: &ManifestRef{
			Name:      "web",
			Primary:   &ManifestFile{Path: "/repo/web/package.json", Format: FormatJSON, Version: "1.2.3"},
			Companion: &ManifestFile{Path: "/repo/web/package-lock.json", Format: FormatJSON, Version: "1.2.3"},
		},
	}
}

func seedWeb(t *testing.T, fs afero.Fs) {
	t.Helper()
	require.NoError(t, fs.MkdirAll("/repo/web", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/repo/web/package.json", []byte(pkgJSON), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/web/package-lock.json", []byte(lockJSON), 0o600))
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestManifestWriterWritesBothFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedWeb(t, fs)
	w := NewManifestWriter(fs)

	backups, err := w.Write(webRecord("1.3.0"))
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "/repo/web/package.json", backups[0].Path)
	assert.Equal(t, pkgJSON, backups[0].Original)
	assert.Equal(t, "/repo/web/package-lock.json", backups[1].Path)
	assert.Equal(t, os.FileMode(0o600), backups[1].Mode)

	assert.Equal(t, strings.Replace(pkgJSON, "1.2.3", "1.3.0", 1), readFile(t, fs, "/repo/web/package.json"))
	assert.Equal(t, strings.Replace(lockJSON, "1.2.3", "1.3.0", 1), readFile(t, fs, "/repo/web/package-lock.json"))

	st, err := fs.Stat("/repo/web/package-lock.json")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	// no temp files left behind
	entries, err := afero.ReadDir(fs, "/repo/web")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, w.Restore(backups))
	assert.Equal(t, pkgJSON, readFile(t, fs, "/repo/web/package.json"))
	assert.Equal(t, lockJSON, readFile(t, fs, "/repo/web/package-lock.json"))
}

func TestManifestWriterRestoresFirstFileWhenSecondFails(t *testing.T) {
	mem := afero.NewMemMapFs()
	seedWeb(t, mem)
	boom := errors.New("disk full")
	fs := &failingRenameFs{Fs: mem, target: "/repo/web/package-lock.json", err: boom}

	backups, err := NewManifestWriter(fs).Write(webRecord("2.0.0"))
	require.Error(t, err)
	assert.Nil(t, backups)
	assert.ErrorIs(t, err, boom)

	var merr *ManifestError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "write", merr.Op)
	assert.Equal(t, "/repo/web/package-lock.json", merr.Path)

	assert.Equal(t, pkgJSON, readFile(t, mem, "/repo/web/package.json"))
	assert.Equal(t, lockJSON, readFile(t, mem, "/repo/web/package-lock.json"))

	entries, err := afero.ReadDir(mem, "/repo/web")
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp file of the failed write is removed")
}

func TestManifestWriterNoManifest(t *testing.T) {
	backups, err := NewManifestWriter(afero.NewMemMapFs()).Write(ReleaseRecord{Package: "docs", Version: MustParseVersion("1.0.0")})
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestManifestWriterSkipsUnchangedFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/go.mod", []byte("module example.com/tool\n\ngo 1.22\n"), 0o644))
	target := ReleaseRecord{
		Package:  "tool",
		Version:  MustParseVersion("1.5.0"),
		Manifest: &ManifestRef{Name: "tool", Primary: &ManifestFile{Path: "/repo/go.mod", Format: FormatGoMod}},
	}
	w := NewManifestWriter(fs)

	preview, err := w.Preview(target)
	require.NoError(t, err)
	assert.Empty(t, preview)

	backups, err := w.Write(target)
	require.NoError(t, err)
	assert.Empty(t, backups)

	target.Version = MustParseVersion("2.0.0")
	preview, err = w.Preview(target)
	require.NoError(t, err)
	assert.Equal(t, []string{"/repo/go.mod"}, preview)
	assert.Equal(t, "module example.com/tool\n\ngo 1.22\n", readFile(t, fs, "/repo/go.mod"), "preview does not write")
}

func TestManifestWriterMissingFile(t *testing.T) {
	_, err := NewManifestWriter(afero.NewMemMapFs()).Write(webRecord("1.3.0"))
	var merr *ManifestError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "read", merr.Op)
}

func TestManifestWriterRestoreCollectsFailures(t *testing.T) {
	mem := afero.NewMemMapFs()
	seedWeb(t, mem)
	fs := &failingRenameFs{Fs: mem, target: "/repo/web/package.json", err: errors.New("read-only")}

	err := NewManifestWriter(fs).Restore([]ManifestBackup{
		{Path: "/repo/web/package.json", Original: "{}", Mode: 0o644},
		{Path: "/repo/web/package-lock.json", Original: "{}", Mode: 0o644},
	})
	require.Error(t, err)
	var merr *ManifestError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "restore", merr.Op)
	assert.Equal(t, "{}", readFile(t, mem, filepath.Join("/repo/web", "package-lock.json")), "later backups are still restored")
}
