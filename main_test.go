package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	rema "github.com/bcomnes/rema/pkg"
	"github.com/bcomnes/rema/pkg/rematest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const webPackage = "{\n  \"name\": \"web\",\n  \"version\": \"1.4.0\"\n}\n"

type testApp struct {
	*app
	out, errOut *bytes.Buffer
	host        *rematest.Host
	vcs         *rematest.VCS
}

// newTestApp returns an app over an in-memory repository at /repo holding
// the web and api packages and an unreleased docs chart.
func newTestApp(t *testing.T, in io.Reader, tags ...string) *testApp {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/repo/web/package.json":  webPackage,
		"/repo/crates/Cargo.toml": "[package]\nname = \"api\"\nversion = \"0.2.0\"\n",
		"/repo/docs/Chart.yaml":   "name: docs\nversion: 0.1.0\n",
	}
	for p, body := range files {
		require.NoError(t, afero.WriteFile(fs, p, []byte(body), 0o644))
	}

	ta := &testApp{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, host: rematest.NewHost(tags...), vcs: rematest.NewVCS("base")}
	ta.app = newApp(in, ta.out, ta.errOut)
	ta.app.fs = fs
	ta.app.host = ta.host
	ta.app.vcs = ta.vcs
	return ta
}

func (ta *testApp) run(args ...string) int {
	args = append(args, "-C", "/repo", "--log-level", "none")
	return run(context.Background(), ta.app, args)
}

func (ta *testApp) file(t *testing.T, path string) string {
	t.Helper()
	data, err := afero.ReadFile(ta.fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestReleasePublishes(t *testing.T) {
	ta := newTestApp(t, strings.NewReader(""), "web@v1.4.0", "api@0.2.0")

	code := ta.run("release", "-p", "web", "--bump", "minor", "--yes", "--notes", "Faster builds")
	require.Equal(t, 0, code, ta.errOut.String())

	out := ta.out.String()
	assert.Contains(t, out, "Old Version: 1.4.0")
	assert.Contains(t, out, "New Version: 1.5.0")
	assert.Contains(t, out, "Bump Type:   minor")
	assert.Contains(t, out, "Files to update:\n  web/package.json")
	assert.Contains(t, out, "Release successful!")
	assert.Contains(t, out, "Commit:      rev1")

	assert.Contains(t, ta.file(t, "/repo/web/package.json"), `"version": "1.5.0"`)
	require.Len(t, ta.host.Created, 1)
	assert.Equal(t, rema.ReleaseSpec{
		Tag:           "web@v1.5.0",
		Title:         "web@v1.5.0",
		Notes:         "Faster builds",
		GenerateNotes: true,
		Target:        "rev1",
	}, ta.host.Created[0])
	assert.Equal(t, []string{"base", "rev1"}, ta.vcs.Remote)
}

func TestReleaseRollsBackOnPushFailure(t *testing.T) {
	ta := newTestApp(t, strings.NewReader(""), "web@v1.4.0")
	ta.vcs.Errors[rematest.OpPush] = errors.New("rejected")

	code := ta.run("release", "-p", "web", "--bump", "patch", "--yes")
	assert.Equal(t, 1, code)
	assert.Contains(t, ta.errOut.String(), "Error: release failed at push: rejected")
	assert.Contains(t, ta.errOut.String(), "All changes were rolled back.")
	assert.NotContains(t, ta.out.String(), "Release successful!")

	assert.Equal(t, webPackage, ta.file(t, "/repo/web/package.json"))
	assert.Equal(t, []string{"base"}, ta.vcs.Local)
	assert.Empty(t, ta.host.Created)
}

func TestReleaseReportsIncompleteRollback(t *testing.T) {
	ta := newTestApp(t, strings.NewReader(""), "web@v1.4.0")
	ta.host.Errors[rematest.OpCreateRelease] = errors.New("HTTP 502")
	ta.vcs.Errors[rematest.OpRevertRemote] = errors.New("stale info")

	code := ta.run("release", "-p", "web", "--bump", "major", "--yes")
	assert.Equal(t, 1, code)
	errOut := ta.errOut.String()
	assert.Contains(t, errOut, "Rollback was incomplete, manual intervention required. Failed steps:")
	assert.Contains(t, errOut, "  - revert remote commit rev1: stale info")
	assert.Equal(t, webPackage, ta.file(t, "/repo/web/package.json"))
}

func TestReleaseDryRun(t *testing.T) {
	ta := newTestApp(t, strings.NewReader(""), "web@v1.4.0", "web@v1.5.0-alpha.1")

	code := ta.run("release", "-p", "web", "--bump", "pre-new", "--pre-base", "retain", "--dry-run")
	require.Equal(t, 0, code, ta.errOut.String())

	out := ta.out.String()
	assert.Contains(t, out, "New Version: 1.5.0-beta.1", "alpha is taken so beta is picked")
	assert.Contains(t, out, "Tag:         web@v1.5.0-beta.1")
	assert.Contains(t, out, "Files that would be updated:\n  web/package.json")
	assert.Contains(t, out, "Dry run complete, no files were modified.")

	assert.Equal(t, webPackage, ta.file(t, "/repo/web/package.json"))
	assert.Empty(t, ta.vcs.Calls)
	assert.Empty(t, ta.host.Created)
}

func TestReleaseUnreleasedPackage(t *testing.T) {
	ta := newTestApp(t, strings.NewReader(""), "web@v1.4.0")

	code := ta.run("release", "-p", "docs", "--bump", "retain", "--yes")
	require.Equal(t, 0, code, ta.errOut.String())
	assert.Contains(t, ta.out.String(), "Old Version: 0.1.0 (unreleased)")
	require.Len(t, ta.host.Created, 1)
	assert.Equal(t, "docs@0.1.0", ta.host.Created[0].Tag)
}

func TestReleaseCancelledAtPrompt(t *testing.T) {
	ta := newTestApp(t, strings.NewReader("n"), "web@v1.4.0")

	code := ta.run("release", "-p", "web", "--bump", "patch")
	require.Equal(t, 0, code, ta.errOut.String())
	assert.Contains(t, ta.out.String(), "Release cancelled, nothing was changed.")
	assert.Empty(t, ta.vcs.Calls)
	assert.Equal(t, webPackage, ta.file(t, "/repo/web/package.json"))
}

func TestReleaseErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing bump", []string{"release", "-p", "web"}, `required flag(s) "bump" not set`},
		{"unknown bump", []string{"release", "-p", "web", "--bump", "huge"}, "huge"},
		{"no package", []string{"release", "--bump", "patch"}, "choose one with --package: api, docs, web"},
		{"unknown package", []string{"release", "-p", "cli", "--bump", "patch"}, `no version known for package "cli"`},
		{"retain released", []string{"release", "-p", "web", "--bump", "retain"}, "only allowed for unreleased packages"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ta := newTestApp(t, strings.NewReader(""), "web@v1.4.0")
			assert.Equal(t, 1, ta.run(tc.args...))
			assert.Contains(t, ta.errOut.String(), tc.want)
			assert.Empty(t, ta.vcs.Calls)
		})
	}
}

func TestReleasesFileIsReadOnly(t *testing.T) {
	ta := newTestApp(t, strings.NewReader(""))
	ta.app.host = nil
	require.NoError(t, rema.WriteReleasesFile(ta.fs, "/repo/releases.json", []rema.Release{{TagName: "web@v1.4.0"}}))

	code := ta.run("release", "-p", "web", "--bump", "patch", "--yes", "--releases-file", "/repo/releases.json")
	assert.Equal(t, 1, code)
	assert.Contains(t, ta.errOut.String(), "read-only release list")
	assert.Empty(t, ta.vcs.Calls)
}

func TestReleasesFileDryRun(t *testing.T) {
	ta := newTestApp(t, strings.NewReader(""))
	ta.app.host = nil
	require.NoError(t, rema.WriteReleasesFile(ta.fs, "/repo/releases.json", []rema.Release{{TagName: "web@v1.4.0"}}))

	code := ta.run("release", "-p", "web", "--bump", "patch", "--dry-run", "--releases-file", "/repo/releases.json")
	require.Equal(t, 0, code, ta.errOut.String())
	assert.Contains(t, ta.out.String(), "Tag:         web@v1.4.1")
}

func TestListCommand(t *testing.T) {
	ta := newTestApp(t, strings.NewReader(""), "web@v1.4.0", "api@0.2.0", "v3.0.0", "web@nightly")

	code := ta.run("ls")
	require.Equal(t, 0, code, ta.errOut.String())
	lines := strings.Split(strings.TrimSpace(ta.out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "PACKAGE")
	assert.True(t, strings.HasPrefix(lines[1], "(root)"), lines[1])
	assert.Contains(t, lines[1], "v3.0.0")
	assert.True(t, strings.HasPrefix(lines[2], "api"), lines[2])
	assert.Contains(t, lines[2], "crates/Cargo.toml")
	assert.Contains(t, lines[3], "(unreleased)")
	assert.Contains(t, lines[4], "web@v1.4.0")
	assert.Contains(t, lines[4], "web/package.json")
}

func TestReleasesExport(t *testing.T) {
	ta := newTestApp(t, strings.NewReader(""), "web@v1.4.0", "api@0.2.0")

	code := ta.run("releases", "export", "/repo/export.json")
	require.Equal(t, 0, code, ta.errOut.String())
	assert.Equal(t, "Wrote 2 releases to /repo/export.json\n", ta.out.String())

	releases, err := rema.ReadReleasesFile(ta.fs, "/repo/export.json")
	require.NoError(t, err)
	assert.Len(t, releases, 2)
}

func TestLoadWorkspaceWarnsAtReleaseLimit(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		offline bool
		warned  bool
	}{
		{"limit reached", 2, false, true},
		{"below limit", 3, false, false},
		{"unlimited", 0, false, false},
		{"offline file", 2, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ta := newTestApp(t, strings.NewReader(""), "web@v1.4.0", "api@0.2.0")
			core, logs := observer.New(zap.WarnLevel)
			ta.log = zap.New(core)
			ta.cfg = Config{Dir: "/repo", ReleasesLimit: tc.limit}
			ta.offline = tc.offline

			ws, err := ta.loadWorkspace(context.Background())
			require.NoError(t, err)
			assert.Len(t, ws.releases, 2)
			assert.Equal(t, tc.warned, logs.FilterMessageSnippet("configured limit").Len() == 1)
		})
	}
}

func TestConfigFileAndEnvironment(t *testing.T) {
	t.Setenv("REMA_RELEASES_LIMIT", "7")
	ta := newTestApp(t, strings.NewReader(""))
	require.NoError(t, afero.WriteFile(ta.fs, "/repo/.rema.yaml", []byte("remote: upstream\nstrict_tag_sync: true\ngenerate_notes: false\n"), 0o644))

	require.Equal(t, 0, ta.run("version"), ta.errOut.String())
	assert.Equal(t, "rema CLI version "+Version+"\n", ta.out.String())
	assert.Equal(t, "/repo", ta.cfg.Dir)
	assert.Equal(t, "upstream", ta.cfg.Remote)
	assert.True(t, ta.cfg.StrictTagSync)
	assert.False(t, ta.cfg.GenerateNotes)
	assert.True(t, ta.cfg.RequireClean)
	assert.Equal(t, 7, ta.cfg.ReleasesLimit)
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	ta := newTestApp(t, strings.NewReader(""))
	assert.Equal(t, 1, ta.run("version", "--config", "/repo/missing.yaml"))
	assert.Contains(t, ta.errOut.String(), "failed to read config")
}

func TestSelectPackage(t *testing.T) {
	one := map[string]rema.ReleaseRecord{"web": {}}
	two := map[string]rema.ReleaseRecord{"web": {}, "": {}}

	pkg, err := selectPackage("", one)
	require.NoError(t, err)
	assert.Equal(t, "web", pkg)

	pkg, err = selectPackage(".", two)
	require.NoError(t, err)
	assert.Equal(t, "", pkg)

	_, err = selectPackage("", two)
	var missing *rema.NoPackageSelectedError
	require.True(t, errors.As(err, &missing))
	assert.Contains(t, err.Error(), "(root), web")

	_, err = selectPackage("", nil)
	assert.ErrorContains(t, err, "no releases or manifests found")
}

func TestPreflight(t *testing.T) {
	ta := newTestApp(t, strings.NewReader(""))
	ta.cfg.RequireClean = true
	var cleanedWith []string
	ta.ensureClean = func(_ context.Context, allowed []string) error {
		cleanedWith = allowed
		return nil
	}
	ta.tools = []toolCheck{{
		name:    "git",
		min:     "2.43.0",
		max:     "3.0.0",
		version: func(context.Context) (string, error) { return "git version 2.44.1", nil },
	}}
	require.NoError(t, ta.preflight(context.Background(), []string{"web/package.json"}))
	assert.Equal(t, []string{"web/package.json"}, cleanedWith)

	ta.tools[0].version = func(context.Context) (string, error) { return "git version 2.39.0", nil }
	assert.ErrorIs(t, ta.preflight(context.Background(), nil), rema.ErrUnsupportedTool)

	ta.tools[0].version = func(context.Context) (string, error) { return "", errors.New("not found") }
	assert.ErrorIs(t, ta.preflight(context.Background(), nil), rema.ErrUnsupportedTool)
}
