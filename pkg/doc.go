// Package rema provides a library for releasing one package of a repository
// that may hold several.
//
// It provides functionalities for:
//   - Parsing release tags ("web@v1.4.0", "api@0.3.0-rc.2", "v2.0.0") into per-package histories
//     and picking the latest version of each package by semantic version precedence.
//   - Computing the next version with major, minor, patch, pre-release and new pre-release
//     bumps, refusing to start a pre-release lineage that already exists.
//   - Discovering local manifests (package.json with package-lock.json, Cargo.toml,
//     pyproject.toml, Chart.yaml, pubspec.yaml, go.mod) and rewriting their version in place.
//   - Running a release as a transaction: manifest write, commit, push, release creation
//     and tag sync, undoing every completed step in reverse order when one fails.
//
// Version control and the release host are interfaces (VCS and ReleaseHost); the git and
// github subpackages implement them on top of the git and gh command lines.
//
// Usage Example:
//
//	import (
//	    "context"
//	    "log"
//
//	    rema "github.com/bcomnes/rema/pkg"
//	    "github.com/bcomnes/rema/pkg/git"
//	    "github.com/bcomnes/rema/pkg/github"
//	    "github.com/spf13/afero"
//	)
//
//	func main() {
//	    ctx := context.Background()
//	    host := github.New(".")
//	    releases, err := host.ListReleases(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    history, _ := rema.AllVersions(rema.TagNames(releases))
//	    manifests, err := rema.DiscoverManifests(ctx, afero.NewOsFs(), ".")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    latest, err := rema.MatchLocal(rema.Latest(history), manifests)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    target, err := rema.NextRelease("web", rema.BumpRequest{Kind: rema.BumpMinor}, latest, history)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    c := rema.NewCoordinator(rema.NewManifestWriter(afero.NewOsFs()), git.New("."), host)
//	    if _, err := c.Run(ctx, rema.Request{Target: target, GenerateNotes: true}); err != nil {
//	        log.Fatalf("release failed: %v", err)
//	    }
//	}
package rema
