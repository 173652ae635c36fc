package rema_test

import (
	"context"
	"fmt"

	rema "github.com/bcomnes/rema/pkg"
	"github.com/bcomnes/rema/pkg/rematest"
	"github.com/spf13/afero"
)

// ExampleLatest groups release tags by package and picks the highest
// version of each.
func ExampleLatest() {
	history, err := rema.AllVersions([]string{
		"web@v1.0.0",
		"web@v1.1.0-rc.1",
		"api@0.3.0",
		"web@v1.0.5",
		"v2.0.0",
	})
	if err != nil {
		fmt.Println("malformed tags:", err)
		return
	}
	latest := rema.Latest(history)
	for _, name := range rema.PackageNames(latest) {
		fmt.Println(latest[name].TagName())
	}

	// Output:
	// v2.0.0
	// api@0.3.0
	// web@v1.1.0-rc.1
}

// ExampleBump starts a beta of the next major version and then continues it.
func ExampleBump() {
	current := rema.ReleaseRecord{Package: "web", Version: rema.MustParseVersion("1.2.3"), HasVPrefix: true}

	beta, err := rema.Bump(current, rema.BumpRequest{Kind: rema.BumpPreNew, PreKind: rema.Beta, Base: rema.BaseMajor}, nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(beta.TagName())

	next, err := rema.Bump(beta, rema.BumpRequest{Kind: rema.BumpPre}, []rema.ReleaseRecord{beta})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(next.TagName())

	_, err = rema.Bump(current, rema.BumpRequest{Kind: rema.BumpPreNew, PreKind: rema.Beta, Base: rema.BaseMajor}, []rema.ReleaseRecord{beta, next})
	fmt.Println(err)

	// Output:
	// web@v2.0.0-beta.1
	// web@v2.0.0-beta.2
	// failed to generate pre-release 2.0.0-beta.1 for "web": 2.0.0-beta.1 already exists or is newer
}

// ExampleCoordinator_Run releases a package against in-memory collaborators
// and shows the rollback after a failed push.
func ExampleCoordinator_Run() {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/repo/package.json", []byte(`{"name": "web", "version": "1.0.0"}`), 0o644)

	ctx := context.Background()
	manifests, _ := rema.DiscoverManifests(ctx, fs, "/repo")
	latest, _ := rema.MatchLocal(nil, manifests)
	target, _ := rema.NextRelease("web", rema.BumpRequest{Kind: rema.BumpMinor}, latest, nil)

	vcs := rematest.NewVCS("base")
	vcs.Errors[rematest.OpPush] = fmt.Errorf("remote rejected")
	c := rema.NewCoordinator(rema.NewManifestWriter(fs), vcs, rematest.NewHost())

	out, err := c.Run(ctx, rema.Request{Target: target})
	fmt.Println(err)
	fmt.Println(out.State)

	data, _ := afero.ReadFile(fs, "/repo/package.json")
	fmt.Println(string(data))

	// Output:
	// release failed at push: remote rejected (fully reverted)
	// rolled-back
	// {"name": "web", "version": "1.0.0"}
}
