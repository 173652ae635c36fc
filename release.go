package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	rema "github.com/bcomnes/rema/pkg"
	"github.com/bcomnes/rema/pkg/prompt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errReadOnlyHost is returned when a release is attempted against a releases file.
var errReadOnlyHost = errors.New("--releases-file provides a read-only release list; combine it with --dry-run")

type releaseFlags struct {
	pkg     string
	bump    string
	preKind string
	preBase string
	title   string
	notes   string
	yes     bool
	dryRun  bool
}

func newReleaseCmd(a *app) *cobra.Command {
	var f releaseFlags
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Bump, commit, push and publish a release of one package",
		Long: `Compute the next version of a package, write it into its manifests, commit,
push and publish the release, then fetch the new tag. If any step fails,
every completed step is undone in reverse order.`,
		Example: `  rema release -p web --bump minor
  rema release -p web --bump pre-new --pre-kind beta --pre-base major
  rema release -p web --bump pre
  rema release --bump patch --dry-run --releases-file releases.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.release(cmd, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.pkg, "package", "p", "", `package to release ("." selects the package of unscoped tags)`)
	flags.StringVar(&f.bump, "bump", "", "bump: major, minor, patch, pre, pre-new or retain")
	flags.StringVar(&f.preKind, "pre-kind", "", "pre-release kind for pre-new: alpha, beta or rc (default: first one available)")
	flags.StringVar(&f.preBase, "pre-base", "patch", "version bump applied before a new pre-release: major, minor, patch or retain")
	flags.StringVar(&f.title, "title", "", "release title and commit message (default: the tag name)")
	flags.StringVar(&f.notes, "notes", "", "release notes")
	flags.BoolVarP(&f.yes, "yes", "y", false, "do not ask for confirmation")
	flags.BoolVar(&f.dryRun, "dry-run", false, "print the plan without modifying any files or the repository")
	_ = cmd.MarkFlagRequired("bump")
	return cmd
}

func (a *app) release(cmd *cobra.Command, f releaseFlags) error {
	ctx := cmd.Context()
	t0 := time.Now()

	if a.offline && !f.dryRun {
		return errReadOnlyHost
	}

	ws, err := a.loadWorkspace(ctx)
	if err != nil {
		return err
	}
	pkg, err := selectPackage(f.pkg, ws.latest)
	if err != nil {
		return err
	}
	req, err := a.bumpRequest(f, pkg, ws)
	if err != nil {
		return err
	}
	plan, err := rema.NewPlan(pkg, req, ws.latest, ws.history, f.title, f.notes, a.cfg.GenerateNotes)
	if err != nil {
		return err
	}

	writer := rema.NewManifestWriter(a.fs, rema.WriterLogger(a.log))
	files, err := writer.Preview(plan.Target)
	if err != nil {
		return err
	}
	a.printPlan(plan, files, f.dryRun)
	if f.dryRun {
		fmt.Fprintln(a.out, "Dry run complete, no files were modified.")
		return nil
	}

	if err := a.preflight(ctx, plan.Target.Manifest.Paths()); err != nil {
		return err
	}

	if !f.yes {
		ok, err := prompt.Confirm(ctx, a.in, a.out,
			fmt.Sprintf("Publish %s?", plan.Target.TagName()),
			"y publishes, n or esc cancels", false)
		if errors.Is(err, prompt.ErrCancelled) || (err == nil && !ok) {
			fmt.Fprintln(a.out, "Release cancelled, nothing was changed.")
			return nil
		}
		if err != nil {
			return err
		}
	}

	coordinator := rema.NewCoordinator(writer, a.vcs, a.host,
		rema.CoordinatorLogger(a.log),
		rema.StrictTagSync(a.cfg.StrictTagSync),
	)
	outcome, err := coordinator.Run(ctx, plan.TransactionRequest())
	if err != nil {
		return err
	}

	for _, w := range outcome.Warnings {
		fmt.Fprintln(a.errOut, color.YellowString("Warning:"), w)
	}
	fmt.Fprintln(a.out, color.GreenString("Release successful!"))
	fmt.Fprintf(a.out, "Tag:         %s\n", outcome.Tag)
	fmt.Fprintf(a.out, "Commit:      %s\n", outcome.Commit.Revision)
	if len(outcome.UpdatedFiles) > 0 {
		fmt.Fprintln(a.out, "Files updated:")
		for _, p := range outcome.UpdatedFiles {
			fmt.Fprintf(a.out, "  %s\n", a.relPath(p))
		}
	}
	a.log.Info("release done", zap.String("txn", outcome.ID), zap.String("elapsed", timeSince(t0)))
	return nil
}

// selectPackage resolves the --package flag. Without it, a repository with
// a single package selects that package.
func selectPackage(flag string, latest map[string]rema.ReleaseRecord) (string, error) {
	switch {
	case flag == ".":
		return "", nil
	case flag != "":
		return flag, nil
	case len(latest) == 1:
		for name := range latest {
			return name, nil
		}
	}
	names := make([]string, 0, len(latest))
	for _, name := range rema.PackageNames(latest) {
		names = append(names, displayName(name))
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no releases or manifests found", &rema.NoPackageSelectedError{})
	}
	return "", fmt.Errorf("%w: choose one with --package: %s", &rema.NoPackageSelectedError{}, strings.Join(names, ", "))
}

// bumpRequest parses the bump flags. A pre-new bump without --pre-kind
// takes the first kind that does not already have a lineage.
func (a *app) bumpRequest(f releaseFlags, pkg string, ws *workspace) (rema.BumpRequest, error) {
	preKind := f.preKind
	if rema.IsPreNew(f.bump) && preKind == "" {
		base, err := rema.ParseBaseBump(f.preBase)
		if err != nil {
			return rema.BumpRequest{}, err
		}
		current, ok := ws.latest[pkg]
		if !ok {
			return rema.BumpRequest{}, &rema.NoPackageSelectedError{Package: pkg}
		}
		kinds, err := rema.AvailablePreReleaseKinds(current, base, ws.history[pkg])
		if err != nil {
			return rema.BumpRequest{}, err
		}
		preKind = string(kinds[0])
		a.log.Info("selected pre-release kind", zap.String("kind", preKind))
	}
	return rema.ParseBumpRequest(f.bump, preKind, f.preBase)
}

func (a *app) printPlan(plan rema.Plan, files []string, dryRun bool) {
	old := plan.Current.Version.String()
	if plan.Current.LocalOnly {
		old += " (unreleased)"
	}
	fmt.Fprintf(a.out, "Package:     %s\n", displayName(plan.Package))
	fmt.Fprintf(a.out, "Old Version: %s\n", old)
	fmt.Fprintf(a.out, "New Version: %s\n", plan.Target.Version)
	fmt.Fprintf(a.out, "Bump Type:   %s\n", plan.Request)
	fmt.Fprintf(a.out, "Tag:         %s\n", plan.Target.TagName())
	if len(files) == 0 {
		return
	}
	if dryRun {
		fmt.Fprintln(a.out, "Files that would be updated:")
	} else {
		fmt.Fprintln(a.out, "Files to update:")
	}
	for _, p := range files {
		fmt.Fprintf(a.out, "  %s\n", a.relPath(p))
	}
}
