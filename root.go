package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	rema "github.com/bcomnes/rema/pkg"
	"github.com/bcomnes/rema/pkg/git"
	"github.com/bcomnes/rema/pkg/github"
	"github.com/bcomnes/rema/pkg/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// toolCheck is an external program whose version must be supported.
type toolCheck struct {
	name     string
	min, max string
	version  func(context.Context) (string, error)
}

// app carries the state of one invocation. Collaborators left nil are
// built from the configuration.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	fs     afero.Fs
	v      *viper.Viper

	cfg        Config
	configFile string
	log        *zap.Logger
	cancel     context.CancelFunc

	host        rema.ReleaseHost
	vcs         rema.VCS
	offline     bool
	tools       []toolCheck
	ensureClean func(ctx context.Context, allowed []string) error
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:     in,
		out:    out,
		errOut: errOut,
		fs:     afero.NewOsFs(),
		v:      viper.New(),
		log:    zap.NewNop(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "rema",
		Short: "Cut a release of one package in a repository",
		Long: `rema computes the next version of a package from its published releases,
writes it into the package's manifests, commits, pushes and publishes the
release. When a step fails every completed step is undone.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetVersionTemplate("rema CLI version {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default is .rema.yaml in --dir or $HOME)")
	flags.StringP("dir", "C", ".", "repository directory")
	flags.String("log-level", logger.LevelInfo, "log level: debug, info, warn, error or none")
	flags.String("releases-file", "", "read releases from this JSON file instead of the release host (read-only)")
	flags.Duration("timeout", 0, "abort the whole run after this long (0 means no limit)")

	root.AddCommand(
		newListCmd(a),
		newReleaseCmd(a),
		newReleasesCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup merges the configuration and builds the logger and collaborators.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.v.SetFs(a.fs)
	setDefaults(a.v)
	if err := bindFlags(a.v, cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	cfg, err := loadConfig(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	a.log = l
	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.Debug("using config file", zap.String("path", used))
	}

	if cfg.Timeout > 0 {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		a.cancel = cancel
		cmd.SetContext(ctx)
	}

	if a.host == nil {
		if cfg.ReleasesFile != "" {
			a.host = github.NewOfflineHost(a.fs, cfg.ReleasesFile)
			a.offline = true
		} else {
			gh := github.New(cfg.Dir, github.Limit(cfg.ReleasesLimit), github.Logger(a.log))
			a.host = gh
			a.tools = append(a.tools, toolCheck{name: "gh", min: cfg.GhMinVersion, max: cfg.ToolMaxVersion, version: gh.Version})
		}
	}
	if a.vcs == nil {
		g := git.New(cfg.Dir, git.Remote(cfg.Remote), git.Branch(cfg.Branch), git.Logger(a.log))
		a.vcs = g
		a.tools = append([]toolCheck{{name: "git", min: cfg.GitMinVersion, max: cfg.ToolMaxVersion, version: g.Version}}, a.tools...)
		a.ensureClean = g.EnsureClean
	}
	return nil
}

// preflight verifies tool versions and, when configured, a clean working
// tree apart from allowed.
func (a *app) preflight(ctx context.Context, allowed []string) error {
	for _, t := range a.tools {
		out, err := t.version(ctx)
		if err != nil {
			return fmt.Errorf("%w: %s is not available: %v", rema.ErrUnsupportedTool, t.name, err)
		}
		v, err := rema.CheckToolVersion(t.name, out, t.min, t.max)
		if err != nil {
			return err
		}
		a.log.Debug("tool version", zap.String("tool", t.name), zap.Stringer("version", v))
	}
	if a.cfg.RequireClean && a.ensureClean != nil {
		if err := a.ensureClean(ctx, allowed); err != nil {
			return err
		}
	}
	return nil
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, a *app, args []string) int {
	defer func() {
		if a.cancel != nil {
			a.cancel()
		}
		_ = a.log.Sync()
	}()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetIn(a.in)
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)
	if err := cmd.ExecuteContext(ctx); err != nil {
		reportError(a.errOut, err)
		return 1
	}
	return 0
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show CLI version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintln(a.out, "rema CLI version", Version)
			return nil
		},
	}
}

func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)

	var txErr *rema.TransactionError
	if !errors.As(err, &txErr) {
		return
	}
	if !txErr.PartiallyReverted() {
		fmt.Fprintln(w, "All changes were rolled back.")
		return
	}
	fmt.Fprintln(w, "Rollback was incomplete, manual intervention required. Failed steps:")
	for _, f := range txErr.Rollback.Failures {
		fmt.Fprintf(w, "  - %s\n", f.Error())
	}
}

func timeSince(t0 time.Time) string {
	return time.Since(t0).Round(time.Millisecond).String()
}
