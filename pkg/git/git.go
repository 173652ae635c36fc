// Package git drives the git command line for a release: committing the
// updated manifests, pushing, syncing tags and undoing those steps.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	rema "github.com/bcomnes/rema/pkg"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Client runs git in a working directory. It implements rema.VCS.
type Client struct {
	dir    string
	remote string
	branch string
	bin    string
	l      *zap.Logger
}

var _ rema.VCS = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// Remote sets the remote pushed to and fetched from. Defaults to "origin".
func Remote(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.remote = name
		}
	}
}

// Branch sets the branch pushed to. Defaults to the current branch.
func Branch(name string) Option {
	return func(c *Client) {
		c.branch = name
	}
}

// Binary overrides the git executable.
func Binary(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.bin = path
		}
	}
}

// Logger injects a logger.
func Logger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.l = l
		}
	}
}

// New returns a client for the repository containing dir.
func New(dir string, opts ...Option) *Client {
	c := &Client{dir: dir, remote: "origin", bin: "git", l: zap.NewNop()}
	for _, apply := range opts {
		apply(c)
	}
	return c
}

// run executes git with args and returns its trimmed stdout. A failure is
// reported as *rema.ExternalProcessError carrying git's stderr.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Dir = c.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.l.Debug("running git", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return "", &rema.ExternalProcessError{
			Command: "git " + strings.Join(args, " "),
			Stderr:  stderr.String(),
			Err:     err,
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Version returns the raw output of `git --version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.run(ctx, "--version")
}

// CurrentBranch returns the checked out branch.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	b, err := c.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if b == "HEAD" {
		return "", errors.New("HEAD is detached; check out a branch before releasing")
	}
	return b, nil
}

func (c *Client) branchName(ctx context.Context) (string, error) {
	if c.branch != "" {
		return c.branch, nil
	}
	b, err := c.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}
	c.branch = b
	return b, nil
}

// Head returns the revision HEAD points to.
func (c *Client) Head(ctx context.Context) (string, error) {
	return c.run(ctx, "rev-parse", "HEAD")
}

// Status returns the paths with uncommitted changes, relative to the
// repository root.
func (c *Client) Status(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return porcelainPaths(out), nil
}

func porcelainPaths(out string) []string {
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		p := strings.TrimSpace(line[3:])
		// renames are reported as "old -> new"
		if _, after, ok := strings.Cut(p, " -> "); ok {
			p = after
		}
		paths = append(paths, strings.Trim(p, `"`))
	}
	return paths
}

// EnsureClean fails with rema.ErrDirtyWorkingTree when files other than
// allowed have uncommitted changes. Relative allowed paths are resolved
// against the client's directory.
func (c *Client) EnsureClean(ctx context.Context, allowed []string) error {
	dirty, err := c.Status(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check git status")
	}
	if len(dirty) == 0 {
		return nil
	}
	top, err := c.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return err
	}
	return checkDirty(c.dir, top, dirty, allowed)
}

func checkDirty(dir, top string, dirty, allowed []string) error {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		if !filepath.IsAbs(f) {
			f = filepath.Join(dir, f)
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve path %q", f)
		}
		allowedSet[abs] = struct{}{}
	}

	var disallowed []string
	for _, p := range dirty {
		abs := filepath.Join(top, filepath.FromSlash(p))
		if _, ok := allowedSet[abs]; !ok {
			disallowed = append(disallowed, p)
		}
	}
	if len(disallowed) > 0 {
		return fmt.Errorf("%w; uncommitted files not included in the release: %v", rema.ErrDirtyWorkingTree, disallowed)
	}
	return nil
}

// Commit stages paths and commits them with message. With no paths an
// empty commit is recorded so the release still has its own revision.
func (c *Client) Commit(ctx context.Context, message string, paths []string) (rema.CommitHandle, error) {
	if len(paths) > 0 {
		args := append([]string{"add", "--"}, paths...)
		if _, err := c.run(ctx, args...); err != nil {
			return rema.CommitHandle{}, err
		}
	}
	args := []string{"commit", "-m", message}
	if len(paths) == 0 {
		args = append(args, "--allow-empty")
	} else {
		args = append(args, "--")
		args = append(args, paths...)
	}
	if _, err := c.run(ctx, args...); err != nil {
		if len(paths) > 0 {
			unstage := append([]string{"reset", "-q", "--"}, paths...)
			if _, rerr := c.run(context.WithoutCancel(ctx), unstage...); rerr != nil {
				c.l.Warn("failed to unstage release files", zap.Error(rerr))
			}
		}
		return rema.CommitHandle{}, err
	}
	rev, err := c.Head(ctx)
	if err != nil {
		return rema.CommitHandle{}, err
	}
	c.l.Debug("committed", zap.String("revision", rev), zap.Strings("paths", paths))
	return rema.CommitHandle{Revision: rev, Message: message}, nil
}

// Push pushes HEAD to the configured branch of the remote.
func (c *Client) Push(ctx context.Context) error {
	branch, err := c.branchName(ctx)
	if err != nil {
		return err
	}
	_, err = c.run(ctx, "push", c.remote, "HEAD:refs/heads/"+branch)
	return err
}

// FetchTags fetches the remote's tags, including the one the release host
// just created.
func (c *Client) FetchTags(ctx context.Context) error {
	_, err := c.run(ctx, "fetch", "--tags", c.remote)
	return err
}

// RevertLocal resets the branch to the parent of revision. Uncommitted
// changes to files the release commit did not touch are kept. It refuses
// to move HEAD when revision is not the current commit.
func (c *Client) RevertLocal(ctx context.Context, revision string) error {
	head, err := c.Head(ctx)
	if err != nil {
		return err
	}
	if head != revision {
		return errors.Errorf("HEAD is %s, not the release commit %s; leaving it in place", head, revision)
	}
	_, err = c.run(ctx, "reset", "--keep", revision+"^")
	return err
}

// RevertRemote moves the remote branch back to the parent of revision. The
// lease makes the push fail if someone else pushed on top of revision.
func (c *Client) RevertRemote(ctx context.Context, revision string) error {
	branch, err := c.branchName(ctx)
	if err != nil {
		return err
	}
	ref := "refs/heads/" + branch
	_, err = c.run(ctx, "push",
		fmt.Sprintf("--force-with-lease=%s:%s", ref, revision),
		c.remote,
		fmt.Sprintf("%s^:%s", revision, ref))
	return err
}
