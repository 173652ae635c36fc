// Package github publishes and lists releases through the gh command line.
package github

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	rema "github.com/bcomnes/rema/pkg"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const releaseFields = "createdAt,isDraft,isLatest,isPrerelease,name,publishedAt,tagName"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client runs gh in a working directory. It implements rema.ReleaseHost.
type Client struct {
	dir   string
	bin   string
	limit int
	l     *zap.Logger
}

var _ rema.ReleaseHost = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// Limit caps how many releases ListReleases fetches.
func Limit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// Binary overrides the gh executable.
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

// New returns a client for the repository checked out in dir.
func New(dir string, opts ...Option) *Client {
	c := &Client{dir: dir, bin: "gh", limit: 100, l: zap.NewNop()}
	for _, apply := range opts {
		apply(c)
	}
	return c
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Dir = c.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.l.Debug("running gh", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return nil, &rema.ExternalProcessError{
			Command: "gh " + strings.Join(args, " "),
			Stderr:  stderr.String(),
			Err:     err,
		}
	}
	return stdout.Bytes(), nil
}

// Version returns the raw output of `gh --version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "--version")
	return string(out), err
}

// ListReleases returns the repository's releases, newest first.
func (c *Client) ListReleases(ctx context.Context) ([]rema.Release, error) {
	out, err := c.run(ctx, "release", "list", "--limit", strconv.Itoa(c.limit), "--json", releaseFields)
	if err != nil {
		return nil, err
	}
	var releases []rema.Release
	if err := json.Unmarshal(out, &releases); err != nil {
		return nil, errors.Wrap(err, "failed to parse gh release list output")
	}
	return releases, nil
}

// CreateRelease publishes spec. The tag is created by the host on
// spec.Target when it does not exist yet.
func (c *Client) CreateRelease(ctx context.Context, spec rema.ReleaseSpec) error {
	_, err := c.run(ctx, createArgs(spec)...)
	return err
}

func createArgs(spec rema.ReleaseSpec) []string {
	args := []string{"release", "create", spec.Tag, "--title", spec.Title}
	if spec.Notes != "" {
		args = append(args, "--notes", spec.Notes)
	} else if !spec.GenerateNotes {
		args = append(args, "--notes", "")
	}
	if spec.GenerateNotes {
		args = append(args, "--generate-notes")
	}
	if spec.Target != "" {
		args = append(args, "--target", spec.Target)
	}
	if spec.Prerelease {
		args = append(args, "--prerelease")
	}
	return args
}

// DeleteRelease removes the release and its tag.
func (c *Client) DeleteRelease(ctx context.Context, tag string) error {
	_, err := c.run(ctx, "release", "delete", tag, "--yes", "--cleanup-tag")
	return err
}

// ErrReadOnly is returned by OfflineHost for any mutation.
var ErrReadOnly = errors.New("release host is read-only")

// OfflineHost serves releases from a file written by `rema releases export`
// or `gh release list --json`. It cannot publish.
type OfflineHost struct {
	fs   afero.Fs
	path string
}

var _ rema.ReleaseHost = (*OfflineHost)(nil)

// NewOfflineHost returns a host reading path from fsys.
func NewOfflineHost(fsys afero.Fs, path string) *OfflineHost {
	return &OfflineHost{fs: fsys, path: path}
}

// ListReleases reads the releases file.
func (h *OfflineHost) ListReleases(context.Context) ([]rema.Release, error) {
	return rema.ReadReleasesFile(h.fs, h.path)
}

// CreateRelease always fails with ErrReadOnly.
func (h *OfflineHost) CreateRelease(_ context.Context, spec rema.ReleaseSpec) error {
	return errors.Wrapf(ErrReadOnly, "cannot create %s", spec.Tag)
}

// DeleteRelease always fails with ErrReadOnly.
func (h *OfflineHost) DeleteRelease(_ context.Context, tag string) error {
	return errors.Wrapf(ErrReadOnly, "cannot delete %s", tag)
}
