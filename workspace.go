package main

import (
	"context"
	"path/filepath"

	rema "github.com/bcomnes/rema/pkg"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// workspace is the read-only view of the repository a release is planned on.
type workspace struct {
	releases []rema.Release
	history  rema.History
	latest   map[string]rema.ReleaseRecord
}

// loadWorkspace lists remote releases and scans local manifests
// concurrently, then indexes them. Malformed release tags are logged and
// skipped.
func (a *app) loadWorkspace(ctx context.Context) (*workspace, error) {
	var (
		releases  []rema.Release
		manifests []rema.ManifestRef
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := a.host.ListReleases(gctx)
		if err != nil {
			return errors.Wrap(err, "failed to list releases")
		}
		a.checkReleaseLimit(len(r))
		releases = r
		return nil
	})
	g.Go(func() error {
		m, err := rema.DiscoverManifests(gctx, a.fs, a.cfg.Dir, rema.DiscoverLogger(a.log))
		if err != nil {
			return errors.Wrap(err, "failed to read local manifests")
		}
		manifests = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	history, err := rema.AllVersions(rema.TagNames(releases))
	for _, e := range multierr.Errors(err) {
		a.log.Warn("skipping release", zap.Error(e))
	}
	latest, err := rema.MatchLocal(rema.Latest(history), manifests)
	if err != nil {
		return nil, err
	}
	return &workspace{releases: releases, history: history, latest: latest}, nil
}

// checkReleaseLimit warns when the release host returned exactly as many
// releases as it was asked for; older tags are then missing from the history.
func (a *app) checkReleaseLimit(n int) {
	if a.offline || a.cfg.ReleasesLimit <= 0 || n < a.cfg.ReleasesLimit {
		return
	}
	a.log.Warn("release list reached the configured limit; older releases are not considered",
		zap.Int("releases", n),
		zap.Int("limit", a.cfg.ReleasesLimit),
		zap.String("hint", "raise releases_limit or REMA_RELEASES_LIMIT"))
}

// relPath renders p relative to the repository directory when possible.
func (a *app) relPath(p string) string {
	if rel, err := filepath.Rel(a.cfg.Dir, p); err == nil {
		return rel
	}
	return p
}

func displayName(pkg string) string {
	if pkg == "" {
		return "(root)"
	}
	return pkg
}
