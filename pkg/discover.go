package rema

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// skipDirs are never descended into during discovery.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
}

// candidate describes how a manifest file name is read.
type candidate struct {
	format Format
	tables []string // TOML tables tried in order
}

var manifestNames = map[string]candidate{
	"package.json":   {format: FormatJSON},
	"Cargo.toml":     {format: FormatTOML, tables: []string{"package"}},
	"pyproject.toml": {format: FormatTOML, tables: []string{"project", "tool.poetry"}},
	"Chart.yaml":     {format: FormatYAML},
	"pubspec.yaml":   {format: FormatYAML},
	"go.mod":         {format: FormatGoMod},
}

// companionNames maps a primary manifest to its lock-step companion.
var companionNames = map[string]string{
	"package.json": "package-lock.json",
}

type discoverConfig struct {
	l           *zap.Logger
	concurrency int
}

// DiscoverOption configures DiscoverManifests.
type DiscoverOption func(*discoverConfig)

// DiscoverLogger injects a logger.
func DiscoverLogger(l *zap.Logger) DiscoverOption {
	return func(c *discoverConfig) {
		if l != nil {
			c.l = l
		}
	}
}

// DiscoverConcurrency bounds how many manifests are parsed at once.
func DiscoverConcurrency(n int) DiscoverOption {
	return func(c *discoverConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// DiscoverManifests walks root and returns one ManifestRef per local
// package, sorted by name. Files that declare no package name, and primary
// manifests that cannot be parsed, are skipped. When two manifests declare
// the same name, the one closest to root wins; at equal depth a manifest
// carrying a version field beats one without.
func DiscoverManifests(ctx context.Context, fsys afero.Fs, root string, opts ...DiscoverOption) ([]ManifestRef, error) {
	cfg := discoverConfig{l: zap.NewNop(), concurrency: runtime.GOMAXPROCS(0)}
	for _, apply := range opts {
		apply(&cfg)
	}

	var paths []string
	err := afero.Walk(fsys, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			if p != root && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := manifestNames[info.Name()]; ok {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s for manifests: %w", root, err)
	}

	refs := make([]*ManifestRef, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ref, err := loadManifest(fsys, p, cfg.l)
			if err != nil {
				return err
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Shallow paths first, so the outermost manifest claims a name.
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i] == nil || refs[j] == nil {
			return refs[j] == nil && refs[i] != nil
		}
		di := strings.Count(filepath.ToSlash(refs[i].Primary.Path), "/")
		dj := strings.Count(filepath.ToSlash(refs[j].Primary.Path), "/")
		if di != dj {
			return di < dj
		}
		vi, vj := refs[i].Primary.Version != "", refs[j].Primary.Version != ""
		if vi != vj {
			return vi
		}
		return refs[i].Primary.Path < refs[j].Primary.Path
	})

	seen := make(map[string]string)
	var out []ManifestRef
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		if first, dup := seen[ref.Name]; dup {
			cfg.l.Warn("ignoring duplicate manifest",
				zap.String("package", ref.Name),
				zap.String("path", ref.Primary.Path),
				zap.String("kept", first))
			continue
		}
		seen[ref.Name] = ref.Primary.Path
		cfg.l.Debug("found manifest",
			zap.String("package", ref.Name),
			zap.Strings("files", ref.Paths()))
		out = append(out, *ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// loadManifest reads the package name and version of the manifest at p and
// pairs it with its companion. A nil ref means the file declares no package
// or could not be parsed.
func loadManifest(fsys afero.Fs, p string, l *zap.Logger) (*ManifestRef, error) {
	c := manifestNames[filepath.Base(p)]
	primary, name, err := readManifestFile(fsys, p, c)
	var merr *ManifestError
	if errors.As(err, &merr) && merr.Op == "parse" {
		l.Warn("skipping unreadable manifest", zap.String("path", p), zap.Error(merr.Err))
		return nil, nil
	}
	if err != nil || primary == nil {
		return nil, err
	}
	ref := &ManifestRef{Name: name, Primary: primary}

	compName, ok := companionNames[filepath.Base(p)]
	if !ok {
		return ref, nil
	}
	compPath := filepath.Join(filepath.Dir(p), compName)
	exists, err := afero.Exists(fsys, compPath)
	if err != nil {
		return nil, &ManifestError{Path: compPath, Op: "read", Err: err}
	}
	if !exists {
		return ref, nil
	}
	companion, _, err := readManifestFile(fsys, compPath, candidate{format: c.format})
	if err != nil {
		return nil, err
	}
	if companion == nil {
		return ref, nil
	}
	if companion.Version != "" && companion.Version != primary.Version {
		return nil, &ManifestError{
			Path: compPath,
			Op:   "match",
			Err:  fmt.Errorf("version %q does not match %q in %s", companion.Version, primary.Version, p),
		}
	}
	ref.Companion = companion
	return ref, nil
}

func readManifestFile(fsys afero.Fs, p string, c candidate) (*ManifestFile, string, error) {
	data, err := afero.ReadFile(fsys, p)
	if err != nil {
		return nil, "", &ManifestError{Path: p, Op: "read", Err: err}
	}
	editor, err := editorFor(c.format)
	if err != nil {
		return nil, "", &ManifestError{Path: p, Op: "parse", Err: err}
	}

	tables := c.tables
	if len(tables) == 0 {
		tables = []string{""}
	}
	for _, table := range tables {
		f := &ManifestFile{Path: p, Format: c.format, Table: table}
		name, err := editor.readName(f, data)
		if err != nil {
			return nil, "", &ManifestError{Path: p, Op: "parse", Err: err}
		}
		if name == "" {
			continue
		}
		version, err := editor.readVersion(f, data)
		if err != nil {
			return nil, "", &ManifestError{Path: p, Op: "parse", Err: err}
		}
		f.Version = version
		return f, name, nil
	}
	return nil, "", nil
}
