package rema

import (
	"bytes"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ManifestWriter writes a target version into the manifest files of a package.
type ManifestWriter struct {
	fs afero.Fs
	l  *zap.Logger
}

// WriterOption configures a ManifestWriter.
type WriterOption func(*ManifestWriter)

// WriterLogger injects a logger.
func WriterLogger(l *zap.Logger) WriterOption {
	return func(w *ManifestWriter) {
		if l != nil {
			w.l = l
		}
	}
}

// NewManifestWriter builds a writer on fsys; a nil fsys means the OS filesystem.
func NewManifestWriter(fsys afero.Fs, opts ...WriterOption) *ManifestWriter {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	w := &ManifestWriter{fs: fsys, l: zap.NewNop()}
	for _, apply := range opts {
		apply(w)
	}
	return w
}

// Write sets the version of every manifest associated with target, primary
// first. It returns one backup per file it actually changed. When a later
// file fails, files already written are restored before the error is
// returned. A target without manifests is a no-op.
func (w *ManifestWriter) Write(target ReleaseRecord) ([]ManifestBackup, error) {
	var backups []ManifestBackup
	for _, f := range target.Manifest.Files() {
		b, changed, err := w.writeOne(f, target.Version)
		if err != nil {
			if rerr := w.Restore(backups); rerr != nil {
				err = multierr.Append(err, rerr)
			}
			return nil, err
		}
		if changed {
			backups = append(backups, b)
		}
	}
	return backups, nil
}

// Preview reports the files Write would change, without touching them.
func (w *ManifestWriter) Preview(target ReleaseRecord) ([]string, error) {
	var paths []string
	for _, f := range target.Manifest.Files() {
		original, updated, _, err := w.edit(f, target.Version)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(original, updated) {
			paths = append(paths, f.Path)
		}
	}
	return paths, nil
}

// Restore puts every backup back in place. All backups are attempted; the
// returned error combines each failure.
func (w *ManifestWriter) Restore(backups []ManifestBackup) error {
	var errs error
	for i := len(backups) - 1; i >= 0; i-- {
		b := backups[i]
		if err := w.writeAtomic(b.Path, []byte(b.Original), b.Mode); err != nil {
			errs = multierr.Append(errs, &ManifestError{Path: b.Path, Op: "restore", Err: err})
			continue
		}
		w.l.Debug("restored manifest", zap.String("path", b.Path))
	}
	return errs
}

func (w *ManifestWriter) edit(f *ManifestFile, v Version) (original, updated []byte, info ManifestBackup, err error) {
	editor, err := editorFor(f.Format)
	if err != nil {
		return nil, nil, info, &ManifestError{Path: f.Path, Op: "edit", Err: err}
	}
	st, err := w.fs.Stat(f.Path)
	if err != nil {
		return nil, nil, info, &ManifestError{Path: f.Path, Op: "read", Err: err}
	}
	original, err = afero.ReadFile(w.fs, f.Path)
	if err != nil {
		return nil, nil, info, &ManifestError{Path: f.Path, Op: "read", Err: err}
	}
	updated, err = editor.setVersion(f, original, v)
	if err != nil {
		return nil, nil, info, &ManifestError{Path: f.Path, Op: "edit", Err: err}
	}
	info = ManifestBackup{Path: f.Path, Original: string(original), Mode: st.Mode().Perm()}
	return original, updated, info, nil
}

func (w *ManifestWriter) writeOne(f *ManifestFile, v Version) (ManifestBackup, bool, error) {
	original, updated, backup, err := w.edit(f, v)
	if err != nil {
		return backup, false, err
	}
	if bytes.Equal(original, updated) {
		w.l.Debug("manifest already up to date", zap.String("path", f.Path))
		return backup, false, nil
	}
	if err := w.writeAtomic(f.Path, updated, backup.Mode); err != nil {
		return backup, false, &ManifestError{Path: f.Path, Op: "write", Err: err}
	}
	w.l.Info("updated manifest", zap.String("path", f.Path), zap.String("version", v.String()))
	return backup, true, nil
}

// writeAtomic writes data to a temporary file next to path and renames it
// over path, so readers never observe a half-written manifest.
func (w *ManifestWriter) writeAtomic(path string, data []byte, mode fs.FileMode) (err error) {
	tmp, err := afero.TempFile(w.fs, filepath.Dir(path), "."+filepath.Base(path)+".rema-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer func() {
		if err != nil {
			_ = w.fs.Remove(name)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if mode != 0 {
		if err = w.fs.Chmod(name, mode); err != nil {
			return err
		}
	}
	return w.fs.Rename(name, path)
}
