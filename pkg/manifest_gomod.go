package rema

import (
	"errors"
	"path"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
)

// goModEditor treats go.mod as a manifest without a version field. Major
// versions >= 2 are encoded in the module path, which is the only thing
// rewritten.
type goModEditor struct{}

func parseGoMod(f *ManifestFile, data []byte) (*modfile.File, error) {
	name := "go.mod"
	if f != nil {
		name = f.Path
	}
	mf, err := modfile.Parse(name, data, nil)
	if err != nil {
		return nil, err
	}
	if mf.Module == nil {
		return nil, errors.New("module directive not found")
	}
	return mf, nil
}

func (goModEditor) readVersion(*ManifestFile, []byte) (string, error) {
	return "", nil
}

// readName returns the last element of the module path without its major
// version suffix, e.g. "tiger" for "example.com/zoo/tiger/v3".
func (goModEditor) readName(f *ManifestFile, data []byte) (string, error) {
	mf, err := parseGoMod(f, data)
	if err != nil {
		return "", err
	}
	base, _, ok := module.SplitPathVersion(mf.Module.Mod.Path)
	if !ok {
		base = mf.Module.Mod.Path
	}
	return path.Base(base), nil
}

func (goModEditor) setVersion(f *ManifestFile, data []byte, v Version) ([]byte, error) {
	mf, err := parseGoMod(f, data)
	if err != nil {
		return nil, err
	}
	oldPath := mf.Module.Mod.Path
	basePath, _, ok := module.SplitPathVersion(oldPath)
	if !ok {
		basePath = oldPath
	}

	newPath := basePath
	if maj := semver.Major(v.canonical()); maj != "v0" && maj != "v1" {
		newPath = basePath + "/" + maj
	}
	if newPath == oldPath {
		return data, nil
	}

	// update both AST and logical path
	mf.Module.Mod.Path = newPath
	if mf.Module.Syntax != nil && len(mf.Module.Syntax.Token) >= 2 {
		mf.Module.Syntax.Token[1] = newPath
	}
	return mf.Format()
}
