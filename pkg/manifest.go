package rema

import (
	"fmt"
	"io/fs"
)

// Format identifies how a manifest file stores its version.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
	FormatGoMod Format = "gomod"
)

// ManifestFile is one local file that declares a package version.
type ManifestFile struct {
	Path    string
	Format  Format
	Version string // declared version as found on disk, "" when absent
	Table   string // TOML table owning the version ("" for top level)
}

// ManifestRef groups the files of one local package: a primary manifest
// and an optional lock-like companion kept in lock-step with it.
type ManifestRef struct {
	Name      string
	Primary   *ManifestFile
	Companion *ManifestFile
}

// Files returns the present files, primary first.
func (m *ManifestRef) Files() []*ManifestFile {
	if m == nil {
		return nil
	}
	var files []*ManifestFile
	if m.Primary != nil {
		files = append(files, m.Primary)
	}
	if m.Companion != nil {
		files = append(files, m.Companion)
	}
	return files
}

// Paths returns the paths of Files.
func (m *ManifestRef) Paths() []string {
	var paths []string
	for _, f := range m.Files() {
		paths = append(paths, f.Path)
	}
	return paths
}

// DeclaredVersion is the version written in the primary manifest.
func (m *ManifestRef) DeclaredVersion() string {
	if m == nil || m.Primary == nil {
		return ""
	}
	return m.Primary.Version
}

// ManifestBackup holds what is needed to undo one manifest write.
type ManifestBackup struct {
	Path     string
	Original string
	Mode     fs.FileMode
}

// versionEditor reads and rewrites the version field of one document
// format. setVersion must leave every other byte of the document intact
// where the format allows it.
type versionEditor interface {
	readVersion(f *ManifestFile, data []byte) (string, error)
	readName(f *ManifestFile, data []byte) (string, error)
	setVersion(f *ManifestFile, data []byte, v Version) ([]byte, error)
}

func editorFor(format Format) (versionEditor, error) {
	switch format {
	case FormatJSON:
		return jsonEditor{}, nil
	case FormatYAML:
		return yamlEditor{}, nil
	case FormatTOML:
		return tomlEditor{}, nil
	case FormatGoMod:
		return goModEditor{}, nil
	}
	return nil, fmt.Errorf("unsupported manifest format %q", format)
}
