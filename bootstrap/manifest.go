package bootstrap

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/nashorn-compat/errors"
)

// ManifestFile is the name of the bundle manifest.
const ManifestFile = "nashorn-compat.toml"

// Manifest describes a bundle: the compat plugin's packaging together with
// the components it ships.
type Manifest struct {
	Bundle BundleInfo `toml:"bundle"`

	// Dir is the directory containing the manifest (set at load time).
	Dir string `toml:"-"`
}

// BundleInfo is the [bundle] table.
type BundleInfo struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	// Dependencies are component files relative to the bundle directory.
	Dependencies []string `toml:"dependencies"`
}

// LoadManifest parses the manifest in dir.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDiscover, errors.KindNotFound, err, "read "+path)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.PhaseDiscover, errors.KindInvalidData, err, "parse "+path)
	}
	if m.Bundle.Name == "" {
		return nil, errors.InvalidData(errors.PhaseDiscover, []string{path, "bundle", "name"}, "bundle name is required")
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDiscover, errors.KindInvalidInput, err, "resolve "+dir)
	}
	return &m, nil
}

// DependencyPaths returns the declared dependencies as absolute paths.
func (m *Manifest) DependencyPaths() []string {
	paths := make([]string, 0, len(m.Bundle.Dependencies))
	for _, d := range m.Bundle.Dependencies {
		paths = append(paths, resolvePath(m.Dir, filepath.FromSlash(d)))
	}
	return paths
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.Dir, ManifestFile)
}
