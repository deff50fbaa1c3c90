// Package bundle loads a plugin's on-disk manifest and guards its
// install/start/stop lifecycle, the Go-native analogue of an OSGi bundle
// (spec's GLOSSARY "Plugin" entry: "a deployable unit with lifecycle
// states ... that can register and consume services").
package bundle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/corectk/pluginfw/fwerr"
	"github.com/corectk/pluginfw/version"
	"gopkg.in/yaml.v3"
)

const defaultMetatypeDir = "OSGI-INF/metatype"

// Dependency names another plugin (and an optional version constraint)
// that must be active before this plugin can start.
type Dependency struct {
	Name         string `yaml:"name"`
	VersionRange string `yaml:"versionRange,omitempty"`
}

// rawManifest mirrors plugin.yaml's on-disk shape before version parsing.
type rawManifest struct {
	Name         string       `yaml:"name"`
	Version      string       `yaml:"version"`
	Description  string       `yaml:"description,omitempty"`
	Location     string       `yaml:"location,omitempty"`
	Exports      []string     `yaml:"exports,omitempty"`
	MetatypeDir  string       `yaml:"metatypeDir,omitempty"`
	Dependencies []Dependency `yaml:"dependencies,omitempty"`
}

// Manifest describes a plugin directory's plugin.yaml: its identity,
// published interfaces, metatype schema location, and activation
// dependencies.
type Manifest struct {
	Name         string
	Version      version.Version
	Description  string
	Location     string
	Exports      []string
	MetatypeDir  string
	Dependencies []Dependency

	// Dir is the directory LoadManifest read plugin.yaml from. It is
	// empty for manifests built directly in code (e.g. in tests), in
	// which case MetatypeDir is not resolvable to a filesystem path.
	Dir string
}

// LoadManifest reads and parses a plugin.yaml (or plugin.yml) file from
// path. If path is a directory, it looks for plugin.yaml or plugin.yml in
// that directory.
func LoadManifest(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	manifestPath := path
	dir := filepath.Dir(path)
	if info.IsDir() {
		dir = path
		yamlPath := filepath.Join(path, "plugin.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			manifestPath = yamlPath
		} else if ymlPath := filepath.Join(path, "plugin.yml"); fileExists(ymlPath) {
			manifestPath = ymlPath
		} else {
			return nil, fmt.Errorf("no plugin.yaml or plugin.yml found in %s", path)
		}
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if raw.Name == "" {
		return nil, fwerr.InvalidArgumentf("bundle", "LoadManifest", "manifest at %s has no name", manifestPath)
	}

	ver, err := version.Parse(raw.Version)
	if err != nil {
		return nil, fwerr.InvalidArgumentf("bundle", "LoadManifest", "manifest %s has invalid version %q: %v", raw.Name, raw.Version, err)
	}

	metatypeDir := raw.MetatypeDir
	if metatypeDir == "" {
		metatypeDir = defaultMetatypeDir
	}

	return &Manifest{
		Name:         raw.Name,
		Version:      ver,
		Description:  raw.Description,
		Location:     raw.Location,
		Exports:      raw.Exports,
		MetatypeDir:  metatypeDir,
		Dependencies: raw.Dependencies,
		Dir:          dir,
	}, nil
}

// MetatypeFiles returns the paths of every *.xml file under the
// manifest's MetatypeDir, or nil if the manifest has no Dir (it was
// built in code rather than loaded from disk) or the directory does not
// exist.
func (m *Manifest) MetatypeFiles() ([]string, error) {
	if m.Dir == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(m.Dir, m.MetatypeDir, "*.xml"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob metatype directory: %w", err)
	}
	return matches, nil
}

// LoadManifestFromDir searches for plugin.yaml starting at dir and
// walking up to parent directories until found or the filesystem root is
// reached.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		m, err := LoadManifest(absDir)
		if err == nil {
			return m, nil
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			return nil, fmt.Errorf("no plugin.yaml found in %s or parent directories", dir)
		}
		absDir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
