// Package manifest handles nsscomp.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents an nsscomp.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Source  Source      `toml:"source"`
	Output  Output      `toml:"output"`
	Cache   CacheConfig `toml:"cache"`

	// Dir is the directory containing the nsscomp.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs     []string `toml:"dirs"`
	Includes []string `toml:"includes"`
	Pattern  string   `toml:"pattern"`
}

// Output configures artifact output.
type Output struct {
	Dir   string `toml:"dir"`
	Debug bool   `toml:"debug"`
}

// CacheConfig configures the incremental build cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load parses an nsscomp.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "nsscomp.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Source.Pattern == "" {
		m.Source.Pattern = "*.nss"
	}
	if m.Cache.Enabled && m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".nsscomp", "cache.db")
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an nsscomp.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "nsscomp.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// IncludePaths returns absolute paths for the configured include directories.
func (m *Manifest) IncludePaths() []string {
	var paths []string
	for _, d := range m.Source.Includes {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// OutputDir returns the absolute artifact output directory, or "" when
// artifacts go next to their sources.
func (m *Manifest) OutputDir() string {
	if m.Output.Dir == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.Output.Dir)
}

// CachePath returns the absolute cache database path, or "" when the cache
// is disabled.
func (m *Manifest) CachePath() string {
	if !m.Cache.Enabled {
		return ""
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}
