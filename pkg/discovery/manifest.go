// pkg/discovery/manifest.go
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest indicates the discovery manifest is malformed
var ErrInvalidManifest = errors.New("invalid discovery manifest")

// Load reads a discovery manifest. Files ending in .toml are decoded as TOML,
// everything else as YAML. Relative paths are resolved against the
// manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
		}
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving manifest directory: %w", err)
	}
	m.Absolutize(base)

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Absolutize resolves every relative path in m against base
func (m *Manifest) Absolutize(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}
	absAll := func(ps []string) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = abs(p)
		}
		return out
	}

	m.Interpreter = abs(m.Interpreter)
	if m.WindowedInterpreter != "" {
		m.WindowedInterpreter = abs(m.WindowedInterpreter)
	}
	m.InterpreterLibraries = absAll(m.InterpreterLibraries)
	m.ExecPrefix = abs(m.ExecPrefix)
	if m.BinDir != "" {
		m.BinDir = abs(m.BinDir)
	}
	if m.SiteLibDir != "" {
		m.SiteLibDir = abs(m.SiteLibDir)
	}
	m.PackageRoots = absAll(m.PackageRoots)
	m.Pre.LoadPath = absAll(m.Pre.LoadPath)
	m.Post.LoadPath = absAll(m.Post.LoadPath)
	if m.Pre.WorkDir != "" {
		m.Pre.WorkDir = abs(m.Pre.WorkDir)
	}
	if m.Post.WorkDir != "" {
		m.Post.WorkDir = abs(m.Post.WorkDir)
	}
	for i := range m.Files {
		m.Files[i].Path = abs(m.Files[i].Path)
		if m.Files[i].LoadPath != "" {
			m.Files[i].LoadPath = abs(m.Files[i].LoadPath)
		}
	}
	m.Sources = absAll(m.Sources)
	if m.Script != "" {
		m.Script = abs(m.Script)
	}
}

// Validate checks the fields placement depends on
func (m *Manifest) Validate() error {
	if m.Interpreter == "" || m.Interpreter == "." {
		return fmt.Errorf("%w: interpreter is required", ErrInvalidManifest)
	}
	if m.ExecPrefix == "" || m.ExecPrefix == "." {
		return fmt.Errorf("%w: exec_prefix is required", ErrInvalidManifest)
	}
	for _, f := range m.Files {
		if !f.Role.IsValid() {
			return fmt.Errorf("%w: unknown role %q for %s", ErrInvalidManifest, f.Role, f.Path)
		}
		if !filepath.IsAbs(f.Path) {
			return fmt.Errorf("%w: file path must be absolute: %s", ErrInvalidManifest, f.Path)
		}
	}
	return nil
}

// ExpandSources turns user-supplied paths into absolute source entries.
// A directory contributes every file and directory below it; an empty
// directory or a missing path is an error.
func ExpandSources(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%s not found", p)
			}
			return nil, fmt.Errorf("checking %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, abs)
			continue
		}

		var below []string
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == abs {
				return nil
			}
			below = append(below, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
		if len(below) == 0 {
			return nil, fmt.Errorf("%s is empty", p)
		}
		out = append(out, below...)
	}
	return out, nil
}
