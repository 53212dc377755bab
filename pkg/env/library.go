// pkg/env/library.go
package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/arc-language/stubpack/pkg/platform"
)

// ErrLibraryNotFound indicates no directory holds the requested library
var ErrLibraryNotFound = errors.New("library not found")

// FindLibrary searches dirs for a shared library. An exact file name wins;
// otherwise name is tried with the platform's extensions, with and without
// a "lib" prefix, and finally as a versioned file (libname.so.3).
func FindLibrary(dirs []string, name string, p *platform.Platform) (*Library, error) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, candidate := range candidates(name, p) {
			full := filepath.Join(dir, candidate)
			if fileExists(full) {
				return &Library{Name: candidate, Path: full}, nil
			}
		}

		if p.OS != "windows" {
			matches, _ := filepath.Glob(filepath.Join(dir, "lib"+name+".so.*"))
			if len(matches) > 0 {
				sort.Strings(matches)
				return &Library{Name: filepath.Base(matches[0]), Path: matches[0]}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s (searched %v)", ErrLibraryNotFound, name, dirs)
}

func candidates(name string, p *platform.Platform) []string {
	out := []string{name}
	if p.HasSharedLibraryExt(name) {
		return out
	}
	for _, ext := range p.SharedLibraryExtensions() {
		out = append(out, name+ext, "lib"+name+ext)
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
