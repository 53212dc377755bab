// pkg/placement/core.go
package placement

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/arc-language/stubpack/pkg/layout"
)

// coreLibraryPattern matches standard, site and vendor library directories
// such as .../ruby/3.1.0, .../ruby/site_ruby/3.1.0 and .../ruby/vendor_ruby/3.1.0
var coreLibraryPattern = regexp.MustCompile(`(?i)/(ruby/(?:site_ruby/|vendor_ruby/)?\d+\.\d+\.\d+)/?$`)

// placeCore copies every regular file of the standard library directories
// found on the pre-probe search path into LIB
func (r *run) placeCore() error {
	r.logger.Info("Will include all core libraries")
	for _, lp := range r.m.Pre.LoadPath {
		match := coreLibraryPattern.FindStringSubmatch(filepath.ToSlash(lp))
		if match == nil {
			continue
		}
		subdir := match[1]

		err := walkFiles(lp, func(file string) error {
			rel, err := layout.Rel(lp, file)
			if err != nil {
				return err
			}
			return r.b.CreateFile(file, r.lay.LibTarget(path.Join(subdir, rel)))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// placeEncodings mirrors the encoding support libraries below every
// post-probe search path entry inside the installation prefix
func (r *run) placeEncodings() error {
	for _, lp := range r.m.Post.LoadPath {
		if !r.lay.UnderPrefix(lp) {
			continue
		}
		enc := filepath.Join(lp, "enc")
		if info, err := os.Stat(enc); err != nil || !info.IsDir() {
			continue
		}

		var files []string
		err := walkFiles(enc, func(file string) error {
			if r.isExtension(file) {
				files = append(files, file)
			}
			return nil
		})
		if err != nil {
			return err
		}

		r.logger.Infof("Including %d encoding support files", len(files))
		for _, file := range files {
			if err := r.mirror(file); err != nil {
				return err
			}
		}
	}
	return nil
}

// walkFiles calls fn for every regular file below root. A missing root is
// skipped.
func walkFiles(root string, fn func(string) error) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		return fn(p)
	})
}

// isExtension reports whether file is a compiled extension. Extensions keep
// the .so suffix even on Windows.
func (r *run) isExtension(file string) bool {
	return strings.EqualFold(filepath.Ext(file), ".so") || r.cfg.Platform.HasSharedLibraryExt(file)
}
