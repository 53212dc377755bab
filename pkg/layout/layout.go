// pkg/layout/layout.go
package layout

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Virtual directories of the deployed tree. Anything else is the mirror of
// the interpreter's installation prefix.
const (
	BinDir = "bin"  // Interpreter and its shared libraries
	LibDir = "lib"  // Bundled standard-library mirror
	GemDir = "gems" // Package-manager files outside the installation prefix
	SrcDir = "src"  // Application sources
)

// ExtractRoot is the placeholder the extractor replaces with the directory
// the artifact was unpacked into.
const ExtractRoot = "|"

// Class names the destination class a file was assigned to
type Class string

const (
	ClassBin    Class = "bin"
	ClassLib    Class = "lib"
	ClassGems   Class = "gems"
	ClassSrc    Class = "src"
	ClassPrefix Class = "prefix"
)

// Layout carries the host locations placement decisions are made against
type Layout struct {
	ExecPrefix   string   // Interpreter installation prefix
	PackageRoots []string // Package-manager roots outside the prefix
	SiteLibDir   string   // Interpreter site library directory (under ExecPrefix)
}

// BinTarget places name directly under BinDir
func (l *Layout) BinTarget(name string) string {
	return path.Join(BinDir, filepath.Base(name))
}

// LibTarget places a slash-separated relative path under LibDir
func (l *Layout) LibTarget(rel string) string {
	return path.Join(LibDir, filepath.ToSlash(rel))
}

// UnderPrefix reports whether source lies inside the installation prefix
func (l *Layout) UnderPrefix(source string) bool {
	return l.ExecPrefix != "" && IsSubpath(source, l.ExecPrefix)
}

// PrefixTarget mirrors source at its position relative to the installation prefix
func (l *Layout) PrefixTarget(source string) (string, error) {
	if !l.UnderPrefix(source) {
		return "", fmt.Errorf("%s is not under the installation prefix %s", source, l.ExecPrefix)
	}
	return Rel(l.ExecPrefix, source)
}

// PackageRoot returns the first package-manager root containing source
func (l *Layout) PackageRoot(source string) (string, bool) {
	for _, root := range l.PackageRoots {
		if IsSubpath(source, root) {
			return root, true
		}
	}
	return "", false
}

// GemTarget mirrors source under GemDir relative to its package-manager root
func (l *Layout) GemTarget(source, root string) (string, error) {
	rel, err := Rel(root, source)
	if err != nil {
		return "", err
	}
	return path.Join(GemDir, rel), nil
}

// SiteTarget places source in the site library mirror, relative to the
// search-path entry it was found through.
func (l *Layout) SiteTarget(source, loadPath string) (string, error) {
	site, err := Rel(l.ExecPrefix, l.SiteLibDir)
	if err != nil {
		return "", fmt.Errorf("site library directory: %w", err)
	}
	rel, err := Rel(loadPath, source)
	if err != nil {
		return "", err
	}
	return path.Join(site, rel), nil
}

// SourceTarget resolves an application source file: prefix mirror when it
// lives in the installation, SrcDir relative to rootPrefix when below it,
// otherwise SrcDir plus its base name.
func (l *Layout) SourceTarget(source, rootPrefix string) (string, Class, error) {
	if l.UnderPrefix(source) {
		t, err := Rel(l.ExecPrefix, source)
		return t, ClassPrefix, err
	}
	if IsSubpath(source, rootPrefix) {
		rel, err := Rel(rootPrefix, source)
		if err != nil {
			return "", ClassSrc, err
		}
		return path.Join(SrcDir, rel), ClassSrc, nil
	}
	return path.Join(SrcDir, filepath.Base(source)), ClassSrc, nil
}

// EnvPath renders a layout-relative path as an env value rooted at the
// extraction directory. Absolute paths are kept as they are.
func EnvPath(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return ExtractRoot + "/" + filepath.ToSlash(rel)
}

// Rel returns target relative to base as a slash-separated path. It fails
// when target is not inside base.
func Rel(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is not inside %s", target, base)
	}
	return rel, nil
}

// IsSubpath reports whether p lies strictly below base
func IsSubpath(p, base string) bool {
	if base == "" {
		return false
	}
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, "../")
}
