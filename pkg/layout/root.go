// pkg/layout/root.go
package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNoCommonRoot indicates the files share no common directory
var ErrNoCommonRoot = errors.New("no common directory contains all specified files")

// ResolveRoot returns the tightest directory containing every file that is
// not below excludePrefix. The search starts at the first file's directory
// and only ever moves up. Excluded files place no constraint on the result
// but are not removed from anything; they are placed later by other rules.
//
// A filesystem root is only accepted when one of the files lives directly
// in it, so files from unrelated top-level trees are reported as an error
// whatever their order.
func ResolveRoot(files []string, excludePrefix string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("%w: no files given", ErrNoCommonRoot)
	}

	root := filepath.Dir(filepath.Clean(files[0]))
	roots := make(map[string]bool)
	if isVolumeRoot(root) {
		roots[root] = true
	}
	var considered []string
	for _, file := range files {
		file = filepath.Clean(file)
		if excludePrefix != "" && IsSubpath(file, excludePrefix) {
			continue
		}
		considered = append(considered, file)
		if dir := filepath.Dir(file); isVolumeRoot(dir) {
			roots[dir] = true
		}
	}

	for _, file := range considered {
		next, ok := ascend(root, file, roots)
		if !ok {
			return "", fmt.Errorf("%w: %s is outside %s", ErrNoCommonRoot, file, root)
		}
		root = next
	}
	return root, nil
}

// ascend walks from candidate upward and returns the first directory from
// which file does not need a parent reference. Only the filesystem roots in
// allowed may be reached.
func ascend(candidate, file string, allowed map[string]bool) (string, bool) {
	for {
		rel, err := filepath.Rel(candidate, file)
		if err != nil {
			return "", false
		}
		rel = filepath.ToSlash(rel)
		if rel != ".." && !strings.HasPrefix(rel, "../") {
			return candidate, true
		}

		parent := filepath.Dir(candidate)
		if parent == candidate {
			return "", false
		}
		if isVolumeRoot(parent) && !allowed[parent] {
			return "", false
		}
		candidate = parent
	}
}

func isVolumeRoot(dir string) bool {
	return filepath.Dir(dir) == dir
}
