// pkg/platform/utils.go
package platform

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// commandExists checks if a command is available in PATH
func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// LookupTool resolves an external tool. Names containing a separator are used
// as given; bare names are searched in dirs first and then in PATH.
func LookupTool(name string, dirs ...string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("tool name is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return name, nil
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	if !commandExists(name) {
		return "", fmt.Errorf("%s not found in PATH", name)
	}
	return exec.LookPath(name)
}

// ToNative rewrites forward slashes in p to the platform separator
func (p *Platform) ToNative(path string) string {
	if p.Separator == '/' {
		return path
	}
	return strings.ReplaceAll(path, "/", string(p.Separator))
}

// JoinList joins search-path entries with the platform list separator
func (p *Platform) JoinList(entries []string) string {
	return strings.Join(entries, string(p.ListSeparator))
}

// HasSharedLibraryExt reports whether name carries a shared library extension
func (p *Platform) HasSharedLibraryExt(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range p.SharedLibraryExtensions() {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	// Versioned ELF names such as libfoo.so.3
	if p.OS != "windows" && strings.Contains(strings.ToLower(filepath.Base(name)), ".so.") {
		return true
	}
	return false
}
