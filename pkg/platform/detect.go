// pkg/platform/detect.go
package platform

import (
	"fmt"
	"runtime"
)

// Platform describes the system an artifact is built for
type Platform struct {
	OS              string // linux, darwin, windows
	Arch            string // amd64, arm64, 386, arm
	Separator       byte   // Directory separator written into the container
	ListSeparator   byte   // Separator for search-path lists in env values
	CaseInsensitive bool   // Whether target paths compare case-insensitively
	ExeSuffix       string // Executable file suffix (".exe" on Windows)
}

// Detect returns the platform of the running host
func Detect() (*Platform, error) {
	return ForOS(runtime.GOOS, runtime.GOARCH)
}

// ForOS returns the platform description for goos/goarch
func ForOS(goos, goarch string) (*Platform, error) {
	p := &Platform{
		OS:   goos,
		Arch: goarch,
	}

	switch goos {
	case "windows":
		p.Separator = '\\'
		p.ListSeparator = ';'
		p.CaseInsensitive = true
		p.ExeSuffix = ".exe"
	case "darwin":
		p.Separator = '/'
		p.ListSeparator = ':'
		p.CaseInsensitive = true
	case "linux", "freebsd", "openbsd", "netbsd":
		p.Separator = '/'
		p.ListSeparator = ':'
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", goos)
	}

	return p, nil
}

// SharedLibraryExtensions returns the shared library extensions for the platform
func (p *Platform) SharedLibraryExtensions() []string {
	switch p.OS {
	case "windows":
		return []string{".dll"}
	case "darwin":
		return []string{".dylib", ".bundle", ".so"}
	default:
		return []string{".so"}
	}
}

// String returns a string representation of the platform
func (p *Platform) String() string {
	return fmt.Sprintf("%s/%s (separator: %q, case-insensitive: %v)",
		p.OS, p.Arch, p.Separator, p.CaseInsensitive)
}
