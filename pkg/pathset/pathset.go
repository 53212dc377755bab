// pkg/pathset/pathset.go
package pathset

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrConflict indicates two different sources were assigned the same target
	ErrConflict = errors.New("conflicting sources for the same target")

	// ErrInvalidPath indicates a source or target path failed validation
	ErrInvalidPath = errors.New("invalid path")
)

// ConflictError reports a target that is already owned by another source
type ConflictError struct {
	Target   string // Normalized target path
	Existing string // Source already recorded for Target
	Given    string // Source that was rejected
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting sources for the same target. Target: %s, Existing Source: %s, Given Source: %s",
		e.Target, e.Existing, e.Given)
}

// Is makes errors.Is(err, ErrConflict) match
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Entry is one recorded (source, target) pair
type Entry struct {
	Source string
	Target string
}

// Set maps normalized relative targets to the single absolute source allowed
// to produce them. It only grows.
type Set struct {
	caseFold bool
	index    map[string]int
	entries  []Entry
}

// New creates an empty set. caseFold selects case-insensitive target
// comparison, as on Windows and macOS file systems.
func New(caseFold bool) *Set {
	return &Set{
		caseFold: caseFold,
		index:    make(map[string]int),
	}
}

// Add records source as the producer of target. It returns true when the
// pair was newly added and false when the identical pair was already present.
// A different source for an existing target yields a *ConflictError and
// leaves the set unchanged.
func (s *Set) Add(source, target string) (bool, error) {
	src, err := CleanSource(source)
	if err != nil {
		return false, err
	}
	tgt, err := CleanTarget(target)
	if err != nil {
		return false, err
	}

	key := s.key(tgt)
	if i, ok := s.index[key]; ok {
		existing := s.entries[i].Source
		if s.sameSource(existing, src) {
			return false, nil
		}
		return false, &ConflictError{Target: tgt, Existing: existing, Given: src}
	}

	s.index[key] = len(s.entries)
	s.entries = append(s.entries, Entry{Source: src, Target: tgt})
	return true, nil
}

// Lookup returns the source recorded for target
func (s *Set) Lookup(target string) (string, bool) {
	tgt, err := CleanTarget(target)
	if err != nil {
		return "", false
	}
	i, ok := s.index[s.key(tgt)]
	if !ok {
		return "", false
	}
	return s.entries[i].Source, true
}

// Len returns the number of recorded targets
func (s *Set) Len() int {
	return len(s.entries)
}

// Entries returns the recorded pairs in insertion order
func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Key returns the comparison key used for target
func (s *Set) Key(target string) (string, error) {
	tgt, err := CleanTarget(target)
	if err != nil {
		return "", err
	}
	return s.key(tgt), nil
}

func (s *Set) key(target string) string {
	if s.caseFold {
		return strings.ToLower(target)
	}
	return target
}

// sameSource compares sources exactly; only targets are case folded
func (s *Set) sameSource(a, b string) bool {
	return filepath.ToSlash(a) == filepath.ToSlash(b)
}

// CleanTarget normalizes a target to a clean slash-separated relative path.
// Absolute paths and paths whose first segment is "." or ".." are rejected.
func CleanTarget(target string) (string, error) {
	t := strings.ReplaceAll(target, `\`, "/")
	if t == "" {
		return "", fmt.Errorf("%w: target path is empty", ErrInvalidPath)
	}
	if path.IsAbs(t) || filepath.VolumeName(target) != "" || hasDriveLetter(t) {
		return "", fmt.Errorf("%w: target path must be relative, given: %s", ErrInvalidPath, target)
	}
	if dotSegment(t) || dotSegment(path.Clean(t)) {
		return "", fmt.Errorf("%w: relative paths such as '.' or '..' are not allowed, given: %s", ErrInvalidPath, target)
	}
	return path.Clean(t), nil
}

// CleanSource normalizes a source path, which must be absolute
func CleanSource(source string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("%w: source path is empty", ErrInvalidPath)
	}
	if !IsAbs(source) {
		return "", fmt.Errorf("%w: source path must be absolute, given: %s", ErrInvalidPath, source)
	}
	return filepath.Clean(source), nil
}

// IsAbs reports whether p is absolute on the host or rooted with a separator
func IsAbs(p string) bool {
	return filepath.IsAbs(p) || strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`)
}

func dotSegment(p string) bool {
	first, _, _ := strings.Cut(p, "/")
	return first == "." || first == ".."
}

func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
