// errors.go
package stubpack

import (
	"fmt"

	"github.com/arc-language/stubpack/pkg/builder"
	"github.com/arc-language/stubpack/pkg/container"
	"github.com/arc-language/stubpack/pkg/core"
	"github.com/arc-language/stubpack/pkg/discovery"
	"github.com/arc-language/stubpack/pkg/installer"
	"github.com/arc-language/stubpack/pkg/layout"
	"github.com/arc-language/stubpack/pkg/pathset"
	"github.com/arc-language/stubpack/pkg/placement"
)

var (
	// ErrConflict indicates two different sources were assigned the same target
	ErrConflict = pathset.ErrConflict

	// ErrInvalidPath indicates a source or target path failed validation
	ErrInvalidPath = pathset.ErrInvalidPath

	// ErrNoCommonRoot indicates the sources share no common directory
	ErrNoCommonRoot = layout.ErrNoCommonRoot

	// ErrUnplaceable indicates a package file outside every known root
	ErrUnplaceable = placement.ErrUnplaceable

	// ErrStringTooLong indicates a path or value exceeds the string limit
	ErrStringTooLong = container.ErrStringTooLong

	// ErrSizeTooLarge indicates a file or offset exceeds the size limit
	ErrSizeTooLarge = container.ErrSizeTooLarge

	// ErrEntryPointSet indicates the entry point was set twice
	ErrEntryPointSet = builder.ErrEntryPointSet

	// ErrSourceMissing indicates a file to embed does not exist
	ErrSourceMissing = container.ErrSourceMissing

	// ErrCompressor indicates the compressor failed
	ErrCompressor = container.ErrCompressor

	// ErrBadArtifact indicates an artifact could not be decoded
	ErrBadArtifact = container.ErrBadArtifact

	// ErrInvalidConfig indicates an unusable option combination
	ErrInvalidConfig = core.ErrInvalidConfig

	// ErrInvalidManifest indicates a malformed discovery manifest
	ErrInvalidManifest = discovery.ErrInvalidManifest

	// ErrCompile indicates the installer compiler failed
	ErrCompile = installer.ErrCompile
)

// Error wraps an error with additional context
type Error struct {
	Op   string // Operation that failed
	Path string // Output or input path if applicable
	Err  error  // Underlying error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
