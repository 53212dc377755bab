// pkg/container/format.go
package container

import (
	"errors"
	"fmt"
)

// Opcode identifies a record in the operation stream
type Opcode byte

const (
	OpEnd             Opcode = 0
	OpCreateDirectory Opcode = 1
	OpCreateFile      Opcode = 2
	OpSetEnvironment  Opcode = 3
	OpSetEntryPoint   Opcode = 4
)

func (o Opcode) String() string {
	switch o {
	case OpEnd:
		return "END"
	case OpCreateDirectory:
		return "CREATE_DIRECTORY"
	case OpCreateFile:
		return "CREATE_FILE"
	case OpSetEnvironment:
		return "SET_ENVIRONMENT"
	case OpSetEntryPoint:
		return "SET_ENTRY_POINT"
	default:
		return fmt.Sprintf("OPCODE(%d)", byte(o))
	}
}

// Flags is the one-byte header preceding the operation stream
type Flags byte

const (
	FlagDebugMode         Flags = 0x01 // Extractor prints debug output
	FlagExtractToExeDir   Flags = 0x02 // Extract next to the artifact and keep the files
	FlagAutoCleanInstDir  Flags = 0x04 // Extract to the temp directory and delete afterwards
	FlagChdirBeforeScript Flags = 0x08 // Change into the source directory before launching
	FlagDataCompressed    Flags = 0x10 // Operation stream is compressed
)

// Has reports whether every bit of mask is set
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// HeaderFlags combines the build options into the header byte. Exactly one
// of FlagExtractToExeDir and FlagAutoCleanInstDir is set.
func HeaderFlags(debugMode, debugExtract, chdirBefore, compressed bool) Flags {
	var f Flags
	if debugMode {
		f |= FlagDebugMode
	}
	if debugExtract {
		f |= FlagExtractToExeDir
	} else {
		f |= FlagAutoCleanInstDir
	}
	if chdirBefore {
		f |= FlagChdirBeforeScript
	}
	if compressed {
		f |= FlagDataCompressed
	}
	return f
}

// Signature terminates every artifact, in file order. Extractors that
// memcmp against 41 B6 BA 4E expect these bytes reversed.
var Signature = [4]byte{0x4E, 0xBA, 0xB6, 0x41}

const (
	// MaxStringLen is the largest encoded string, terminating NUL included
	MaxStringLen = 0xFFFF

	// MaxSize is the largest value a size field can carry
	MaxSize = 0xFFFFFFFF

	// TrailerLen is the payload offset plus the signature
	TrailerLen = 8

	// SizeFieldLen is the uncompressed-size field written by the coder
	SizeFieldLen = 8
)

var (
	// ErrStringTooLong indicates a string does not fit its 16-bit length field
	ErrStringTooLong = errors.New("string too long for container")

	// ErrSizeTooLarge indicates a value does not fit a 32-bit size field
	ErrSizeTooLarge = errors.New("size too large for container")

	// ErrSourceMissing indicates a file to embed does not exist
	ErrSourceMissing = errors.New("source file does not exist")

	// ErrBadArtifact indicates an artifact could not be decoded
	ErrBadArtifact = errors.New("malformed artifact")

	// ErrCompressor indicates the compressor failed
	ErrCompressor = errors.New("compressor failed")
)
