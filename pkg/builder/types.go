// pkg/builder/types.go
package builder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEntryPointSet indicates SetEntryPoint was called twice
var ErrEntryPointSet = errors.New("entry point already set")

// ErrTouchUnsupported indicates the backend cannot synthesize marker files
var ErrTouchUnsupported = errors.New("backend cannot create placeholder files")

// Builder is the operation set placement emits into. Implementations must
// treat repeated identical CreateDirectory/CreateFile calls as no-ops, reject
// a different source for an existing target, let the last SetEnvironment for
// a name win, and fail a second SetEntryPoint with ErrEntryPointSet.
type Builder interface {
	// CreateDirectory records a directory at a layout-relative target
	CreateDirectory(target string) error

	// CreateFile records the contents of source at a layout-relative target
	CreateFile(source, target string) error

	// SetEnvironment records an environment variable for the launched script
	SetEnvironment(name, value string) error

	// SetEntryPoint records the interpreter and script to launch
	SetEntryPoint(interpreter, script string, args ...string) error
}

// Toucher is implemented by builders that can synthesize zero-byte files
type Toucher interface {
	Touch(target string) error
}

// Touch creates a zero-byte marker file through b
func Touch(b Builder, target string) error {
	t, ok := b.(Toucher)
	if !ok {
		return fmt.Errorf("touch %s: %w", target, ErrTouchUnsupported)
	}
	return t.Touch(target)
}

// OpKind identifies a recorded operation
type OpKind int

const (
	OpCreateDirectory OpKind = iota + 1
	OpCreateFile
	OpSetEnvironment
	OpSetEntryPoint
)

func (k OpKind) String() string {
	switch k {
	case OpCreateDirectory:
		return "mkdir"
	case OpCreateFile:
		return "cp"
	case OpSetEnvironment:
		return "export"
	case OpSetEntryPoint:
		return "exec"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op is one emitted build operation
type Op struct {
	Kind   OpKind
	Source string   // CreateFile source; empty for a touched placeholder
	Target string   // CreateDirectory/CreateFile target
	Name   string   // SetEnvironment name
	Value  string   // SetEnvironment value
	Args   []string // SetEntryPoint: interpreter, script, arguments...
}

func (o Op) String() string {
	switch o.Kind {
	case OpCreateDirectory:
		return "mkdir " + o.Target
	case OpCreateFile:
		if o.Source == "" {
			return "touch " + o.Target
		}
		return "cp " + o.Source + " " + o.Target
	case OpSetEnvironment:
		return "export " + o.Name + "=" + o.Value
	case OpSetEntryPoint:
		return "exec " + strings.Join(o.Args, " ")
	default:
		return o.Kind.String()
	}
}
