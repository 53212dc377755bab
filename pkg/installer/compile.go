// pkg/installer/compile.go
package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/arc-language/stubpack/pkg/platform"
)

// DefaultCompiler is the Inno Setup command line compiler
const DefaultCompiler = "ISCC"

// Compiler exit codes
const (
	exitSuccess           = 0
	exitInvalidParameters = 1
	exitCompilationFailed = 2
)

// ErrCompile indicates the installer compiler did not succeed
var ErrCompile = errors.New("installer compilation failed")

// CompileError reports a failed compiler run
type CompileError struct {
	ExitCode int
	Output   string
	Err      error
}

func (e *CompileError) Error() string {
	var msg string
	switch e.ExitCode {
	case exitSuccess:
		msg = fmt.Sprintf("%s reported success, but the system reported an error: %v", DefaultCompiler, e.Err)
	case exitInvalidParameters:
		msg = fmt.Sprintf("%s reports invalid command line parameters", DefaultCompiler)
	case exitCompilationFailed:
		msg = fmt.Sprintf("%s reports that compilation failed", DefaultCompiler)
	default:
		msg = fmt.Sprintf("%s failed to run. Is the Inno Setup directory in your PATH?", DefaultCompiler)
	}
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *CompileError) Unwrap() error { return e.Err }

func (e *CompileError) Is(target error) bool { return target == ErrCompile }

// Compile runs the installer compiler on script
func Compile(ctx context.Context, compiler, script string, quiet bool) error {
	if compiler == "" {
		compiler = DefaultCompiler
	}
	path, err := platform.LookupTool(compiler)
	if err != nil {
		return fmt.Errorf("%s command not found. Is the Inno Setup directory in your PATH?: %w", compiler, err)
	}

	var args []string
	if quiet {
		args = append(args, "/Q")
	}
	args = append(args, script)

	cmd := exec.CommandContext(ctx, path, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		ce := &CompileError{ExitCode: -1, Output: strings.TrimSpace(out.String()), Err: err}
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			ce.ExitCode = exitErr.ExitCode()
		case cmd.ProcessState != nil && cmd.ProcessState.Success():
			ce.ExitCode = exitSuccess
		}
		return ce
	}
	return nil
}
