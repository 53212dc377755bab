// pkg/installer/builder.go
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arc-language/stubpack/pkg/builder"
	"github.com/arc-language/stubpack/pkg/env"
	"github.com/arc-language/stubpack/pkg/pathset"
	"github.com/arc-language/stubpack/pkg/platform"
	"github.com/charmbracelet/log"
)

// ErrNoEntryPoint indicates the build function never set an entry point
var ErrNoEntryPoint = errors.New("no entry point set")

// Options configures Build
type Options struct {
	Output      string             // Name of the installed launcher, e.g. app.exe
	Script      string             // Installer script to extend; may be empty
	WorkDir     string             // Where generated files go; the compiler resolves paths from here
	Platform    *platform.Platform // Target platform; nil selects the host
	ChdirBefore bool               // Start the script from the installed source directory
	Icon        string             // Optional icon installed next to the launcher
	Compile     bool               // Run the installer compiler
	Compiler    string             // Compiler executable; empty selects ISCC
	Quiet       bool               // Pass /Q to the compiler
	Logger      *log.Logger
}

// Result lists the generated files
type Result struct {
	Script   string // Rendered installer script
	Launcher string // Rendered launcher
	Compiled bool
}

// Builder collects the install tree. Directories and files are written to
// the installer script; environment and entry point go into the launcher.
type Builder struct {
	plat        *platform.Platform
	dirs        *pathset.Set
	files       *pathset.Set
	vars        env.Vars
	entry       []string
	entrySet    bool
	workDir     string
	placeholder string
}

var (
	_ builder.Builder = (*Builder)(nil)
	_ builder.Toucher = (*Builder)(nil)
)

// NewBuilder creates an empty Builder. Touched files are backed by an empty
// file created in workDir.
func NewBuilder(p *platform.Platform, workDir string) *Builder {
	return &Builder{
		plat:    p,
		dirs:    pathset.New(p.CaseInsensitive),
		files:   pathset.New(p.CaseInsensitive),
		workDir: workDir,
	}
}

// CreateDirectory implements builder.Builder
func (b *Builder) CreateDirectory(target string) error {
	_, err := b.dirs.Add(builder.DirectorySource, target)
	return err
}

// CreateFile implements builder.Builder. The source must exist.
func (b *Builder) CreateFile(source, target string) error {
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("the file does not exist (%s): %w", source, err)
	}
	_, err := b.files.Add(source, target)
	return err
}

// Touch implements builder.Toucher
func (b *Builder) Touch(target string) error {
	if b.placeholder == "" {
		f, err := os.CreateTemp(b.workDir, "empty-*")
		if err != nil {
			return fmt.Errorf("creating placeholder: %w", err)
		}
		f.Close()
		b.placeholder = f.Name()
	}
	_, err := b.files.Add(b.placeholder, target)
	return err
}

// SetEnvironment implements builder.Builder
func (b *Builder) SetEnvironment(name, value string) error {
	b.vars.Set(name, value)
	return nil
}

// SetEntryPoint implements builder.Builder
func (b *Builder) SetEntryPoint(interpreter, script string, args ...string) error {
	if b.entrySet {
		return builder.ErrEntryPointSet
	}
	b.entrySet = true
	b.entry = append([]string{interpreter, script}, args...)
	return nil
}

// Build runs fn against a new Builder, renders the launcher and the
// installer script into opts.WorkDir and optionally compiles them
func Build(ctx context.Context, opts Options, fn func(*Builder) error) (*Result, error) {
	if opts.Output == "" {
		return nil, errors.New("no output name given")
	}
	plat := opts.Platform
	if plat == nil {
		detected, err := platform.Detect()
		if err != nil {
			return nil, err
		}
		plat = detected
	}
	logger := opts.Logger
	if logger == nil {
		logger = builder.DiscardLogger()
	}

	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, err
	}

	b := NewBuilder(plat, workDir)
	if opts.Icon != "" {
		if err := b.CreateFile(opts.Icon, filepath.Base(opts.Icon)); err != nil {
			return nil, err
		}
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if !b.entrySet {
		return nil, ErrNoEntryPoint
	}

	name := launcherName(opts.Output, plat)
	launcher, err := b.Launcher(strings.TrimSuffix(filepath.Base(opts.Output), filepath.Ext(opts.Output)), opts.ChdirBefore)
	if err != nil {
		return nil, err
	}
	launcherPath, err := writeTemp(workDir, "launcher-*"+filepath.Ext(name), []byte(launcher))
	if err != nil {
		return nil, err
	}
	logger.Debugf("launcher %s:\n%s", name, launcher)

	var userScript []byte
	if opts.Script != "" {
		if userScript, err = os.ReadFile(opts.Script); err != nil {
			return nil, fmt.Errorf("reading installer script: %w", err)
		}
	}
	iss := b.Script(userScript, launcherPath, name)
	issPath, err := writeTemp(workDir, "setup-*.iss", []byte(iss))
	if err != nil {
		return nil, err
	}
	logger.Debugf("installer script %s:\n%s", issPath, iss)

	res := &Result{Script: issPath, Launcher: launcherPath}
	if opts.Compile {
		logger.Info("Running installer compiler")
		if err := Compile(ctx, opts.Compiler, issPath, opts.Quiet); err != nil {
			return nil, err
		}
		res.Compiled = true
	}
	return res, nil
}

// launcherName is the installed launcher's file name: a batch file on
// Windows, the bare name elsewhere
func launcherName(output string, p *platform.Platform) string {
	base := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))
	if p.OS == "windows" {
		return base + ".bat"
	}
	return base
}

func writeTemp(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", pattern, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}
