// stubpack.go
package stubpack

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/arc-language/stubpack/pkg/builder"
	"github.com/arc-language/stubpack/pkg/container"
	"github.com/arc-language/stubpack/pkg/core"
	"github.com/arc-language/stubpack/pkg/discovery"
	"github.com/arc-language/stubpack/pkg/installer"
	"github.com/arc-language/stubpack/pkg/placement"
	"github.com/arc-language/stubpack/pkg/platform"
	"github.com/charmbracelet/log"
)

// Re-export types for convenience
type (
	Config   = core.Config
	Manifest = discovery.Manifest
	Op       = builder.Op
	Summary  = placement.Summary
	Record   = container.Record
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return core.DefaultConfig()
}

// LoadManifest reads a discovery manifest
func LoadManifest(path string) (*Manifest, error) {
	return discovery.Load(path)
}

// Request describes one packaging run
type Request struct {
	Manifest  *Manifest         // Discovery output
	Sources   []string          // Additional files or directories to package
	Output    string            // Artifact path, or launcher name for installers
	Windowed  bool              // Use the windowed stub and interpreter
	Icon      string            // Optional icon for the artifact
	Installer *InstallerRequest // Build an installer instead of an artifact
}

// InstallerRequest selects the installer backend
type InstallerRequest struct {
	Script   string // Installer script to extend
	WorkDir  string // Where generated files go
	Compile  bool   // Run the installer compiler
	Compiler string // Compiler executable
}

// Output is what Build produced
type Output struct {
	Summary   *Summary
	Artifact  *container.Result // Set for self-contained artifacts
	Installer *installer.Result // Set for installer builds
}

// Packager turns discovery output into deployable artifacts
type Packager struct {
	config   *Config
	platform *platform.Platform
	logger   *log.Logger
}

// New creates a Packager. A nil config selects DefaultConfig, a nil logger
// discards output.
func New(cfg *Config, logger *log.Logger) (*Packager, error) {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	if logger == nil {
		logger = builder.DiscardLogger()
	}
	plat, err := cfg.Platform()
	if err != nil {
		return nil, &Error{Op: "configure", Err: fmt.Errorf("%w: %v", ErrInvalidConfig, err)}
	}
	return &Packager{config: cfg, platform: plat, logger: logger}, nil
}

// Platform returns the target platform
func (p *Packager) Platform() *platform.Platform {
	return p.platform
}

// Plan runs placement against an in-memory backend and returns the
// operations a build would emit
func (p *Packager) Plan(req *Request) ([]Op, *Summary, error) {
	m, err := p.prepare(req)
	if err != nil {
		return nil, nil, &Error{Op: "plan", Err: err}
	}
	engine, err := p.engine(req)
	if err != nil {
		return nil, nil, &Error{Op: "plan", Err: err}
	}

	rec := builder.NewRecorder(p.platform.CaseInsensitive)
	summary, err := engine.Place(m, builder.WithLogger(rec, p.logger))
	if err != nil {
		return nil, nil, &Error{Op: "plan", Err: err}
	}
	return rec.Ops(), summary, nil
}

// Build packages req into an artifact, or into an installer when
// req.Installer is set
func (p *Packager) Build(ctx context.Context, req *Request) (*Output, error) {
	if req.Installer != nil {
		return p.buildInstaller(ctx, req)
	}

	m, err := p.prepare(req)
	if err != nil {
		return nil, &Error{Op: "build", Path: req.Output, Err: err}
	}
	engine, err := p.engine(req)
	if err != nil {
		return nil, &Error{Op: "build", Path: req.Output, Err: err}
	}
	compressor, err := p.compressor()
	if err != nil {
		return nil, &Error{Op: "build", Path: req.Output, Err: err}
	}
	patcher, err := p.iconPatcher(req.Icon)
	if err != nil {
		return nil, &Error{Op: "build", Path: req.Output, Err: err}
	}

	p.logger.Infof("Building %s", req.Output)
	var summary *Summary
	res, err := container.Build(ctx, container.Options{
		Stub:         p.config.StubPath(req.Windowed, p.platform),
		Output:       req.Output,
		Platform:     p.platform,
		DebugMode:    p.config.Debug,
		DebugExtract: p.config.DebugExtract,
		ChdirBefore:  p.config.ChdirFirst,
		Compressor:   compressor,
		IconPatcher:  patcher,
		Logger:       p.logger,
	}, func(b *container.Builder) error {
		s, err := engine.Place(m, builder.WithLogger(b, p.logger))
		summary = s
		return err
	})
	if err != nil {
		return nil, &Error{Op: "build", Path: req.Output, Err: err}
	}

	p.logger.Infof("Finished building %s (%d bytes)", res.Path, res.Size)
	return &Output{Summary: summary, Artifact: res}, nil
}

func (p *Packager) buildInstaller(ctx context.Context, req *Request) (*Output, error) {
	m, err := p.prepare(req)
	if err != nil {
		return nil, &Error{Op: "build installer", Path: req.Output, Err: err}
	}
	engine, err := p.engine(req)
	if err != nil {
		return nil, &Error{Op: "build installer", Path: req.Output, Err: err}
	}

	var summary *Summary
	res, err := installer.Build(ctx, installer.Options{
		Output:      req.Output,
		Script:      req.Installer.Script,
		WorkDir:     req.Installer.WorkDir,
		Platform:    p.platform,
		ChdirBefore: p.config.ChdirFirst,
		Icon:        req.Icon,
		Compile:     req.Installer.Compile,
		Compiler:    req.Installer.Compiler,
		Quiet:       p.logger.GetLevel() > log.InfoLevel,
		Logger:      p.logger,
	}, func(b *installer.Builder) error {
		s, err := engine.Place(m, builder.WithLogger(b, p.logger))
		summary = s
		return err
	})
	if err != nil {
		return nil, &Error{Op: "build installer", Path: req.Output, Err: err}
	}
	return &Output{Summary: summary, Installer: res}, nil
}

// prepare validates the configuration and returns a copy of the manifest
// with every source expanded
func (p *Packager) prepare(req *Request) (*discovery.Manifest, error) {
	if err := p.config.Validate(req.Installer != nil); err != nil {
		return nil, err
	}
	if req.Manifest == nil {
		return nil, fmt.Errorf("%w: no discovery manifest", ErrInvalidConfig)
	}

	m := *req.Manifest
	given := append(append([]string(nil), m.Sources...), req.Sources...)
	if len(given) == 0 && m.Script == "" {
		return nil, fmt.Errorf("%w: no script given", ErrInvalidConfig)
	}

	if m.Script == "" {
		script, err := filepath.Abs(given[0])
		if err != nil {
			return nil, err
		}
		m.Script = script
	}
	if info, err := os.Stat(m.Script); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: script %s is a directory", ErrInvalidConfig, m.Script)
	}

	sources, err := discovery.ExpandSources(given)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	m.Sources = sources
	return &m, nil
}

func (p *Packager) engine(req *Request) (*placement.Engine, error) {
	return placement.New(placement.Config{
		Platform:            p.platform,
		Env:                 p.config.Env,
		InterpreterOptions:  p.config.InterpreterOptions,
		Windowed:            req.Windowed,
		AutoDetectLibraries: p.config.AutoDetectLibraries,
		AddAllCore:          p.config.AddAllCore,
		AddAllEncodings:     p.config.AddAllEncodings,
		Logger:              p.logger,
	})
}

func (p *Packager) compressor() (container.Compressor, error) {
	switch p.config.Compression {
	case core.CompressionNone:
		return nil, nil
	case core.CompressionExec:
		path, err := platform.LookupTool(p.config.CompressorPath, p.config.StubDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompressor, err)
		}
		return &container.Exec{Path: path, Args: p.config.CompressorArgs}, nil
	default:
		return &container.LZMA{}, nil
	}
}

// iconPatcher runs the configured icon tool as "<tool> <executable> <icon>"
func (p *Packager) iconPatcher(icon string) (container.IconPatcher, error) {
	if icon == "" {
		return nil, nil
	}
	if p.config.IconTool == "" {
		return nil, fmt.Errorf("%w: an icon needs icon_tool", ErrInvalidConfig)
	}
	if _, err := os.Stat(icon); err != nil {
		return nil, fmt.Errorf("%w: icon %s: %v", ErrInvalidConfig, icon, err)
	}
	tool, err := platform.LookupTool(p.config.IconTool, p.config.StubDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return func(ctx context.Context, exe string) error {
		cmd := exec.CommandContext(ctx, tool, exe, icon)
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s: %w: %s", filepath.Base(tool), err, strings.TrimSpace(out.String()))
		}
		return nil
	}, nil
}

// Inspection is the decoded content of an artifact
type Inspection struct {
	Offset     int64
	Flags      container.Flags
	Compressed bool
	DataSize   int
	Records    []Record
}

// Inspect decodes the artifact at path
func Inspect(path string) (*Inspection, error) {
	a, err := container.ReadArtifact(path)
	if err != nil {
		return nil, &Error{Op: "inspect", Path: path, Err: err}
	}
	stream, err := a.Stream()
	if err != nil {
		return nil, &Error{Op: "inspect", Path: path, Err: err}
	}
	records, err := container.DecodeOps(stream)
	if err != nil {
		return nil, &Error{Op: "inspect", Path: path, Err: err}
	}
	return &Inspection{
		Offset:     a.Offset,
		Flags:      a.Flags,
		Compressed: a.Compressed(),
		DataSize:   len(stream),
		Records:    records,
	}, nil
}
