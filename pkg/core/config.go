// pkg/core/config.go
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arc-language/stubpack/pkg/placement"
	"github.com/arc-language/stubpack/pkg/platform"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig indicates a configuration that cannot produce an artifact
var ErrInvalidConfig = errors.New("invalid configuration")

// Compression modes
const (
	CompressionLZMA = "lzma" // In-process coder
	CompressionExec = "exec" // External coder reading stdin, writing stdout
	CompressionNone = "none"
)

// Config holds stubpack configuration
type Config struct {
	StubDir             string             `yaml:"stub_dir"`
	ConsoleStub         string             `yaml:"console_stub"`
	WindowedStub        string             `yaml:"windowed_stub"`
	Compression         string             `yaml:"compression"`
	CompressorPath      string             `yaml:"compressor_path"`
	CompressorArgs      []string           `yaml:"compressor_args,omitempty"`
	TargetOS            string             `yaml:"target_os,omitempty"`
	Env                 placement.EnvNames `yaml:"env"`
	InterpreterOptions  string             `yaml:"interpreter_options,omitempty"`
	ChdirFirst          bool               `yaml:"chdir_first"`
	Debug               bool               `yaml:"debug"`
	DebugExtract        bool               `yaml:"debug_extract"`
	AutoDetectLibraries bool               `yaml:"auto_detect_libraries"`
	AddAllCore          bool               `yaml:"add_all_core"`
	AddAllEncodings     bool               `yaml:"add_all_encodings"`
	IconTool            string             `yaml:"icon_tool,omitempty"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		StubDir:             getDefaultStubDir(),
		ConsoleStub:         "stub",
		WindowedStub:        "stubw",
		Compression:         CompressionLZMA,
		CompressorPath:      "lzma",
		Env:                 placement.DefaultEnvNames(),
		AutoDetectLibraries: true,
		AddAllEncodings:     true,
	}
}

// DefaultConfigPath returns ~/.config/stubpack/config.yaml
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "stubpack", "config.yaml"), nil
}

// LoadConfig loads configuration from file. Values missing from the file
// keep their defaults; a missing file yields DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if dir := os.Getenv("STUBPACK_STUB_DIR"); dir != "" {
		cfg.StubDir = dir
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks option combinations before any file is touched. Installer
// builds need an uncompressed stream that is neither extracted next to the
// executable nor run outside the source directory.
func (c *Config) Validate(installer bool) error {
	switch c.Compression {
	case CompressionLZMA, CompressionNone:
	case CompressionExec:
		if c.CompressorPath == "" {
			return fmt.Errorf("%w: compression %q needs compressor_path", ErrInvalidConfig, c.Compression)
		}
	default:
		return fmt.Errorf("%w: unknown compression %q", ErrInvalidConfig, c.Compression)
	}

	if c.TargetOS != "" {
		if _, err := platform.ForOS(c.TargetOS, ""); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if c.Env.Options == "" || c.Env.ModulePath == "" || c.Env.PackagePath == "" {
		return fmt.Errorf("%w: environment variable names must not be empty", ErrInvalidConfig)
	}

	if installer {
		if c.Compression != CompressionNone {
			return fmt.Errorf("%w: installer builds cannot be compressed", ErrInvalidConfig)
		}
		if c.DebugExtract {
			return fmt.Errorf("%w: installer builds cannot extract next to the executable", ErrInvalidConfig)
		}
		if !c.ChdirFirst {
			return fmt.Errorf("%w: installer builds require chdir_first", ErrInvalidConfig)
		}
	}
	return nil
}

// Platform returns the target platform, the host when TargetOS is empty
func (c *Config) Platform() (*platform.Platform, error) {
	if c.TargetOS == "" {
		return platform.Detect()
	}
	return platform.ForOS(c.TargetOS, "")
}

// StubPath returns the stub to copy for a console or windowed build
func (c *Config) StubPath(windowed bool, p *platform.Platform) string {
	name := c.ConsoleStub
	if windowed {
		name = c.WindowedStub
	}
	if filepath.Ext(name) == "" {
		name += p.ExeSuffix
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.StubDir, name)
}

func getDefaultStubDir() string {
	if dir := os.Getenv("STUBPACK_STUB_DIR"); dir != "" {
		return dir
	}

	exe, err := os.Executable()
	if err != nil {
		return "stubs"
	}

	return filepath.Join(filepath.Dir(exe), "stubs")
}
