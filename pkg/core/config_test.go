package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/arc-language/stubpack/pkg/platform"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Compression != CompressionLZMA || !cfg.AddAllEncodings || cfg.Env.ModulePath != "RUBYLIB" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "compression: none\nchdir_first: true\nenv:\n  module_path: MYLIB\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Compression != CompressionNone || !cfg.ChdirFirst {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Env.ModulePath != "MYLIB" {
		t.Errorf("Env.ModulePath = %q", cfg.Env.ModulePath)
	}
	if cfg.Env.PackagePath != "GEM_PATH" || cfg.ConsoleStub != "stub" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.InterpreterOptions = "-W0"
	cfg.CompressorArgs = []string{"e", "-si", "-so", "-mt1"}

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.InterpreterOptions != "-W0" || len(got.CompressorArgs) != 4 {
		t.Errorf("LoadConfig() = %+v", got)
	}
}

func TestStubDirEnvironment(t *testing.T) {
	t.Setenv("STUBPACK_STUB_DIR", "/srv/stubs")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StubDir != "/srv/stubs" {
		t.Errorf("StubDir = %q", cfg.StubDir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		installer bool
		wantErr   bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown compression", mutate: func(c *Config) { c.Compression = "zstd" }, wantErr: true},
		{name: "exec without path", mutate: func(c *Config) { c.Compression = CompressionExec; c.CompressorPath = "" }, wantErr: true},
		{name: "unknown target", mutate: func(c *Config) { c.TargetOS = "plan9" }, wantErr: true},
		{name: "empty env name", mutate: func(c *Config) { c.Env.Options = "" }, wantErr: true},
		{
			name:      "installer with compression",
			mutate:    func(c *Config) { c.ChdirFirst = true },
			installer: true,
			wantErr:   true,
		},
		{
			name:      "installer with debug extract",
			mutate:    func(c *Config) { c.Compression = CompressionNone; c.ChdirFirst = true; c.DebugExtract = true },
			installer: true,
			wantErr:   true,
		},
		{
			name:      "installer without chdir",
			mutate:    func(c *Config) { c.Compression = CompressionNone },
			installer: true,
			wantErr:   true,
		},
		{
			name:      "valid installer",
			mutate:    func(c *Config) { c.Compression = CompressionNone; c.ChdirFirst = true },
			installer: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate(tt.installer)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestStubPath(t *testing.T) {
	win, _ := platform.ForOS("windows", "amd64")
	linux, _ := platform.ForOS("linux", "amd64")

	cfg := DefaultConfig()
	cfg.StubDir = "/stubs"
	if got := cfg.StubPath(false, win); got != filepath.Join("/stubs", "stub.exe") {
		t.Errorf("console stub = %q", got)
	}
	if got := cfg.StubPath(true, win); got != filepath.Join("/stubs", "stubw.exe") {
		t.Errorf("windowed stub = %q", got)
	}
	if got := cfg.StubPath(false, linux); got != filepath.Join("/stubs", "stub") {
		t.Errorf("linux stub = %q", got)
	}

	cfg.ConsoleStub = "/custom/extractor.bin"
	if got := cfg.StubPath(false, win); got != "/custom/extractor.bin" {
		t.Errorf("absolute stub = %q", got)
	}
}
