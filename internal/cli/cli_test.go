package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arc-language/stubpack"
	"github.com/arc-language/stubpack/pkg/container"
	"github.com/fatih/color"
)

func TestFlagNames(t *testing.T) {
	tests := []struct {
		flags container.Flags
		want  string
	}{
		{0, "none"},
		{container.FlagAutoCleanInstDir | container.FlagDataCompressed, "auto-clean, compressed"},
		{container.FlagDebugMode | container.FlagExtractToExeDir | container.FlagChdirBeforeScript, "debug, extract-to-exe-dir, chdir"},
	}
	for _, tt := range tests {
		if got := flagNames(tt.flags); got != tt.want {
			t.Errorf("flagNames(%#x) = %q, want %q", byte(tt.flags), got, tt.want)
		}
	}
}

func TestDefaultOutput(t *testing.T) {
	tests := []struct {
		name   string
		req    *stubpack.Request
		suffix string
		want   string
	}{
		{
			name:   "script from manifest",
			req:    &stubpack.Request{Manifest: &stubpack.Manifest{Script: filepath.Join("proj", "app.rb")}},
			suffix: ".exe",
			want:   "app.exe",
		},
		{
			name:   "first manifest source",
			req:    &stubpack.Request{Manifest: &stubpack.Manifest{Sources: []string{filepath.Join("proj", "tool.rbw")}}},
			suffix: "",
			want:   "tool",
		},
		{
			name:   "first command line source",
			req:    &stubpack.Request{Manifest: &stubpack.Manifest{}, Sources: []string{"main.rb"}},
			suffix: "",
			want:   "main",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := defaultOutput(tt.req, tt.suffix); got != tt.want {
				t.Errorf("defaultOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintArtifact(t *testing.T) {
	color.NoColor = true
	summary := &stubpack.Summary{Root: "/proj"}

	tests := []struct {
		name        string
		res         *container.Result
		wantPayload bool
	}{
		{
			name:        "compressed",
			res:         &container.Result{Path: "app", Size: 900, DataSize: 4096, Compressed: true},
			wantPayload: true,
		},
		{
			name: "uncompressed",
			res:  &container.Result{Path: "app", Size: 4200, DataSize: 4096},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printArtifact(&buf, tt.res, summary)
			out := buf.String()

			if !strings.Contains(out, "Built app") || !strings.Contains(out, "Root: /proj") {
				t.Errorf("output = %q", out)
			}
			hasPayload := strings.Contains(out, "Payload: 4096 bytes uncompressed")
			if hasPayload != tt.wantPayload {
				t.Errorf("payload line shown = %v, want %v; output = %q", hasPayload, tt.wantPayload, out)
			}
		})
	}
}
