// internal/cli/build.go
package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arc-language/stubpack"
	"github.com/arc-language/stubpack/pkg/container"
	"github.com/arc-language/stubpack/pkg/core"
)

// packFlags are shared by build and plan
type packFlags struct {
	manifest      string
	windowed      bool
	chdirFirst    bool
	debugExtract  bool
	noAutoDetect  bool
	addAllCore    bool
	noEncodings   bool
	compression   string
	interpOptions string
}

func (f *packFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.manifest, "manifest", "m", "", "discovery manifest (yaml or toml)")
	cmd.Flags().BoolVar(&f.windowed, "windowed", false, "use the windowed stub and interpreter")
	cmd.Flags().BoolVar(&f.chdirFirst, "chdir-first", false, "change to the extraction directory before running")
	cmd.Flags().BoolVar(&f.debugExtract, "debug-extract", false, "extract next to the executable and keep the files")
	cmd.Flags().BoolVar(&f.noAutoDetect, "no-autodll", false, "do not include shared libraries found during discovery")
	cmd.Flags().BoolVar(&f.addAllCore, "add-all-core", false, "include the whole interpreter core library")
	cmd.Flags().BoolVar(&f.noEncodings, "no-enc", false, "do not include encoding extensions")
	cmd.Flags().StringVar(&f.compression, "compression", "", "compression (lzma, exec, none)")
	cmd.Flags().StringVar(&f.interpOptions, "interpreter-options", "", "options passed to the interpreter at run time")
	_ = cmd.MarkFlagRequired("manifest")
}

// apply overlays the flags onto the loaded config
func (f *packFlags) apply(cmd *cobra.Command, cfg *core.Config) {
	if f.chdirFirst {
		cfg.ChdirFirst = true
	}
	if f.debugExtract {
		cfg.DebugExtract = true
	}
	if f.noAutoDetect {
		cfg.AutoDetectLibraries = false
	}
	if f.addAllCore {
		cfg.AddAllCore = true
	}
	if f.noEncodings {
		cfg.AddAllEncodings = false
	}
	if f.compression != "" {
		cfg.Compression = f.compression
	}
	if cmd.Flags().Changed("interpreter-options") {
		cfg.InterpreterOptions = f.interpOptions
	}
}

func (f *packFlags) request(cmd *cobra.Command, args []string) (*stubpack.Packager, *stubpack.Request, error) {
	f.apply(cmd, config)

	m, err := stubpack.LoadManifest(f.manifest)
	if err != nil {
		return nil, nil, err
	}
	p, err := stubpack.New(config, logger)
	if err != nil {
		return nil, nil, err
	}
	return p, &stubpack.Request{
		Manifest: m,
		Sources:  args,
		Windowed: f.windowed,
	}, nil
}

var (
	buildFlags     packFlags
	buildOutput    string
	buildIcon      string
	buildInstaller string
	buildWorkDir   string
	buildCompile   bool
	buildCompiler  string
)

var buildCmd = &cobra.Command{
	Use:   "build [source...]",
	Short: "Build a self-contained executable",
	Long: `Build an executable from a discovery manifest.

Extra files and directories given as arguments are packaged next to the
script. Directories contribute everything below them.

Examples:
  stubpack build -m deps.yaml
  stubpack build -m deps.yaml -o app assets/
  stubpack build -m deps.yaml --windowed --icon app.ico
  stubpack build -m deps.yaml --installer setup.iss --compile`,
	RunE: runBuild,
}

func init() {
	buildFlags.register(buildCmd)
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output file (default is the script name)")
	buildCmd.Flags().StringVar(&buildIcon, "icon", "", "icon for the executable")
	buildCmd.Flags().StringVar(&buildInstaller, "installer", "", "build an installer from this script instead")
	buildCmd.Flags().StringVar(&buildWorkDir, "work-dir", "", "where installer files are generated (default is the current directory)")
	buildCmd.Flags().BoolVar(&buildCompile, "compile", false, "run the installer compiler")
	buildCmd.Flags().StringVar(&buildCompiler, "compiler", "", "installer compiler executable")
}

func runBuild(cmd *cobra.Command, args []string) error {
	p, req, err := buildFlags.request(cmd, args)
	if err != nil {
		return err
	}

	req.Icon = buildIcon
	req.Output = buildOutput
	if req.Output == "" {
		req.Output = defaultOutput(req, p.Platform().ExeSuffix)
	}
	if buildInstaller != "" {
		req.Installer = &stubpack.InstallerRequest{
			Script:   buildInstaller,
			WorkDir:  buildWorkDir,
			Compile:  buildCompile,
			Compiler: buildCompiler,
		}
	}

	out, err := p.Build(cmd.Context(), req)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if out.Installer != nil {
		printSuccess(w, "Installer files generated")
		printLabelValue(w, "Script", out.Installer.Script)
		printLabelValue(w, "Launcher", out.Installer.Launcher)
		if out.Installer.Compiled {
			printLabelValue(w, "Compiled", "yes")
		}
		return nil
	}

	printArtifact(w, out.Artifact, out.Summary)
	return nil
}

func printArtifact(w io.Writer, res *container.Result, summary *stubpack.Summary) {
	printSuccess(w, fmt.Sprintf("Built %s", res.Path))
	printLabelValue(w, "Size", fmt.Sprintf("%d bytes", res.Size))
	if res.Compressed {
		printLabelValue(w, "Payload", fmt.Sprintf("%d bytes uncompressed", res.DataSize))
	}
	printLabelValue(w, "Root", summary.Root)
}

// defaultOutput names the artifact after the script
func defaultOutput(req *stubpack.Request, exeSuffix string) string {
	script := req.Manifest.EntryScript()
	if script == "" && len(req.Sources) > 0 {
		script = req.Sources[0]
	}
	base := filepath.Base(script)
	return strings.TrimSuffix(base, filepath.Ext(base)) + exeSuffix
}
