// pkg/placement/engine.go
package placement

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/arc-language/stubpack/pkg/builder"
	"github.com/arc-language/stubpack/pkg/discovery"
	"github.com/arc-language/stubpack/pkg/env"
	"github.com/arc-language/stubpack/pkg/layout"
	"github.com/arc-language/stubpack/pkg/platform"
	"github.com/charmbracelet/log"
)

// ErrUnplaceable indicates a package file that lies neither in the
// installation prefix nor in a package-manager root
var ErrUnplaceable = errors.New("don't know where to put file")

// EnvNames are the environment variables the launched script receives
type EnvNames struct {
	Options     string `yaml:"options"`      // Interpreter options
	ModulePath  string `yaml:"module_path"`  // Module search path
	PackagePath string `yaml:"package_path"` // Package-manager search path
}

// DefaultEnvNames returns the variable names Ruby understands
func DefaultEnvNames() EnvNames {
	return EnvNames{
		Options:     "RUBYOPT",
		ModulePath:  "RUBYLIB",
		PackagePath: "GEM_PATH",
	}
}

// Config tunes the placement pass
type Config struct {
	Platform            *platform.Platform
	Env                 EnvNames
	InterpreterOptions  string // Value of Env.Options; the variable is only set when non-empty
	Windowed            bool   // Use the manifest's windowed interpreter
	AutoDetectLibraries bool   // Place shared libraries reported by discovery
	AddAllCore          bool   // Place the whole standard library
	AddAllEncodings     bool   // Place encoding support libraries
	Logger              *log.Logger
}

// Summary reports what a placement pass decided
type Summary struct {
	Interpreter string   // Interpreter target
	Script      string   // Entry script target
	Root        string   // Final source root
	ModulePath  []string // Module search path entries, as env values
}

// Engine decides where every discovered file goes in the deployed tree and
// emits the corresponding builder operations
type Engine struct {
	cfg    Config
	logger *log.Logger
}

// New creates an Engine. Empty env names fall back to DefaultEnvNames.
func New(cfg Config) (*Engine, error) {
	if cfg.Platform == nil {
		p, err := platform.Detect()
		if err != nil {
			return nil, err
		}
		cfg.Platform = p
	}
	def := DefaultEnvNames()
	if cfg.Env.Options == "" {
		cfg.Env.Options = def.Options
	}
	if cfg.Env.ModulePath == "" {
		cfg.Env.ModulePath = def.ModulePath
	}
	if cfg.Env.PackagePath == "" {
		cfg.Env.PackagePath = def.PackagePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = builder.DiscardLogger()
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// run carries the state of one placement pass
type run struct {
	*Engine
	m       *discovery.Manifest
	b       builder.Builder
	lay     *layout.Layout
	sources []string
}

// Place emits the operations for m into b. Sources must already be
// absolute and expanded; the entry script is m.EntryScript().
func (e *Engine) Place(m *discovery.Manifest, b builder.Builder) (*Summary, error) {
	script := m.EntryScript()
	if script == "" {
		return nil, fmt.Errorf("no script given")
	}

	siteLib := m.SiteLibDir
	if siteLib == "" {
		siteLib = filepath.Join(m.ExecPrefix, "lib", "ruby", "site_ruby")
	}
	r := &run{
		Engine: e,
		m:      m,
		b:      b,
		lay: &layout.Layout{
			ExecPrefix:   m.ExecPrefix,
			PackageRoots: m.PackageRoots,
			SiteLibDir:   siteLib,
		},
		sources: append([]string(nil), m.Sources...),
	}
	if len(r.sources) == 0 {
		r.sources = []string{script}
	}
	for _, f := range m.ByRole(discovery.RoleScript) {
		r.sources = append(r.sources, f.Path)
	}

	interpreter, err := r.placeInterpreter()
	if err != nil {
		return nil, err
	}
	if err := r.placeLibraries(); err != nil {
		return nil, err
	}
	packageFiles, err := r.placePackages()
	if err != nil {
		return nil, err
	}
	if e.cfg.AddAllCore {
		if err := r.placeCore(); err != nil {
			return nil, err
		}
	}
	if e.cfg.AddAllEncodings {
		if err := r.placeEncodings(); err != nil {
			return nil, err
		}
	}
	for _, target := range m.Touch {
		if err := builder.Touch(b, target); err != nil {
			return nil, err
		}
	}

	loadPaths, err := r.placeFeatures(packageFiles)
	if err != nil {
		return nil, err
	}

	// Features may have joined the sources, so the root can only move up
	root, err := layout.ResolveRoot(r.sources, m.ExecPrefix)
	if err != nil {
		return nil, err
	}
	e.logger.Debugf("source root %s", root)

	e.logger.Info("Adding user-supplied source files")
	if err := r.placeSources(root); err != nil {
		return nil, err
	}

	modulePath, err := r.setEnvironment(root, loadPaths)
	if err != nil {
		return nil, err
	}

	scriptTarget, _, err := r.lay.SourceTarget(script, root)
	if err != nil {
		return nil, err
	}
	if err := b.SetEntryPoint(interpreter, scriptTarget, m.Args...); err != nil {
		return nil, err
	}

	return &Summary{
		Interpreter: interpreter,
		Script:      scriptTarget,
		Root:        root,
		ModulePath:  modulePath,
	}, nil
}

// placeInterpreter copies the interpreter and its own libraries into BIN
func (r *run) placeInterpreter() (string, error) {
	exe := r.m.Interpreter
	if r.cfg.Windowed {
		if r.m.WindowedInterpreter == "" {
			return "", fmt.Errorf("no windowed interpreter in the discovery manifest")
		}
		exe = r.m.WindowedInterpreter
	}

	r.logger.Infof("Adding interpreter %s", exe)
	target := r.lay.BinTarget(exe)
	if err := r.b.CreateFile(exe, target); err != nil {
		return "", err
	}
	for _, lib := range r.interpreterLibraries() {
		if err := r.b.CreateFile(lib, r.lay.BinTarget(lib)); err != nil {
			return "", err
		}
	}
	return target, nil
}

func (r *run) interpreterLibraries() []string {
	libs := append([]string(nil), r.m.InterpreterLibraries...)
	for _, f := range r.m.ByRole(discovery.RoleInterpreter) {
		libs = append(libs, f.Path)
	}
	return libs
}

// placeLibraries handles detected shared libraries, the interpreter's
// side-by-side manifest and libraries named by the user
func (r *run) placeLibraries() error {
	if r.cfg.AutoDetectLibraries {
		own := make(map[string]bool)
		for _, lib := range r.interpreterLibraries() {
			own[r.fold(filepath.Base(lib))] = true
		}
		for _, f := range r.m.ByRole(discovery.RoleSharedLibrary) {
			if !r.cfg.Platform.HasSharedLibraryExt(f.Path) || own[r.fold(filepath.Base(f.Path))] {
				continue
			}
			r.logger.Infof("Adding detected library %s", f.Path)
			target := r.lay.BinTarget(f.Path)
			if r.lay.UnderPrefix(f.Path) {
				var err error
				if target, err = r.lay.PrefixTarget(f.Path); err != nil {
					return err
				}
			}
			if err := r.b.CreateFile(f.Path, target); err != nil {
				return err
			}
		}
	}

	manifest := filepath.Join(r.m.ExecPrefix, "bin", "ruby_builtin_dlls", "ruby_builtin_dlls.manifest")
	if info, err := os.Stat(manifest); err == nil && !info.IsDir() {
		r.logger.Infof("Adding external manifest %s", manifest)
		if err := r.mirror(manifest); err != nil {
			return err
		}
	}

	binDir := r.m.BinDir
	if binDir == "" {
		binDir = filepath.Join(r.m.ExecPrefix, "bin")
	}
	for _, name := range r.m.ExtraLibraries {
		lib, err := env.FindLibrary([]string{binDir}, name, r.cfg.Platform)
		if err != nil {
			// left for the backend to report when it reads the file
			r.logger.Debugf("%v", err)
			lib = &env.Library{Name: name, Path: filepath.Join(binDir, name)}
		}
		r.logger.Infof("Adding supplied library %s", lib.Path)
		if err := r.b.CreateFile(lib.Path, r.lay.BinTarget(lib.Name)); err != nil {
			return err
		}
	}
	return nil
}

// placePackages places package manifests and package files and returns the
// set of package files, which supersede features
func (r *run) placePackages() (map[string]bool, error) {
	for _, f := range r.m.ByRole(discovery.RolePackageManifest) {
		if err := r.placePackageFile(f.Path); err != nil {
			return nil, fmt.Errorf("package manifest: %w", err)
		}
	}

	files := make(map[string]bool)
	for _, f := range r.m.ByRole(discovery.RolePackageFile) {
		if err := r.placePackageFile(f.Path); err != nil {
			return nil, err
		}
		files[r.fold(f.Path)] = true
	}
	if len(files) > 0 {
		r.logger.Infof("Added %d package files", len(files))
	}
	return files, nil
}

func (r *run) placePackageFile(p string) error {
	if r.lay.UnderPrefix(p) {
		return r.mirror(p)
	}
	if root, ok := r.lay.PackageRoot(p); ok {
		return r.gem(p, root)
	}
	return fmt.Errorf("%w: %s", ErrUnplaceable, p)
}

// placeFeatures routes every library feature and returns the search-path
// entries the module path must carry
func (r *run) placeFeatures(packageFiles map[string]bool) ([]string, error) {
	srcPrefix, err := layout.ResolveRoot(r.sources, r.m.ExecPrefix)
	if err != nil {
		return nil, err
	}

	added := r.addedLoadPaths()
	preWD := filepath.Clean(r.m.Pre.WorkDir)
	postWD := filepath.Clean(r.m.Post.WorkDir)

	r.logger.Info("Adding library files")
	var loadPaths []string
	for _, f := range r.m.ByRole(discovery.RoleFeature) {
		feature := f.Path
		if packageFiles[r.fold(feature)] {
			continue
		}
		if f.LoadPath == "" {
			r.logger.Debugf("%s has no search path entry, adding as source", feature)
			r.sources = append(r.sources, feature)
			continue
		}

		lp := filepath.Clean(f.LoadPath)
		switch {
		case r.samePath(lp, preWD):
			r.sources = append(r.sources, feature)
		case r.lay.UnderPrefix(feature):
			if err := r.mirror(feature); err != nil {
				return nil, err
			}
		case r.inPackageRoot(feature):
			root, _ := r.lay.PackageRoot(feature)
			if err := r.gem(feature, root); err != nil {
				return nil, err
			}
		case layout.IsSubpath(feature, srcPrefix) || r.samePath(lp, postWD):
			r.sources = append(r.sources, feature)
			if !added[r.fold(lp)] {
				loadPaths = append(loadPaths, lp)
			}
		case added[r.fold(lp)]:
			r.sources = append(r.sources, feature)
		default:
			target, err := r.lay.SiteTarget(feature, lp)
			if err != nil {
				return nil, err
			}
			r.logger.Debugf("%s goes to the site library as %s", feature, target)
			if err := r.b.CreateFile(feature, target); err != nil {
				return nil, err
			}
		}
	}
	return loadPaths, nil
}

// placeSources adds every source below the final root
func (r *run) placeSources(root string) error {
	for _, src := range r.sources {
		target, _, err := r.lay.SourceTarget(src, root)
		if err != nil {
			return err
		}
		info, statErr := os.Stat(src)
		if statErr == nil && info.IsDir() {
			err = r.b.CreateDirectory(target)
		} else {
			err = r.b.CreateFile(src, target)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// setEnvironment emits the interpreter options, the module path and the
// package path variables
func (r *run) setEnvironment(root string, loadPaths []string) ([]string, error) {
	if r.cfg.InterpreterOptions != "" {
		if err := r.b.SetEnvironment(r.cfg.Env.Options, r.cfg.InterpreterOptions); err != nil {
			return nil, err
		}
	}

	var modulePath []string
	seen := make(map[string]bool)
	for _, lp := range loadPaths {
		rel, err := layout.Rel(root, lp)
		if err != nil {
			r.logger.Warnf("search path entry %s is outside the source root, skipping", lp)
			continue
		}
		value := layout.EnvPath(path.Join(layout.SrcDir, rel))
		if seen[value] {
			continue
		}
		seen[value] = true
		modulePath = append(modulePath, value)
	}

	if err := r.b.SetEnvironment(r.cfg.Env.ModulePath, r.cfg.Platform.JoinList(modulePath)); err != nil {
		return nil, err
	}
	if err := r.b.SetEnvironment(r.cfg.Env.PackagePath, layout.EnvPath(layout.GemDir)); err != nil {
		return nil, err
	}
	return modulePath, nil
}

func (r *run) addedLoadPaths() map[string]bool {
	pre := make(map[string]bool)
	for _, lp := range r.m.Pre.LoadPath {
		pre[r.fold(filepath.Clean(lp))] = true
	}
	added := make(map[string]bool)
	for _, lp := range r.m.Post.LoadPath {
		key := r.fold(filepath.Clean(lp))
		if !pre[key] {
			added[key] = true
		}
	}
	return added
}

func (r *run) mirror(source string) error {
	target, err := r.lay.PrefixTarget(source)
	if err != nil {
		return err
	}
	return r.b.CreateFile(source, target)
}

func (r *run) gem(source, root string) error {
	target, err := r.lay.GemTarget(source, root)
	if err != nil {
		return err
	}
	return r.b.CreateFile(source, target)
}

func (r *run) inPackageRoot(p string) bool {
	_, ok := r.lay.PackageRoot(p)
	return ok
}

func (r *run) samePath(a, b string) bool {
	if a == "." || b == "." {
		return false
	}
	return r.fold(a) == r.fold(b)
}

func (r *run) fold(p string) string {
	if r.cfg.Platform.CaseInsensitive {
		return strings.ToLower(p)
	}
	return p
}
