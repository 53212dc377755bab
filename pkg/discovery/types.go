// pkg/discovery/types.go
package discovery

// Role tags what a discovered file is
type Role string

const (
	// RoleScript is an application script file
	RoleScript Role = "script"
	// RoleFeature is a library file reached through the module search path
	RoleFeature Role = "library-feature"
	// RolePackageFile is a file belonging to an installed package
	RolePackageFile Role = "package-file"
	// RoleInterpreter is the interpreter binary or its own shared library
	RoleInterpreter Role = "interpreter-binary"
	// RoleSharedLibrary is an auto-detected runtime shared library
	RoleSharedLibrary Role = "shared-library"
	// RolePackageManifest is a package specification file
	RolePackageManifest Role = "package-manifest"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleScript, RoleFeature, RolePackageFile, RoleInterpreter, RoleSharedLibrary, RolePackageManifest:
		return true
	}
	return false
}

// File is one record produced by the discovery step. It is never modified
// after discovery hands it over.
type File struct {
	Path     string `yaml:"path" toml:"path"`                               // Absolute source path
	Role     Role   `yaml:"role" toml:"role"`                               // What the file is
	LoadPath string `yaml:"load_path,omitempty" toml:"load_path,omitempty"` // Owning search-path entry (features only)
}

// Snapshot is the interpreter state captured before or after the probe run
type Snapshot struct {
	LoadPath []string `yaml:"load_path" toml:"load_path"` // Absolute module search path entries
	WorkDir  string   `yaml:"work_dir" toml:"work_dir"`   // Working directory
}

// Manifest is the complete output of a discovery run
type Manifest struct {
	Interpreter          string   `yaml:"interpreter" toml:"interpreter"`
	WindowedInterpreter  string   `yaml:"windowed_interpreter,omitempty" toml:"windowed_interpreter,omitempty"`
	InterpreterLibraries []string `yaml:"interpreter_libraries,omitempty" toml:"interpreter_libraries,omitempty"`
	ExecPrefix           string   `yaml:"exec_prefix" toml:"exec_prefix"`
	BinDir               string   `yaml:"bin_dir,omitempty" toml:"bin_dir,omitempty"`
	SiteLibDir           string   `yaml:"site_lib_dir,omitempty" toml:"site_lib_dir,omitempty"`
	PackageRoots         []string `yaml:"package_roots,omitempty" toml:"package_roots,omitempty"`

	Pre  Snapshot `yaml:"pre" toml:"pre"`
	Post Snapshot `yaml:"post" toml:"post"`

	Files          []File   `yaml:"files,omitempty" toml:"files,omitempty"`
	Sources        []string `yaml:"sources,omitempty" toml:"sources,omitempty"`
	Script         string   `yaml:"script,omitempty" toml:"script,omitempty"`
	Args           []string `yaml:"args,omitempty" toml:"args,omitempty"`
	ExtraLibraries []string `yaml:"extra_libraries,omitempty" toml:"extra_libraries,omitempty"`
	Touch          []string `yaml:"touch,omitempty" toml:"touch,omitempty"`
}

// ByRole returns the files tagged with role, in discovery order
func (m *Manifest) ByRole(role Role) []File {
	var out []File
	for _, f := range m.Files {
		if f.Role == role {
			out = append(out, f)
		}
	}
	return out
}

// EntryScript returns the script to launch: Script when set, otherwise the
// first source.
func (m *Manifest) EntryScript() string {
	if m.Script != "" {
		return m.Script
	}
	if len(m.Sources) > 0 {
		return m.Sources[0]
	}
	return ""
}
