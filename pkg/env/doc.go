// pkg/env/doc.go
package env

/*
Package env covers the runtime environment of a packaged script.

It handles:
  - Locating shared libraries the user names on the command line
  - Keeping the ordered environment variables handed to the launched script
  - Rewriting extraction-root placeholders for launchers that know the
    install directory

Basic Usage:

    import "github.com/arc-language/stubpack/pkg/env"

    // Find a library by name
    lib, err := env.FindLibrary([]string{"/opt/ruby/bin"}, "gdbm", plat)
    if err == nil {
        fmt.Printf("Found: %s at %s\n", lib.Name, lib.Path)
    }

    // Collect variables, last write wins
    var vars env.Vars
    vars.Set("RUBYLIB", "|/src/lib")
    vars.Set("GEM_PATH", "|/gems")

    // Rewrite for a batch launcher
    for _, v := range vars.Expand("%~dp0") {
        fmt.Printf("set \"%s=%s\"\n", v.Name, v.Value)
    }
*/
