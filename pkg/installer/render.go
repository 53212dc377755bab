// pkg/installer/render.go
package installer

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/arc-language/stubpack/pkg/env"
	"github.com/arc-language/stubpack/pkg/layout"
	"mvdan.cc/sh/v3/syntax"
)

const (
	// BatchDir expands to the directory of the running batch file, with a
	// trailing backslash
	BatchDir = "%~dp0"

	// BatchPath expands to the running batch file itself
	BatchPath = "%~f0"

	// AppDir is the installer's install-directory constant
	AppDir = "{app}"

	// ExecutableVar tells the script which launcher started it
	ExecutableVar = "STUBPACK_EXECUTABLE"
)

var placeholderPrefix = regexp.MustCompile(regexp.QuoteMeta(env.Placeholder) + `[/\\]`)

// Launcher renders the script that sets the environment and starts the
// interpreter from the install directory
func (b *Builder) Launcher(title string, chdirBefore bool) (string, error) {
	if !b.entrySet {
		return "", ErrNoEntryPoint
	}
	if b.plat.OS == "windows" {
		return b.batchLauncher(title, chdirBefore), nil
	}
	return b.shellLauncher(chdirBefore)
}

func (b *Builder) batchLauncher(title string, chdirBefore bool) string {
	var sb strings.Builder
	sb.WriteString("@echo off\r\n")
	for _, v := range b.vars.All() {
		fmt.Fprintf(&sb, "set \"%s=%s\"\r\n", v.Name, batchValue(v.Value))
	}
	fmt.Fprintf(&sb, "set \"%s=%s\"\r\n", ExecutableVar, BatchPath)

	cmd := []string{"start", quoteBatch(title)}
	if chdirBefore {
		cmd = append(cmd, "/d "+quoteBatch(BatchDir+layout.SrcDir))
	}
	cmd = append(cmd,
		quoteBatch(BatchDir+b.plat.ToNative(b.entry[0])),
		quoteBatch(BatchDir+b.plat.ToNative(b.entry[1])),
	)
	for _, arg := range b.entry[2:] {
		cmd = append(cmd, quoteBatch(batchValue(arg)))
	}
	// Forward the launcher's own arguments
	cmd = append(cmd, "%*")
	sb.WriteString(strings.Join(cmd, " "))
	sb.WriteString("\r\n")
	return sb.String()
}

func (b *Builder) shellLauncher(chdirBefore bool) (string, error) {
	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString("dir=$(CDPATH= cd -- \"$(dirname -- \"$0\")\" && pwd)\n")
	for _, v := range b.vars.All() {
		value, err := shellWord(v.Value)
		if err != nil {
			return "", fmt.Errorf("quoting %s: %w", v.Name, err)
		}
		fmt.Fprintf(&sb, "%s=%s\nexport %s\n", v.Name, value, v.Name)
	}
	fmt.Fprintf(&sb, "%s=\"$dir\"/\"$(basename -- \"$0\")\"\nexport %s\n", ExecutableVar, ExecutableVar)
	if chdirBefore {
		fmt.Fprintf(&sb, "cd \"$dir\"/%s || exit 1\n", layout.SrcDir)
	}

	words := []string{"exec"}
	for i, w := range b.entry {
		if i < 2 {
			w = env.Placeholder + "/" + w
		}
		quoted, err := shellWord(w)
		if err != nil {
			return "", err
		}
		words = append(words, quoted)
	}
	words = append(words, `"$@"`)
	sb.WriteString(strings.Join(words, " "))
	sb.WriteString("\n")
	return sb.String(), nil
}

// Script renders the installer script: the user's script followed by the
// directories and files of the install tree. The launcher is installed
// first under launcherName.
func (b *Builder) Script(userScript []byte, launcherPath, launcherName string) string {
	var sb strings.Builder
	if len(userScript) > 0 {
		sb.Write(userScript)
		if !strings.HasSuffix(string(userScript), "\n") {
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n[Dirs]\n")
	for _, d := range b.dirs.Entries() {
		fmt.Fprintf(&sb, "Name: %s;\n", quoteBatch(appPath(d.Target)))
	}

	sb.WriteString("\n[Files]\n")
	sb.WriteString(fileItem(launcherPath, AppDir, launcherName))
	for _, f := range b.files.Entries() {
		destName := ""
		if filepath.Base(f.Source) != path.Base(f.Target) {
			destName = path.Base(f.Target)
		}
		sb.WriteString(fileItem(f.Source, appPath(path.Dir(f.Target)), destName))
	}
	return sb.String()
}

func fileItem(source, destDir, destName string) string {
	item := fmt.Sprintf("Source: %s; DestDir: %s;", quoteBatch(source), quoteBatch(destDir))
	if destName != "" {
		item += fmt.Sprintf(" DestName: %s;", quoteBatch(destName))
	}
	return item + "\n"
}

// appPath roots a layout-relative target in the install directory
func appPath(target string) string {
	if target == "." || target == "" {
		return AppDir
	}
	return AppDir + `\` + strings.ReplaceAll(target, "/", `\`)
}

// quoteBatch wraps s in double quotes, doubling embedded quotes
func quoteBatch(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// batchValue replaces the extraction-root placeholder with the batch
// file's directory, which already ends in a separator
func batchValue(s string) string {
	return placeholderPrefix.ReplaceAllString(s, BatchDir)
}

// shellWord quotes s for a POSIX shell, expanding each placeholder to the
// launcher's directory
func shellWord(s string) (string, error) {
	var sb strings.Builder
	for i, part := range strings.Split(s, env.Placeholder) {
		if i > 0 {
			sb.WriteString(`"$dir"`)
		}
		if part == "" {
			continue
		}
		q, err := syntax.Quote(part, syntax.LangPOSIX)
		if err != nil {
			return "", err
		}
		sb.WriteString(q)
	}
	if sb.Len() == 0 {
		return "''", nil
	}
	return sb.String(), nil
}
