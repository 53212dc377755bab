// internal/cli/inspect.go
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arc-language/stubpack"
	"github.com/arc-language/stubpack/pkg/container"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <artifact>",
	Short: "List the contents of a built executable",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	info, err := stubpack.Inspect(args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printSection(w, "Artifact")
	printLabelValue(w, "Stub size", fmt.Sprintf("%d bytes", info.Offset))
	printLabelValue(w, "Flags", flagNames(info.Flags))
	printLabelValue(w, "Compressed", fmt.Sprintf("%v", info.Compressed))
	printLabelValue(w, "Stream", fmt.Sprintf("%d bytes", info.DataSize))

	printSection(w, "Operations")
	for _, r := range info.Records {
		name, detail, _ := strings.Cut(r.String(), " ")
		printOp(w, name, detail)
	}
	return nil
}

func flagNames(f container.Flags) string {
	names := []struct {
		flag container.Flags
		name string
	}{
		{container.FlagDebugMode, "debug"},
		{container.FlagExtractToExeDir, "extract-to-exe-dir"},
		{container.FlagAutoCleanInstDir, "auto-clean"},
		{container.FlagChdirBeforeScript, "chdir"},
		{container.FlagDataCompressed, "compressed"},
	}
	var set []string
	for _, n := range names {
		if f.Has(n.flag) {
			set = append(set, n.name)
		}
	}
	if len(set) == 0 {
		return "none"
	}
	return strings.Join(set, ", ")
}
