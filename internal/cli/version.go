// internal/cli/version.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stubpack version %s\n", version)
		fmt.Println("Self-contained script packager")
		fmt.Println("https://github.com/arc-language/stubpack")
	},
}
