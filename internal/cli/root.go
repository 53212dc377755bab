// internal/cli/root.go
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/arc-language/stubpack/pkg/core"
)

var (
	cfgFile string
	debug   bool
	verbose bool
	quiet   bool
	config  *core.Config
	logger  *log.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stubpack",
	Short: "Self-contained script packager",
	Long: `stubpack - Self-contained script packager

Packs a script, its interpreter and every file it loaded into one
executable that unpacks itself to a temporary directory and runs.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/stubpack/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "build artifacts that report what they do at run time")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every placed file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")

	// Add commands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "stubpack"})
	switch {
	case quiet:
		logger.SetLevel(log.WarnLevel)
	case verbose:
		logger.SetLevel(log.DebugLevel)
	}

	var err error
	config, err = core.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		config = core.DefaultConfig()
	}

	// Override config with flags
	if debug {
		config.Debug = true
	}
}
