package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath   string
	manifestPath string
	vendorDir    string
	verbosity    int
	quiet        bool
	noColor      bool
	noInherit    bool
)

var rootCmd = &cobra.Command{
	Use:   "composer-patches",
	Short: "Apply and revert patches declared by installed packages",
	Long: `composer-patches applies patch files that installed packages declare for
other installed packages (extra.patches), and reverts them before a patched
package is updated or removed. Patch bodies may be local files or remote URLs;
every URL is fetched at most once per run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("composer-patches %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: discovered composer-patches.yaml)")
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "installed packages manifest (default vendor/composer/installed.json)")
	rootCmd.PersistentFlags().StringVar(&vendorDir, "vendor-dir", "", "vendor directory (default vendor)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v, -vv, -vvv)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noInherit, "no-inherit", false, "ignore system and user config files")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
