package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default composer-patches.yaml scaffold.
// Every key is set to its built-in default.
const initTemplate = `# composer-patches configuration
# Every setting can also be given as an environment variable, e.g.
# COMPOSER_PATCHES_PATCH_TOOL=git

manifest: vendor/composer/installed.json
vendor_dir: vendor

patch:
  tool: patch          # patch or git
  # binary: /usr/local/bin/gpatch
  strip: 1

http:
  timeout: 30s
  max_size: 10485760
  retries: 2

log:
  level: warn          # debug, info, warn, error
  format: console      # console or json
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter composer-patches.yaml configuration",
	Long: `Creates a composer-patches.yaml file in the current directory (or at --config)
listing every setting with its default value.

Use --force to overwrite an existing configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if outPath == "" {
			outPath = "composer-patches.yaml"
		}
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Declare patches under extra.patches in your packages")
		info("  2. Run 'composer-patches list' to check what will be applied")
		info("  3. Run 'composer-patches apply'")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
