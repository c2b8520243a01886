package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/composer-patches/pkg/patches"
)

var (
	restoreOperation     string
	restoreTargetVersion string
)

var restoreCmd = &cobra.Command{
	Use:   "restore <package>",
	Short: "Revert the patches of a package before it is updated or removed",
	Long: `Reverts, in reverse order, every patch that applies to the named package.
Use --operation update when the package is about to be replaced by another
version. Patches are matched against the installed version either way;
--target-version only names the incoming version in diagnostics.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		pkg, ok := s.client.Package(args[0])
		if !ok {
			return fmt.Errorf("package %s is not installed", args[0])
		}
		target := pkg
		target.Version = restoreTargetVersion
		target.PrettyVersion = restoreTargetVersion

		result, err := s.client.Restore(cmd.Context(), patches.NewOperation(restoreOperation, pkg, target))
		if err != nil {
			return err
		}
		return report("restore", result)
	},
}

func init() {
	restoreCmd.Flags().StringVar(&restoreOperation, "operation", "uninstall", "pending operation: uninstall or update")
	restoreCmd.Flags().StringVar(&restoreTargetVersion, "target-version", "", "incoming version for --operation update (reported in diagnostics; patches are reverted from the installed version)")
	rootCmd.AddCommand(restoreCmd)
}
