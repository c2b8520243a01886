package cmd

import (
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply every declared patch to the installed packages",
	Long: `Reads the installed packages manifest, resolves the patches every package
declares, and applies the ones that are not applied yet. A patch that is
already in place is detected and skipped; a patch that fails is reported and
the run continues with the next one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		s.console.Info("Maintaining patches")
		result, err := s.client.Apply(cmd.Context())
		if err != nil {
			return err
		}
		return report("apply", result)
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
}
