package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/bianoble/composer-patches/pkg/patches"
)

var hookTargetVersion string

var hookCmd = &cobra.Command{
	Use:   "hook <event> [package]",
	Short: "Handle a package manager event",
	Long: `Runs the handler subscribed to a package manager event:

  ` + strings.Join(patches.Events(), "\n  ") + `

Package events (pre-package-*) name the package being removed or replaced.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		ev := patches.Event{Name: args[0], TargetVersion: hookTargetVersion}
		if len(args) == 2 {
			ev.Package = args[1]
		}

		if !strings.HasPrefix(ev.Name, "pre-package-") {
			s.console.Info("Maintaining patches")
		}
		result, err := s.client.Dispatch(cmd.Context(), ev)
		if err != nil {
			return err
		}
		if strings.HasPrefix(ev.Name, "pre-package-") {
			return report("restore", result)
		}
		return report("apply", result)
	},
}

func init() {
	hookCmd.Flags().StringVar(&hookTargetVersion, "target-version", "", "incoming version for pre-package-update (reported in diagnostics only)")
	rootCmd.AddCommand(hookCmd)
}
