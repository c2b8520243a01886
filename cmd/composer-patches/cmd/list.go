package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bianoble/composer-patches/pkg/patches"
)

var listOutput string

type listedPatch struct {
	Checksum string `yaml:"checksum"`
	Title    string `yaml:"title,omitempty"`
	URL      string `yaml:"url"`
	Size     int    `yaml:"size"`
}

type listedWork struct {
	Declarer string        `yaml:"declarer"`
	Package  string        `yaml:"package"`
	Version  string        `yaml:"version,omitempty"`
	Patches  []listedPatch `yaml:"patches"`
}

var listCmd = &cobra.Command{
	Use:   "list [package]",
	Short: "Show the patches that apply to installed packages",
	Long: `Resolves every declared patch without applying anything and prints, for
each declaring and target package pair, the patches that match. Remote
patches are downloaded to compute their checksums.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if listOutput != "text" && listOutput != "yaml" {
			return fmt.Errorf("unsupported output format %q (must be text or yaml)", listOutput)
		}

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		var only string
		if len(args) == 1 {
			only = args[0]
		}
		works, errs := s.client.Plan(cmd.Context(), only)
		for _, e := range errs {
			errorf("%s: %s", e.Source, e.Err)
		}

		if err := writeList(cmd.OutOrStdout(), listOutput, works); err != nil {
			return err
		}
		if len(errs) > 0 {
			return fmt.Errorf("%d source(s) failed", len(errs))
		}
		return nil
	},
}

func listed(works []patches.Work) []listedWork {
	out := make([]listedWork, 0, len(works))
	for _, w := range works {
		lw := listedWork{Declarer: w.Declarer, Package: w.Package.Name, Version: w.Package.PrettyVersion}
		for _, p := range w.Patches {
			lw.Patches = append(lw.Patches, listedPatch{
				Checksum: p.Checksum,
				Title:    p.Title,
				URL:      p.URL,
				Size:     len(p.Content),
			})
		}
		out = append(out, lw)
	}
	return out
}

func writeList(w io.Writer, format string, works []patches.Work) error {
	items := listed(works)

	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(items); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}

	if len(items) == 0 {
		fmt.Fprintln(w, "No patches declared.")
		return nil
	}
	for _, item := range items {
		fmt.Fprintf(w, "%s -> %s\n", item.Declarer, item.Package)
		for _, p := range item.Patches {
			label := p.Title
			if label == "" {
				label = p.URL
			}
			fmt.Fprintf(w, "  %-12s %-8s %s\n", p.Checksum[:12], humanSize(int64(p.Size)), label)
		}
	}
	return nil
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "text", "output format: text or yaml")
	rootCmd.AddCommand(listCmd)
}
