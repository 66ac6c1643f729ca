package cmd

import (
	"github.com/spf13/cobra"
)

func newGenerateCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and print the initial page table.",
		Long: `Generate builds the initial page table. The first pages are ` +
			`identity-mapped until the physical space is full.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := opts.startRun()
			if err != nil {
				return err
			}
			defer r.close()

			snap, err := r.session.Snapshot()
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), snap)
			}

			return printSnapshot(cmd.OutOrStdout(), snap)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the table as JSON")

	return cmd
}
