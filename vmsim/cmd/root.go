// Package cmd provides the command-line interface for vmsim.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// NewRootCmd builds the vmsim command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "vmsim",
		Short: "vmsim simulates address translation on a paged virtual memory.",
		Long: `vmsim simulates address translation on a single-level paged ` +
			`virtual memory whose physical space is half the virtual space. ` +
			`Page faults are served with FIFO replacement.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	opts.bindFlags(rootCmd)

	rootCmd.AddCommand(
		newGenerateCmd(opts),
		newTranslateCmd(opts),
		newServeCmd(opts),
		newReportCmd(opts),
	)

	return rootCmd
}

// Execute runs the root command and exits. Registered exit handlers, such as
// flushing recordings, run before the process ends.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
