package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/spf13/cobra"
)

func newReportCmd(_ *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "report <recording.sqlite3>",
		Short: "Summarize a recording made with --record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := datarecording.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			return report(cmd, reader, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20,
		"Number of translations to list, 0 lists all")

	return cmd
}

func report(cmd *cobra.Command, reader datarecording.DataReader, limit int) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	reader.MapTable(datarecording.TranslationTable,
		datarecording.TranslationEntry{})
	reader.MapTable(datarecording.PageFaultTable,
		datarecording.PageFaultEntry{})
	reader.MapTable(datarecording.EvictionTable,
		datarecording.EvictionEntry{})

	translations, total, err := reader.Query(ctx,
		datarecording.TranslationTable,
		datarecording.QueryParams{OrderBy: "Seq", Limit: limit})
	if err != nil {
		return err
	}

	_, faults, err := reader.Query(ctx, datarecording.PageFaultTable,
		datarecording.QueryParams{Limit: 1})
	if err != nil {
		return err
	}

	_, evictions, err := reader.Query(ctx, datarecording.EvictionTable,
		datarecording.QueryParams{Limit: 1})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "translations %d, page faults %d, evictions %d\n\n",
		total, faults, evictions)

	return printTranslations(out, translations)
}

func printTranslations(w io.Writer, rows []any) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tDIR\tVADDR\tPADDR\tRESULT\tFAULT\tEVICTED")

	for _, row := range rows {
		e := row.(*datarecording.TranslationEntry)

		evicted := "-"
		if e.Evicted {
			evicted = fmt.Sprint(e.EvictedPage)
		}

		fmt.Fprintf(tw, "%d\t%s\t%#x\t%#x\t%s\t%t\t%s\n",
			e.Seq, e.Direction, e.VirtualAddress, e.PhysicalAddress,
			e.AddressHex, e.Faulted, evicted)
	}

	return tw.Flush()
}
