package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/vmsim/mem/vm/addresstranslator"
	"github.com/sarchlab/vmsim/mem/vm/session"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func printSnapshot(w io.Writer, snap session.Snapshot) error {
	fmt.Fprintf(w, "%s\n", snap.Config)
	fmt.Fprintf(w, "offset bits %d, virtual page bits %d, physical page bits %d\n\n",
		snap.OffsetBits, snap.VirtualPageBits, snap.PhysicalPageBits)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tVIRTUAL\tPHYSICAL\tPRESENT\tARRIVAL")

	for _, row := range snap.Rows {
		physical := row.PhysicalIndex
		if physical == "" {
			physical = "-"
		}

		arrival := "-"
		if row.Present {
			arrival = fmt.Sprint(row.ArrivalOrder)
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n",
			row.Index, row.VirtualIndex, physical, row.Present, arrival)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	queue := make([]string, len(snap.LoadQueue))
	for i, vpn := range snap.LoadQueue {
		queue[i] = fmt.Sprint(vpn)
	}

	_, err := fmt.Fprintf(w, "\nload queue: [%s]\n", strings.Join(queue, ", "))

	return err
}

func printResult(w io.Writer, res addresstranslator.Result) error {
	vpage, voffset := res.VirtualSegments()
	ppage, poffset := res.PhysicalSegments()

	from, to := joinSegments(vpage, voffset), joinSegments(ppage, poffset)
	if res.Direction == addresstranslator.DirectionP2V {
		from, to = to, from
	}

	line := fmt.Sprintf("%s: %s -> %s = %s", res.Direction, from, to, res.AddressHex)

	if res.Faulted {
		line += " (page fault"
		if res.EvictedPage != nil {
			line += fmt.Sprintf(", evicted page %d", *res.EvictedPage)
		}
		line += ")"
	}

	_, err := fmt.Fprintln(w, line)

	return err
}

func joinSegments(page, offset string) string {
	if page == "" || offset == "" {
		return page + offset
	}

	return page + " " + offset
}
