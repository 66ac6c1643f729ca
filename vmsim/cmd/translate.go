package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/addresstranslator"
	"github.com/sarchlab/vmsim/mem/vm/session"
	"github.com/spf13/cobra"
)

type translateFlags struct {
	direction string
	edits     []string
	swaps     []string
	asJSON    bool
	showTable bool
}

func newTranslateCmd(opts *options) *cobra.Command {
	f := &translateFlags{}

	cmd := &cobra.Command{
		Use:   "translate <address>...",
		Short: "Translate a sequence of hex addresses on one page table.",
		Long: `Translate generates a page table and translates the addresses ` +
			`in order. Page faults change the table for later addresses. ` +
			`Edits and swaps are applied before the first translation.`,
		Example: `  vmsim translate 0x1004 0x2000
  vmsim translate --direction p2v 0x1004
  vmsim translate --edit 0:arrivalOrder=5 --swap 0:1 0x3000`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := addresstranslator.ParseDirection(f.direction)
			if err != nil {
				return err
			}

			r, err := opts.startRun()
			if err != nil {
				return err
			}
			defer r.close()

			if err := applyEdits(r.session, f.edits, f.swaps); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			results := make([]addresstranslator.Result, 0, len(args))

			for _, addr := range args {
				res, err := r.session.Translate(dir, addr)
				if err != nil {
					return fmt.Errorf("translating %s: %w", addr, err)
				}

				results = append(results, res)

				if !f.asJSON {
					if err := printResult(out, res); err != nil {
						return err
					}
				}
			}

			if f.asJSON {
				return printJSON(out, results)
			}

			if !f.showTable {
				return nil
			}

			snap, err := r.session.Snapshot()
			if err != nil {
				return err
			}

			fmt.Fprintln(out)

			return printSnapshot(out, snap)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.direction, "direction", "d", "v2p",
		"Translation direction: v2p or p2v")
	flags.StringArrayVar(&f.edits, "edit", nil,
		"Manual edit <index>:<field>=<value>, field is present or arrivalOrder")
	flags.StringArrayVar(&f.swaps, "swap", nil,
		"Swap the frames of two pages, <a>:<b>")
	flags.BoolVar(&f.asJSON, "json", false, "Print the results as JSON")
	flags.BoolVar(&f.showTable, "show-table", false,
		"Print the page table after the translations")

	return cmd
}

func applyEdits(s *session.Session, edits, swaps []string) error {
	for _, e := range edits {
		index, field, value, err := ParseEdit(e)
		if err != nil {
			return err
		}

		if err := s.ApplyManualEdit(index, field, value); err != nil {
			return fmt.Errorf("edit %s: %w", e, err)
		}
	}

	for _, sw := range swaps {
		a, b, err := ParseSwap(sw)
		if err != nil {
			return err
		}

		if err := s.SwapPhysicalSlots(a, b); err != nil {
			return fmt.Errorf("swap %s: %w", sw, err)
		}
	}

	return nil
}

// ParseEdit parses "<index>:<field>=<value>".
func ParseEdit(s string) (index uint64, field vm.Field, value int, err error) {
	indexStr, rest, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, 0, fmt.Errorf("edit %q, want <index>:<field>=<value>: %w",
			s, vm.ErrInvalidValue)
	}

	fieldStr, valueStr, ok := strings.Cut(rest, "=")
	if !ok {
		return 0, 0, 0, fmt.Errorf("edit %q, want <index>:<field>=<value>: %w",
			s, vm.ErrInvalidValue)
	}

	index, err = strconv.ParseUint(indexStr, 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("edit %q: %v: %w", s, err, vm.ErrIndexOutOfRange)
	}

	field, err = vm.ParseField(fieldStr)
	if err != nil {
		return 0, 0, 0, err
	}

	switch strings.ToLower(valueStr) {
	case "true":
		return index, field, 1, nil
	case "false":
		return index, field, 0, nil
	}

	value, err = strconv.Atoi(valueStr)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("edit %q: %v: %w", s, err, vm.ErrInvalidValue)
	}

	return index, field, value, nil
}

// ParseSwap parses "<a>:<b>".
func ParseSwap(s string) (a, b uint64, err error) {
	aStr, bStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("swap %q, want <a>:<b>: %w", s, vm.ErrInvalidValue)
	}

	a, err = strconv.ParseUint(aStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("swap %q: %v: %w", s, err, vm.ErrIndexOutOfRange)
	}

	b, err = strconv.ParseUint(bStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("swap %q: %v: %w", s, err, vm.ErrIndexOutOfRange)
	}

	return a, b, nil
}
