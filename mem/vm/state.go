package vm

import (
	"fmt"
)

// State is the mutable part of a simulation run: the page table and the load
// order of its resident pages. Operations take a State and return a new one,
// leaving their input untouched.
type State struct {
	Table PageTable
	Queue LoadQueue
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	return State{
		Table: s.Table.Clone(),
		Queue: s.Queue.Clone(),
	}
}

// CheckInvariants verifies the page table invariants and that the load queue
// holds exactly the resident pages, each once.
func (s State) CheckInvariants(cfg Config) error {
	if s.Table.Len() != cfg.TotalPages() {
		return fmt.Errorf("table has %d pages, config has %d: %w",
			s.Table.Len(), cfg.TotalPages(), ErrInconsistentTable)
	}

	if err := s.Table.CheckInvariants(cfg.TotalFrames()); err != nil {
		return err
	}

	queued := make(map[uint64]bool, s.Queue.Size())
	for _, vpn := range s.Queue.Pages() {
		if queued[vpn] {
			return fmt.Errorf("page %d queued twice: %w",
				vpn, ErrInconsistentTable)
		}

		queued[vpn] = true

		e, err := s.Table.Entry(vpn)
		if err != nil {
			return fmt.Errorf("queued page: %v: %w", err, ErrInconsistentTable)
		}

		if !e.Present {
			return fmt.Errorf("queued page %d is not present: %w",
				vpn, ErrInconsistentTable)
		}
	}

	if uint64(len(queued)) != s.Table.PresentCount() {
		return fmt.Errorf("%d pages queued, %d present: %w",
			len(queued), s.Table.PresentCount(), ErrInconsistentTable)
	}

	return nil
}
