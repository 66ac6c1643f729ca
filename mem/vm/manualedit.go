package vm

import (
	"fmt"
	"slices"
)

// Field names a page table column that can be overridden by hand.
type Field int

// Editable fields.
const (
	FieldPresent Field = iota
	FieldArrivalOrder
)

func (f Field) String() string {
	switch f {
	case FieldPresent:
		return "present"
	case FieldArrivalOrder:
		return "arrivalOrder"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ParseField converts a column name into a Field.
func ParseField(name string) (Field, error) {
	switch name {
	case "present":
		return FieldPresent, nil
	case "arrivalOrder", "arrival_order":
		return FieldArrivalOrder, nil
	default:
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownField)
	}
}

// ApplyManualEdit overrides one field of a page table entry without making a
// replacement decision. The load queue follows the edit:
//
//   - clearing present releases the frame and drops the page from the queue;
//   - setting present takes the lowest free frame and queues the page last;
//   - setting arrivalOrder on a resident page moves only that page in the
//     queue, in front of the first other page with a later arrival order.
//
// For the present field, any non-zero value means true.
func ApplyManualEdit(
	cfg Config,
	s State,
	index uint64,
	field Field,
	value int,
) (State, error) {
	e, err := s.Table.Entry(index)
	if err != nil {
		return s, err
	}

	next := s.Clone()

	switch field {
	case FieldPresent:
		err = setPresent(cfg, &next, e, value != 0)
	case FieldArrivalOrder:
		err = setArrivalOrder(&next, e, value)
	default:
		err = fmt.Errorf("%v: %w", field, ErrUnknownField)
	}

	if err != nil {
		return s, err
	}

	return next, nil
}

func setPresent(cfg Config, s *State, e PageTableEntry, present bool) error {
	if e.Present == present {
		return nil
	}

	if !present {
		if _, err := s.Table.Evict(e.VPN); err != nil {
			return err
		}

		s.Queue.Remove(e.VPN)

		return nil
	}

	pfn, ok := s.Table.LowestFreeFrame(cfg.TotalFrames())
	if !ok || !s.Queue.CanPush() {
		return fmt.Errorf("loading page %d: %w", e.VPN, ErrNoFreeFrame)
	}

	if err := s.Table.Install(e.VPN, pfn, s.Queue.Size()); err != nil {
		return err
	}

	s.Queue.Push(e.VPN)

	return nil
}

func setArrivalOrder(s *State, e PageTableEntry, order int) error {
	if !e.Present {
		return fmt.Errorf("arrival order of page %d: %w", e.VPN, ErrNotResident)
	}

	if order < 0 {
		return fmt.Errorf("arrival order %d: %w", order, ErrInvalidValue)
	}

	e.ArrivalOrder = order
	s.Table.set(e)

	// Only the edited page moves. It goes in front of the first other page
	// with a later arrival order, and the others keep their relative order
	// even when their arrival orders no longer increase along the queue.
	others := slices.DeleteFunc(s.Queue.Pages(), func(vpn uint64) bool {
		return vpn == e.VPN
	})

	pos := slices.IndexFunc(others, func(vpn uint64) bool {
		return s.Table.entries[vpn].ArrivalOrder > order
	})
	if pos < 0 {
		pos = len(others)
	}

	q := NewLoadQueue(s.Queue.Capacity())
	for _, vpn := range slices.Insert(others, pos, e.VPN) {
		q.Push(vpn)
	}

	s.Queue = q

	return nil
}

// SwapPhysicalSlots exchanges the frames claimed by two resident pages. The
// load queue and the presence flags are not changed. Swapping two absent
// pages does nothing; swapping a resident page with an absent one is an
// error, since the resident page would be left without a frame.
func SwapPhysicalSlots(s State, a, b uint64) (State, error) {
	ea, err := s.Table.Entry(a)
	if err != nil {
		return s, err
	}

	eb, err := s.Table.Entry(b)
	if err != nil {
		return s, err
	}

	if a == b || (!ea.Present && !eb.Present) {
		return s, nil
	}

	if !ea.Present || !eb.Present {
		return s, fmt.Errorf("swapping frames of pages %d and %d: %w",
			a, b, ErrNotResident)
	}

	next := s.Clone()
	ea.PFN, eb.PFN = eb.PFN, ea.PFN
	next.Table.set(ea)
	next.Table.set(eb)

	return next, nil
}
