// Package vm models single-level paged virtual memory: the configuration of
// the address spaces, the page table, and the FIFO load queue of resident
// pages.
package vm

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm/codec"
)

// NoArrival is the arrival order of a page that is not resident.
const NoArrival = -1

// A PageTableEntry is a page table row, maintaining the information about how to
// translate the addresses of one virtual page.
type PageTableEntry struct {
	VPN          uint64 `json:"vpn"`
	PFN          uint64 `json:"pfn"`
	Present      bool   `json:"present"`
	ArrivalOrder int    `json:"arrival_order"`
}

// A PageTable holds one entry per virtual page, indexed by the virtual page
// number.
type PageTable struct {
	entries []PageTableEntry
}

// NewPageTable creates a page table of n absent pages.
func NewPageTable(n uint64) PageTable {
	pt := PageTable{entries: make([]PageTableEntry, n)}
	for i := range pt.entries {
		pt.entries[i] = PageTableEntry{VPN: uint64(i), ArrivalOrder: NoArrival}
	}

	return pt
}

// Len returns the number of virtual pages.
func (pt PageTable) Len() uint64 {
	return uint64(len(pt.entries))
}

// Entry returns the entry of a virtual page.
func (pt PageTable) Entry(vpn uint64) (PageTableEntry, error) {
	if vpn >= pt.Len() {
		return PageTableEntry{}, fmt.Errorf("page %d of %d: %w",
			vpn, pt.Len(), ErrIndexOutOfRange)
	}

	return pt.entries[vpn], nil
}

// Entries returns a copy of all entries.
func (pt PageTable) Entries() []PageTableEntry {
	out := make([]PageTableEntry, len(pt.entries))
	copy(out, pt.entries)

	return out
}

// FindByFrame returns the present entry that occupies the frame.
func (pt PageTable) FindByFrame(pfn uint64) (PageTableEntry, bool) {
	for _, e := range pt.entries {
		if e.Present && e.PFN == pfn {
			return e, true
		}
	}

	return PageTableEntry{}, false
}

// PresentCount returns the number of resident pages.
func (pt PageTable) PresentCount() uint64 {
	n := uint64(0)

	for _, e := range pt.entries {
		if e.Present {
			n++
		}
	}

	return n
}

// LowestFreeFrame returns the smallest frame number below totalFrames that no
// present page occupies.
func (pt PageTable) LowestFreeFrame(totalFrames uint64) (uint64, bool) {
	used := make(map[uint64]bool, totalFrames)
	for _, e := range pt.entries {
		if e.Present {
			used[e.PFN] = true
		}
	}

	for f := uint64(0); f < totalFrames; f++ {
		if !used[f] {
			return f, true
		}
	}

	return 0, false
}

// VirtualIndex formats the virtual page number of an entry in binary.
func (pt PageTable) VirtualIndex(cfg Config, vpn uint64) (string, error) {
	return codec.ToBinary(vpn, cfg.VirtualIndexWidth())
}

// PhysicalIndex formats the frame number of an entry in binary. It is empty
// for pages that are not resident.
func (pt PageTable) PhysicalIndex(cfg Config, vpn uint64) (string, error) {
	e, err := pt.Entry(vpn)
	if err != nil {
		return "", err
	}

	if !e.Present {
		return "", nil
	}

	return codec.ToBinary(e.PFN, cfg.PhysicalIndexWidth())
}

// Clone returns a deep copy of the page table.
func (pt PageTable) Clone() PageTable {
	return PageTable{entries: pt.Entries()}
}

// CheckInvariants verifies that at most totalFrames pages are present, that
// every present frame number is below totalFrames, and that no two present
// pages share a frame.
func (pt PageTable) CheckInvariants(totalFrames uint64) error {
	owner := make(map[uint64]uint64)

	for _, e := range pt.entries {
		if !e.Present {
			continue
		}

		if e.PFN >= totalFrames {
			return fmt.Errorf("page %d uses frame %d of %d: %w",
				e.VPN, e.PFN, totalFrames, ErrInconsistentTable)
		}

		if other, taken := owner[e.PFN]; taken {
			return fmt.Errorf("pages %d and %d share frame %d: %w",
				other, e.VPN, e.PFN, ErrInconsistentTable)
		}

		owner[e.PFN] = e.VPN
	}

	if uint64(len(owner)) > totalFrames {
		return fmt.Errorf("%d present pages exceed %d frames: %w",
			len(owner), totalFrames, ErrInconsistentTable)
	}

	return nil
}

// Install marks a page resident in a frame. Like Evict, it changes the table
// in place; Clone the table first to keep the original.
func (pt PageTable) Install(vpn, pfn uint64, arrivalOrder int) error {
	if vpn >= pt.Len() {
		return fmt.Errorf("page %d of %d: %w", vpn, pt.Len(), ErrIndexOutOfRange)
	}

	pt.entries[vpn] = PageTableEntry{
		VPN:          vpn,
		PFN:          pfn,
		Present:      true,
		ArrivalOrder: arrivalOrder,
	}

	return nil
}

// Evict marks a page not resident and returns the frame it occupied.
func (pt PageTable) Evict(vpn uint64) (uint64, error) {
	if vpn >= pt.Len() {
		return 0, fmt.Errorf("page %d of %d: %w", vpn, pt.Len(), ErrIndexOutOfRange)
	}

	e := pt.entries[vpn]
	if !e.Present {
		return 0, fmt.Errorf("evicting page %d: %w", vpn, ErrNotResident)
	}

	pt.entries[vpn] = PageTableEntry{VPN: vpn, ArrivalOrder: NoArrival}

	return e.PFN, nil
}

func (pt PageTable) set(e PageTableEntry) {
	pt.entries[e.VPN] = e
}
