package replacement

import (
	"github.com/sarchlab/vmsim/mem/vm"
)

// A VictimFinder decides which resident page should be evicted.
type VictimFinder interface {
	FindVictim(s vm.State) (vpn uint64, ok bool)
}

// FIFOVictimFinder evicts the page that was loaded first.
type FIFOVictimFinder struct {
}

// NewFIFOVictimFinder returns a newly constructed fifo victim finder.
func NewFIFOVictimFinder() *FIFOVictimFinder {
	return new(FIFOVictimFinder)
}

// FindVictim returns the page at the front of the load queue.
func (f *FIFOVictimFinder) FindVictim(s vm.State) (uint64, bool) {
	return s.Queue.Peek()
}
