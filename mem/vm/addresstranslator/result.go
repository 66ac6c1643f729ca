package addresstranslator

import (
	"log/slog"

	"github.com/sarchlab/vmsim/mem/vm/codec"
)

// A Result reports one translation in binary and hex forms. AddressHex is
// the hex form of the derived address: the physical address for v2p and the
// virtual address for p2v.
type Result struct {
	Direction Direction `json:"direction"`

	VirtualAddress  uint64 `json:"virtual_address"`
	PhysicalAddress uint64 `json:"physical_address"`
	VirtualPage     uint64 `json:"virtual_page"`
	PhysicalPage    uint64 `json:"physical_page"`
	Offset          uint64 `json:"offset"`

	VirtualAddressBinary  string `json:"virtual_address_binary"`
	PhysicalAddressBinary string `json:"physical_address_binary"`
	AddressHex            string `json:"address_hex"`

	VirtualPageBits  int `json:"virtual_page_bits"`
	PhysicalPageBits int `json:"physical_page_bits"`

	Faulted     bool    `json:"faulted"`
	EvictedPage *uint64 `json:"evicted_page,omitempty"`
}

// VirtualSegments splits the virtual address into page number and offset.
func (r Result) VirtualSegments() (page, offset string) {
	return codec.SplitBinary(r.VirtualAddressBinary, r.VirtualPageBits)
}

// PhysicalSegments splits the physical address into frame number and offset.
func (r Result) PhysicalSegments() (page, offset string) {
	return codec.SplitBinary(r.PhysicalAddressBinary, r.PhysicalPageBits)
}

// LogAttrs describes the result for structured logging.
func (r Result) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("direction", r.Direction.String()),
		slog.Uint64("vaddr", r.VirtualAddress),
		slog.Uint64("paddr", r.PhysicalAddress),
		slog.String("hex", r.AddressHex),
	}

	if r.Faulted {
		attrs = append(attrs, slog.Bool("faulted", true))
	}

	if r.EvictedPage != nil {
		attrs = append(attrs, slog.Uint64("evicted", *r.EvictedPage))
	}

	return attrs
}
