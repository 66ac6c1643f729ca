package vm

import (
	"fmt"
	"math"

	"github.com/sarchlab/vmsim/mem/vm/codec"
)

// KB is the number of bytes in a kilobyte. Sizes are entered in kilobytes.
const KB = 1024

// MaxPages bounds the number of virtual pages, since the page table holds
// one entry per page.
const MaxPages = 1 << 20

// Config describes the virtual space, the physical space, and the page size
// of a simulation run. All sizes are in bytes.
type Config struct {
	VirtualSpaceBytes  uint64 `json:"virtual_space_bytes"`
	PhysicalSpaceBytes uint64 `json:"physical_space_bytes"`
	PageSizeBytes      uint64 `json:"page_size_bytes"`

	// overflow is set when a size given in kilobytes does not fit in bytes.
	overflow bool
}

// ConfigFromKB creates a Config from sizes given in kilobytes. Sizes too
// large to express in bytes make the Config fail Validate.
func ConfigFromKB(virtualKB, physicalKB, pageKB uint64) Config {
	const maxKB = math.MaxUint64 / KB

	if virtualKB > maxKB || physicalKB > maxKB || pageKB > maxKB {
		return Config{overflow: true}
	}

	return Config{
		VirtualSpaceBytes:  virtualKB * KB,
		PhysicalSpaceBytes: physicalKB * KB,
		PageSizeBytes:      pageKB * KB,
	}
}

// Validate checks that the sizes are positive, that the physical space is
// exactly half of the virtual space, and that all the bit widths derived from
// the sizes are exact.
func (c Config) Validate() error {
	if c.overflow {
		return fmt.Errorf("sizes in KB must be at most %d: %w",
			uint64(math.MaxUint64/KB), ErrConfiguration)
	}

	if c.VirtualSpaceBytes == 0 || c.PhysicalSpaceBytes == 0 ||
		c.PageSizeBytes == 0 {
		return fmt.Errorf("all sizes must be greater than zero: %w",
			ErrConfiguration)
	}

	if c.PhysicalSpaceBytes*2 != c.VirtualSpaceBytes {
		return fmt.Errorf(
			"physical space (%d) must be half of virtual space (%d): %w",
			c.PhysicalSpaceBytes, c.VirtualSpaceBytes, ErrConfiguration)
	}

	if _, err := codec.Log2Exact(c.PageSizeBytes); err != nil {
		return fmt.Errorf("page size: %v: %w", err, ErrConfiguration)
	}

	if c.PhysicalSpaceBytes%c.PageSizeBytes != 0 {
		return fmt.Errorf(
			"page size (%d) must divide physical space (%d): %w",
			c.PageSizeBytes, c.PhysicalSpaceBytes, ErrConfiguration)
	}

	if _, err := codec.Log2Exact(c.TotalFrames()); err != nil {
		return fmt.Errorf("frame count: %v: %w", err, ErrConfiguration)
	}

	if c.TotalPages() > MaxPages {
		return fmt.Errorf("%d pages exceed the limit of %d: %w",
			c.TotalPages(), MaxPages, ErrConfiguration)
	}

	if c.VirtualAddressBits() > 63 {
		return fmt.Errorf("virtual space of %d bits is too large: %w",
			c.VirtualAddressBits(), ErrConfiguration)
	}

	return nil
}

// TotalPages returns the number of virtual pages.
func (c Config) TotalPages() uint64 {
	return c.VirtualSpaceBytes / c.PageSizeBytes
}

// TotalFrames returns the number of physical frames.
func (c Config) TotalFrames() uint64 {
	return c.PhysicalSpaceBytes / c.PageSizeBytes
}

// OffsetBits returns the width of the in-page offset.
func (c Config) OffsetBits() int {
	return log2(c.PageSizeBytes)
}

// VirtualPageBits returns the width of a virtual page number.
func (c Config) VirtualPageBits() int {
	return log2(c.TotalPages())
}

// PhysicalPageBits returns the width of a physical frame number.
func (c Config) PhysicalPageBits() int {
	return log2(c.TotalFrames())
}

// VirtualAddressBits returns the width of a virtual address.
func (c Config) VirtualAddressBits() int {
	return c.VirtualPageBits() + c.OffsetBits()
}

// PhysicalAddressBits returns the width of a physical address.
func (c Config) PhysicalAddressBits() int {
	return c.PhysicalPageBits() + c.OffsetBits()
}

// VirtualIndexWidth is the display width of a virtual page number.
func (c Config) VirtualIndexWidth() int {
	return max(c.VirtualPageBits(), 1)
}

// PhysicalIndexWidth is the display width of a physical frame number.
func (c Config) PhysicalIndexWidth() int {
	return max(c.PhysicalPageBits(), 1)
}

// OffsetMask selects the offset bits of an address.
func (c Config) OffsetMask() uint64 {
	return (uint64(1) << c.OffsetBits()) - 1
}

func (c Config) String() string {
	return fmt.Sprintf("virtual=%dB physical=%dB page=%dB",
		c.VirtualSpaceBytes, c.PhysicalSpaceBytes, c.PageSizeBytes)
}

// log2 returns the floor of log2(n). Validate guarantees n is a power of two
// for every width a valid Config derives.
func log2(n uint64) int {
	l := -1
	for n > 0 {
		n >>= 1
		l++
	}

	return max(l, 0)
}
