// Package addresstranslator translates virtual addresses to physical
// addresses and back, serving page faults with a replacement engine.
package addresstranslator

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/codec"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/sim/hooking"
)

// HookPosTranslation marks when an address has been translated.
var HookPosTranslation = &hooking.HookPos{Name: "Translation"}

// Comp is an AddressTranslator that works on the page table of a State.
// It keeps no page table of its own.
type Comp struct {
	hooking.HookableBase

	name   string
	cfg    vm.Config
	engine *replacement.Engine
	logger *slog.Logger
}

// Name returns the name of the translator.
func (c *Comp) Name() string {
	return c.name
}

// Config returns the address spaces the translator works on.
func (c *Comp) Config() vm.Config {
	return c.cfg
}

// ReplacementEngine returns the engine that serves page faults.
func (c *Comp) ReplacementEngine() *replacement.Engine {
	return c.engine
}

// Translate parses a hex address and translates it in the given direction.
// Only v2p translations can change the state.
func (c *Comp) Translate(
	s vm.State,
	dir Direction,
	addressHex string,
) (Result, vm.State, error) {
	addr, err := ParseAddress(addressHex)
	if err != nil {
		return Result{}, s, err
	}

	switch dir {
	case DirectionV2P:
		return c.VirtualToPhysical(s, addr)
	case DirectionP2V:
		res, err := c.PhysicalToVirtual(s, addr)
		return res, s, err
	default:
		return Result{}, s, fmt.Errorf("%v: %w", dir, ErrUnknownDirection)
	}
}

// VirtualToPhysical translates a virtual address. If the page is not
// resident, the replacement engine loads it and the returned state reflects
// the new mapping.
func (c *Comp) VirtualToPhysical(
	s vm.State,
	addr int64,
) (Result, vm.State, error) {
	if addr < 0 || uint64(addr) >= c.cfg.VirtualSpaceBytes {
		return Result{}, s, fmt.Errorf(
			"virtual address %#x not in [0, %#x): %w",
			addr, c.cfg.VirtualSpaceBytes, vm.ErrAddressOutOfRange)
	}

	vaddr := uint64(addr)
	vpn := vaddr >> c.cfg.OffsetBits()
	offset := vaddr & c.cfg.OffsetMask()

	entry, err := s.Table.Entry(vpn)
	if err != nil {
		return Result{}, s, fmt.Errorf("%v: %w", err, vm.ErrInconsistentTable)
	}

	res := Result{
		Direction:      DirectionV2P,
		VirtualAddress: vaddr,
		VirtualPage:    vpn,
		Offset:         offset,
	}

	next := s
	pfn := entry.PFN

	if !entry.Present {
		var fault replacement.FaultResult

		next, fault, err = c.engine.Fault(c.cfg, s, vpn)
		if err != nil {
			return Result{}, s, err
		}

		pfn = fault.PFN
		res.Faulted = true

		if victim, evicted := fault.EvictedPage(); evicted {
			res.EvictedPage = &victim
		}
	}

	res.PhysicalPage = pfn
	res.PhysicalAddress = pfn<<c.cfg.OffsetBits() | offset

	err = c.encode(&res, res.PhysicalAddress, c.cfg.PhysicalAddressBits())
	if err != nil {
		return Result{}, s, err
	}

	c.report(res)

	return res, next, nil
}

// PhysicalToVirtual finds the virtual address mapped to a physical address.
// It fails with vm.ErrNoMappingFound if no resident page owns the frame.
func (c *Comp) PhysicalToVirtual(s vm.State, addr int64) (Result, error) {
	if addr < 0 || uint64(addr) >= c.cfg.PhysicalSpaceBytes {
		return Result{}, fmt.Errorf(
			"physical address %#x not in [0, %#x): %w",
			addr, c.cfg.PhysicalSpaceBytes, vm.ErrAddressOutOfRange)
	}

	paddr := uint64(addr)
	pfn := paddr >> c.cfg.OffsetBits()
	offset := paddr & c.cfg.OffsetMask()

	entry, found := s.Table.FindByFrame(pfn)
	if !found {
		return Result{}, fmt.Errorf("frame %d: %w", pfn, vm.ErrNoMappingFound)
	}

	res := Result{
		Direction:       DirectionP2V,
		VirtualAddress:  entry.VPN<<c.cfg.OffsetBits() | offset,
		PhysicalAddress: paddr,
		VirtualPage:     entry.VPN,
		PhysicalPage:    pfn,
		Offset:          offset,
	}

	err := c.encode(&res, res.VirtualAddress, c.cfg.VirtualAddressBits())
	if err != nil {
		return Result{}, err
	}

	c.report(res)

	return res, nil
}

// encode fills the binary and hex forms. Failures mean the table holds a
// page or frame number the configuration cannot express.
func (c *Comp) encode(res *Result, derived uint64, derivedBits int) error {
	var err error

	res.VirtualPageBits = c.cfg.VirtualPageBits()
	res.PhysicalPageBits = c.cfg.PhysicalPageBits()

	res.VirtualAddressBinary, err = codec.ToBinary(
		res.VirtualAddress, c.cfg.VirtualAddressBits())
	if err != nil {
		return fmt.Errorf("virtual address: %w", err)
	}

	res.PhysicalAddressBinary, err = codec.ToBinary(
		res.PhysicalAddress, c.cfg.PhysicalAddressBits())
	if err != nil {
		return fmt.Errorf("physical address: %w", err)
	}

	res.AddressHex, err = codec.FormatHex(derived, derivedBits)
	if err != nil {
		return fmt.Errorf("derived address: %w", err)
	}

	return nil
}

func (c *Comp) report(res Result) {
	if res.Faulted {
		c.logger.Info("page fault", slog.Uint64("vpn", res.VirtualPage),
			slog.Uint64("pfn", res.PhysicalPage),
			slog.Bool("evicted", res.EvictedPage != nil))
	}

	c.logger.Debug("address translated", resultArgs(res)...)

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosTranslation,
		Item:   res,
	})
}

func resultArgs(res Result) []any {
	attrs := res.LogAttrs()
	args := make([]any, len(attrs))

	for i, a := range attrs {
		args[i] = a
	}

	return args
}

// ParseAddress parses a hex address with an optional 0x prefix and an
// optional leading minus sign. Negative or oversized numbers parse but are
// reported as vm.ErrAddressOutOfRange; anything else that is not hex is
// vm.ErrInvalidHexAddress.
func ParseAddress(s string) (int64, error) {
	s = strings.TrimSpace(s)

	negative := strings.HasPrefix(s, "-")
	if negative {
		s = strings.TrimSpace(s[1:])
	}

	v, err := codec.ParseHex(s)

	switch {
	case errors.Is(err, codec.ErrEncodingOverflow):
		return 0, fmt.Errorf("%q: %w", s, vm.ErrAddressOutOfRange)
	case err != nil:
		return 0, fmt.Errorf("%v: %w", err, vm.ErrInvalidHexAddress)
	case negative && v != 0:
		return 0, fmt.Errorf("-%s: %w", s, vm.ErrAddressOutOfRange)
	case v > math.MaxInt64:
		return 0, fmt.Errorf("%q: %w", s, vm.ErrAddressOutOfRange)
	}

	return int64(v), nil
}
