// Package replacement handles page faults by loading the faulting page into
// a free frame, or into the frame of an evicted page when the physical space
// is full.
package replacement

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim/hooking"
)

// HookPosPageFault marks when a faulting page has been loaded.
var HookPosPageFault = &hooking.HookPos{Name: "Page Fault"}

// HookPosPageEvict marks when a resident page has been evicted.
var HookPosPageEvict = &hooking.HookPos{Name: "Page Evict"}

// FaultResult describes how a page fault was served.
type FaultResult struct {
	VPN     uint64 `json:"vpn"`
	PFN     uint64 `json:"pfn"`
	Evicted bool   `json:"evicted"`
	Victim  uint64 `json:"victim"`
}

// EvictedPage returns the evicted page, if there was one.
func (r FaultResult) EvictedPage() (uint64, bool) {
	return r.Victim, r.Evicted
}

// LogAttrs describes the result for structured logging.
func (r FaultResult) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.Uint64("vpn", r.VPN),
		slog.Uint64("pfn", r.PFN),
	}

	if r.Evicted {
		attrs = append(attrs, slog.Uint64("victim", r.Victim))
	}

	return attrs
}

// EvictionDetail is the hook item of HookPosPageEvict.
type EvictionDetail struct {
	Victim uint64 `json:"victim"`
	PFN    uint64 `json:"pfn"`
	For    uint64 `json:"for"`
}

// LogAttrs describes the eviction for structured logging.
func (d EvictionDetail) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Uint64("victim", d.Victim),
		slog.Uint64("pfn", d.PFN),
		slog.Uint64("for", d.For),
	}
}

// Engine serves page faults.
type Engine struct {
	hooking.HookableBase

	victimFinder VictimFinder
}

// NewEngine creates an Engine that evicts the pages chosen by victimFinder.
func NewEngine(victimFinder VictimFinder) *Engine {
	return &Engine{victimFinder: victimFinder}
}

// NewFIFOEngine creates an Engine with FIFO replacement.
func NewFIFOEngine() *Engine {
	return NewEngine(NewFIFOVictimFinder())
}

// Fault loads a non-resident page. While the physical space has room, the
// page takes the next free frame. Otherwise the victim is evicted and its
// frame is reused. The page joins the back of the load queue. The input state
// is not modified.
func (e *Engine) Fault(
	cfg vm.Config,
	s vm.State,
	vpn uint64,
) (vm.State, FaultResult, error) {
	entry, err := s.Table.Entry(vpn)
	if err != nil {
		return s, FaultResult{}, err
	}

	if entry.Present {
		return s, FaultResult{},
			fmt.Errorf("fault on page %d: %w", vpn, vm.ErrPagePresent)
	}

	next := s.Clone()
	res := FaultResult{VPN: vpn}

	if next.Table.PresentCount() < cfg.TotalFrames() {
		res.PFN, err = e.freeFrame(cfg, next)
	} else {
		res.PFN, res.Victim, err = e.evict(&next)
		res.Evicted = err == nil
	}

	if err != nil {
		return s, FaultResult{}, err
	}

	if !next.Queue.CanPush() {
		return s, FaultResult{}, fmt.Errorf(
			"load queue full with %d of %d frames used: %w",
			next.Table.PresentCount(), cfg.TotalFrames(),
			vm.ErrInconsistentTable)
	}

	err = next.Table.Install(vpn, res.PFN, next.Queue.Size())
	if err != nil {
		return s, FaultResult{}, err
	}

	next.Queue.Push(vpn)

	if res.Evicted {
		e.InvokeHook(hooking.HookCtx{
			Domain: e,
			Pos:    HookPosPageEvict,
			Item:   EvictionDetail{Victim: res.Victim, PFN: res.PFN, For: vpn},
		})
	}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    HookPosPageFault,
		Item:   res,
	})

	return next, res, nil
}

// freeFrame returns the frame numbered after the resident page count. If a
// manual edit has left that frame taken, the lowest free frame is used.
func (e *Engine) freeFrame(cfg vm.Config, s vm.State) (uint64, error) {
	pfn := s.Table.PresentCount()
	if _, taken := s.Table.FindByFrame(pfn); !taken {
		return pfn, nil
	}

	pfn, ok := s.Table.LowestFreeFrame(cfg.TotalFrames())
	if !ok {
		return 0, fmt.Errorf("%d pages present: %w",
			s.Table.PresentCount(), vm.ErrNoFreeFrame)
	}

	return pfn, nil
}

// evict removes the victim from the state and returns its frame. Hooks are
// left to Fault, which only reports the eviction once the page is installed.
func (e *Engine) evict(s *vm.State) (pfn, victim uint64, err error) {
	victim, ok := e.victimFinder.FindVictim(*s)
	if !ok {
		return 0, 0, fmt.Errorf("physical space full but nothing to evict: %w",
			vm.ErrInconsistentTable)
	}

	s.Queue.Remove(victim)

	pfn, err = s.Table.Evict(victim)
	if err != nil {
		return 0, 0, fmt.Errorf("victim %d: %v: %w",
			victim, err, vm.ErrInconsistentTable)
	}

	return pfn, victim, nil
}
