package datarecording

import (
	"github.com/sarchlab/vmsim/mem/vm/addresstranslator"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/sim/hooking"
)

// Table names written by TranslationRecorder.
const (
	TranslationTable = "translations"
	PageFaultTable   = "page_faults"
	EvictionTable    = "evictions"
)

// TranslationEntry is a row of the translations table.
type TranslationEntry struct {
	Seq             uint64
	Direction       string
	VirtualAddress  uint64
	PhysicalAddress uint64
	VirtualPage     uint64
	PhysicalPage    uint64
	Offset          uint64
	AddressHex      string
	Faulted         bool
	Evicted         bool
	EvictedPage     uint64
}

// PageFaultEntry is a row of the page_faults table.
type PageFaultEntry struct {
	Seq     uint64
	VPN     uint64
	PFN     uint64
	Evicted bool
	Victim  uint64
}

// EvictionEntry is a row of the evictions table.
type EvictionEntry struct {
	Seq    uint64
	Victim uint64
	PFN    uint64
	For    uint64
}

// TranslationRecorder is a hook that writes translations, page faults and
// evictions into a DataRecorder. All rows share one sequence counter, so the
// order of events can be restored across tables.
type TranslationRecorder struct {
	recorder DataRecorder
	seq      uint64
}

// NewTranslationRecorder creates the tables and returns the hook.
func NewTranslationRecorder(recorder DataRecorder) *TranslationRecorder {
	recorder.CreateTable(TranslationTable, TranslationEntry{})
	recorder.CreateTable(PageFaultTable, PageFaultEntry{})
	recorder.CreateTable(EvictionTable, EvictionEntry{})

	return &TranslationRecorder{recorder: recorder}
}

// Func records the hook item if it is one of the known events.
func (r *TranslationRecorder) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case addresstranslator.HookPosTranslation:
		res, ok := ctx.Item.(addresstranslator.Result)
		if ok {
			r.recordTranslation(res)
		}
	case replacement.HookPosPageFault:
		fault, ok := ctx.Item.(replacement.FaultResult)
		if ok {
			r.recorder.InsertData(PageFaultTable, PageFaultEntry{
				Seq:     r.next(),
				VPN:     fault.VPN,
				PFN:     fault.PFN,
				Evicted: fault.Evicted,
				Victim:  fault.Victim,
			})
		}
	case replacement.HookPosPageEvict:
		detail, ok := ctx.Item.(replacement.EvictionDetail)
		if ok {
			r.recorder.InsertData(EvictionTable, EvictionEntry{
				Seq:    r.next(),
				Victim: detail.Victim,
				PFN:    detail.PFN,
				For:    detail.For,
			})
		}
	}
}

func (r *TranslationRecorder) recordTranslation(res addresstranslator.Result) {
	entry := TranslationEntry{
		Seq:             r.next(),
		Direction:       res.Direction.String(),
		VirtualAddress:  res.VirtualAddress,
		PhysicalAddress: res.PhysicalAddress,
		VirtualPage:     res.VirtualPage,
		PhysicalPage:    res.PhysicalPage,
		Offset:          res.Offset,
		AddressHex:      res.AddressHex,
		Faulted:         res.Faulted,
	}

	if res.EvictedPage != nil {
		entry.Evicted = true
		entry.EvictedPage = *res.EvictedPage
	}

	r.recorder.InsertData(TranslationTable, entry)
}

func (r *TranslationRecorder) next() uint64 {
	r.seq++
	return r.seq
}
