package hooking

import (
	"sync"
)

// PosCountHook counts how many times each hook position is triggered.
type PosCountHook struct {
	lock     sync.Mutex
	posNames []string
	posCount map[string]uint64
}

// NewPosCountHook creates a new PosCountHook.
func NewPosCountHook() *PosCountHook {
	return &PosCountHook{
		posCount: make(map[string]uint64),
	}
}

// Func counts the position of the invocation.
func (h *PosCountHook) Func(ctx HookCtx) {
	h.lock.Lock()
	defer h.lock.Unlock()

	name := ctx.Pos.Name
	if _, ok := h.posCount[name]; !ok {
		h.posNames = append(h.posNames, name)
	}

	h.posCount[name]++
}

// GetPosNames returns the positions seen so far, in first-seen order.
func (h *PosCountHook) GetPosNames() []string {
	h.lock.Lock()
	defer h.lock.Unlock()

	return append([]string(nil), h.posNames...)
}

// GetCount returns how many times a position was triggered.
func (h *PosCountHook) GetCount(pos *HookPos) uint64 {
	h.lock.Lock()
	defer h.lock.Unlock()

	return h.posCount[pos.Name]
}

// Reset forgets all counts.
func (h *PosCountHook) Reset() {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.posNames = nil
	h.posCount = make(map[string]uint64)
}
