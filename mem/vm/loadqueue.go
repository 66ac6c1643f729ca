package vm

import (
	"log"
	"slices"
)

// A LoadQueue is a fifo queue of the virtual page numbers of resident pages,
// oldest first. It can hold at most one page per physical frame.
type LoadQueue struct {
	capacity int
	elements []uint64
}

// NewLoadQueue creates an empty queue that can hold capacity pages.
func NewLoadQueue(capacity int) LoadQueue {
	return LoadQueue{
		capacity: capacity,
		elements: make([]uint64, 0, capacity),
	}
}

// CanPush returns true if the queue still has room.
func (q LoadQueue) CanPush() bool {
	return len(q.elements) < q.capacity
}

// Push appends a page to the back of the queue. The caller must evict before
// pushing into a full queue.
func (q *LoadQueue) Push(vpn uint64) {
	if len(q.elements) >= q.capacity {
		log.Panic("load queue overflow")
	}

	q.elements = append(q.elements, vpn)
}

// Pop removes and returns the oldest page.
func (q *LoadQueue) Pop() (uint64, bool) {
	if len(q.elements) == 0 {
		return 0, false
	}

	vpn := q.elements[0]
	q.elements = slices.Clone(q.elements[1:])

	return vpn, true
}

// Peek returns the oldest page without removing it.
func (q LoadQueue) Peek() (uint64, bool) {
	if len(q.elements) == 0 {
		return 0, false
	}

	return q.elements[0], true
}

// Remove drops a page from anywhere in the queue. It returns false if the page
// is not queued.
func (q *LoadQueue) Remove(vpn uint64) bool {
	i := slices.Index(q.elements, vpn)
	if i < 0 {
		return false
	}

	q.elements = slices.Delete(slices.Clone(q.elements), i, i+1)

	return true
}

// Contains returns true if the page is queued.
func (q LoadQueue) Contains(vpn uint64) bool {
	return slices.Contains(q.elements, vpn)
}

// Capacity returns the number of frames the queue covers.
func (q LoadQueue) Capacity() int {
	return q.capacity
}

// Size returns the number of queued pages.
func (q LoadQueue) Size() int {
	return len(q.elements)
}

// Pages returns the queued pages, oldest first.
func (q LoadQueue) Pages() []uint64 {
	return slices.Clone(q.elements)
}

// Clone returns a copy that shares no storage with q.
func (q LoadQueue) Clone() LoadQueue {
	c := NewLoadQueue(q.capacity)
	c.elements = append(c.elements, q.elements...)

	return c
}
