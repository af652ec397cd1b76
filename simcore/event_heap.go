package simcore

import "container/heap"

// eventHeap is a container/heap.Interface over scheduled events, ordered
// by timestamp and, on ties, by insertion sequence (FIFO) so that runs
// with the same RNG seed are bit-for-bit reproducible regardless of map
// or slice iteration order elsewhere in the simulator.
type eventHeap struct {
	items []*heapItem
}

type heapItem struct {
	event Event
	seq   int64
	index int
}

func newEventHeap() *eventHeap {
	h := &eventHeap{}
	heap.Init(h)
	return h
}

func (h *eventHeap) Len() int { return len(h.items) }

func (h *eventHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.event.Time() != b.event.Time() {
		return a.event.Time() < b.event.Time()
	}
	return a.seq < b.seq
}

func (h *eventHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *eventHeap) Push(x any) {
	it := x.(*heapItem)
	it.index = len(h.items)
	h.items = append(h.items, it)
}

func (h *eventHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return it
}
