package dispatch

import (
	"container/heap"
	"sync"
)

// SortedMergeCollector gathers partials that are each already sorted under
// less, and merges them into one ordered slice on Result (spec §4.7: "k-way
// merges lazily-sorted partials under a supplied comparator"; spec §9: "the
// contract is ordering, not topology" — this implementation uses a
// container/heap k-way merge rather than work-stealing, which is an
// equally valid topology under that contract).
type SortedMergeCollector[E any] struct {
	less func(a, b E) bool

	mu       sync.Mutex
	partials [][]E
}

// NewSortedMergeCollector creates a collector that merges partials in the
// order defined by less(a, b) == "a sorts before b".
func NewSortedMergeCollector[E any](less func(a, b E) bool) *SortedMergeCollector[E] {
	return &SortedMergeCollector[E]{less: less}
}

// Add records partial, which must already be sorted under less. Safe for
// concurrent use; the merge itself happens lazily in Result.
func (c *SortedMergeCollector[E]) Add(partial []E) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partials = append(c.partials, partial)
	return nil
}

// Result k-way merges every recorded partial into a single ordered slice.
func (c *SortedMergeCollector[E]) Result() []E {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	h := &mergeHeap[E]{less: c.less}
	for i, p := range c.partials {
		total += len(p)
		if len(p) > 0 {
			h.items = append(h.items, mergeItem[E]{val: p[0], partialIdx: i, elemIdx: 0})
		}
	}
	heap.Init(h)

	out := make([]E, 0, total)
	for h.Len() > 0 {
		top := heap.Pop(h).(mergeItem[E])
		out = append(out, top.val)

		next := top.elemIdx + 1
		if src := c.partials[top.partialIdx]; next < len(src) {
			heap.Push(h, mergeItem[E]{val: src[next], partialIdx: top.partialIdx, elemIdx: next})
		}
	}
	return out
}

type mergeItem[E any] struct {
	val        E
	partialIdx int
	elemIdx    int
}

type mergeHeap[E any] struct {
	items []mergeItem[E]
	less  func(a, b E) bool
}

func (h *mergeHeap[E]) Len() int { return len(h.items) }
func (h *mergeHeap[E]) Less(i, j int) bool {
	return h.less(h.items[i].val, h.items[j].val)
}
func (h *mergeHeap[E]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *mergeHeap[E]) Push(x any)    { h.items = append(h.items, x.(mergeItem[E])) }
func (h *mergeHeap[E]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
