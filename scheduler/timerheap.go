package scheduler

import "container/heap"

// timerEntry is a single pending fire, ordered by deadline nanoseconds.
type timerEntry struct {
	deadline int64
	period   int64 // 0 for one-shot; otherwise re-pushed with deadline += period
	task     func()
	token    *cancelState
	index    int // heap index, maintained by container/heap
}

// timerHeap is a min-heap of timerEntry ordered by deadline, so the
// scheduler's run-loop can repeatedly ask "what's the next thing to fire"
// without scanning every pending task on each tick.
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool { return h[i].deadline < h[j].deadline }

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

func (h *timerHeap) push(e *timerEntry) { heap.Push(h, e) }

func (h *timerHeap) peek() *timerEntry {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

func (h *timerHeap) popMin() *timerEntry { return heap.Pop(h).(*timerEntry) }

// remove drops an entry previously returned by push, using its heap index.
// A no-op if the entry has already fired and been popped (index < 0).
func (h *timerHeap) remove(e *timerEntry) {
	if e.index < 0 || e.index >= len(*h) || (*h)[e.index] != e {
		return
	}
	heap.Remove(h, e.index)
}
