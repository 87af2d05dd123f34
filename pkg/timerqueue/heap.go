package timerqueue

import "time"

// TimerUID identifies a single enqueue call for the lifetime of the
// queue that issued it. UIDs are dense, monotonically increasing, and
// never reused.
type TimerUID uint64

// heapEntry is the lean {uid, deadline} pair stored in the min-heap, kept
// deliberately separate from the job-table entry it may or may not still
// have a partner for (see tombstones on the entry type in queue.go).
type heapEntry struct {
	uid      TimerUID
	deadline time.Time
}

// minHeap orders heapEntry by deadline ascending, so the earliest
// deadline is always at index 0. UID only breaks ties to keep test
// output deterministic; production code must not rely on tie order.
type minHeap []heapEntry

func (h minHeap) Len() int { return len(h) }

func (h minHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].uid < h[j].uid
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h minHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *minHeap) Push(x interface{}) {
	*h = append(*h, x.(heapEntry))
}

func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}
