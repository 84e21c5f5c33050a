package fastmarch

import "container/heap"

// TrialEntry is one pending (cell, tentative time) pair in the narrow band.
// Several entries may exist for the same cell; only the one matching the
// cell's current LabelField value is valid.
type TrialEntry struct {
	Offset int
	Time   float64
	seq    uint64
}

// TrialQueue is a min-heap of TrialEntry ordered by Time, ties broken by
// insertion order. It uses the "lazy decrease-key" strategy: an improved
// time is inserted as a new entry and the outdated one is discarded when it
// surfaces, so no index into the heap is ever needed.
type TrialQueue struct {
	items trialPQ
	seq   uint64
}

// NewTrialQueue returns an empty queue with room for capacity entries.
func NewTrialQueue(capacity int) *TrialQueue {
	return &TrialQueue{items: make(trialPQ, 0, capacity)}
}

// Insert pushes (offset, t). O(log n).
func (q *TrialQueue) Insert(offset int, t float64) {
	q.seq++
	heap.Push(&q.items, TrialEntry{Offset: offset, Time: t, seq: q.seq})
}

// ExtractMin removes and returns the entry with the smallest time.
// The second result is false when the queue is empty. O(log n).
func (q *TrialQueue) ExtractMin() (TrialEntry, bool) {
	if len(q.items) == 0 {
		return TrialEntry{}, false
	}

	return heap.Pop(&q.items).(TrialEntry), true
}

// Len returns the number of entries, stale ones included.
func (q *TrialQueue) Len() int { return len(q.items) }

// Reset empties the queue and restarts the tie-break sequence, keeping capacity.
func (q *TrialQueue) Reset() {
	q.items = q.items[:0]
	q.seq = 0
}

// trialPQ implements heap.Interface.
type trialPQ []TrialEntry

// Len returns the number of items in the heap.
func (pq trialPQ) Len() int { return len(pq) }

// Less orders by time, then by insertion sequence so equal times pop FIFO.
func (pq trialPQ) Less(i, j int) bool {
	if pq[i].Time != pq[j].Time {
		return pq[i].Time < pq[j].Time
	}

	return pq[i].seq < pq[j].seq
}

// Swap swaps two elements in the heap.
func (pq trialPQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

// Push appends x; called by heap.Push.
func (pq *trialPQ) Push(x interface{}) { *pq = append(*pq, x.(TrialEntry)) }

// Pop removes the last element; called by heap.Pop.
func (pq *trialPQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]

	return item
}
