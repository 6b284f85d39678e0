package pipeline

// resultHeap orders completed chunkResults by chunk id, the ordering
// buffer the gatherer uses to release chunks to the output in input
// order regardless of completion order. It stays small: at most the
// number of chunks currently in flight ahead of the gatherer's cursor.
type resultHeap []chunkResult

func (h resultHeap) Len() int            { return len(h) }
func (h resultHeap) Less(i, j int) bool  { return h[i].id < h[j].id }
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x interface{}) { *h = append(*h, x.(chunkResult)) }

func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
