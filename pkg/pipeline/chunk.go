package pipeline

import "github.com/linkforge/clk/pkg/bloom"

// chunkSize picks the chunk size rule spec.md prescribes: small inputs
// get fine-grained chunks for responsive progress reporting, large
// inputs get coarser chunks to amortize dispatch overhead.
func chunkSize(numRows int) int {
	if numRows <= 10000 {
		return 200
	}
	return 1000
}

// chunk is a contiguous slice of input rows dispatched as one work
// unit, tagged with a monotonically increasing id that preserves input
// order.
type chunk struct {
	id         int
	startIndex int
	rows       [][]string
}

func makeChunks(rows [][]string, size int) []chunk {
	chunks := make([]chunk, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, chunk{
			id:         len(chunks),
			startIndex: start,
			rows:       rows[start:end],
		})
	}
	return chunks
}

// chunkResult is what a worker emits after processing a chunk: either
// the chunk's encoded rows, or the error that aborted it.
type chunkResult struct {
	id   int
	rows []bloom.EncodedRow
	err  error
}
