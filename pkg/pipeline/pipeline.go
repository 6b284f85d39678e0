// Package pipeline chunks rows, encodes them across a pool of workers,
// and gathers the results back into input order. It is the only
// component of the encoder that touches concurrency: Schema, KeySet,
// and the per-worker bloom.Encoder it builds are read-only from the
// workers' point of view.
package pipeline

import (
	"container/heap"
	"context"
	"runtime"

	"github.com/google/uuid"
	"github.com/pion/logging"
	"golang.org/x/sync/errgroup"

	"github.com/linkforge/clk/pkg/bloom"
	"github.com/linkforge/clk/pkg/kdf"
	"github.com/linkforge/clk/pkg/schema"
)

// ProgressFunc is invoked from the gatherer goroutine only (never
// concurrently) with the number of records flushed to the output so
// far. It must not block indefinitely, or it will stall the gatherer.
type ProgressFunc func(completed int)

// Options configures a pipeline run.
type Options struct {
	// MaxWorkers caps how many chunks are encoded concurrently. Zero or
	// negative selects runtime.NumCPU().
	MaxWorkers int

	// SkipValidation disables per-field format validation, passing raw
	// values straight to comparators. Mirrors spec.md's validate=false
	// escape hatch; the default (false) validates every field.
	SkipValidation bool

	Progress ProgressFunc

	LoggerFactory logging.LoggerFactory
}

// Run chunks rows, encodes the chunks across a worker pool (each
// worker reusing one bloom.Encoder for every chunk it takes), and returns the results re-ordered to
// match the input row order. The first encoding error encountered
// aborts the run: pending chunks are abandoned and in-flight results
// are discarded, per spec.md's error-handling policy.
func Run(ctx context.Context, rows [][]string, s *schema.Schema, keys *kdf.KeySet, opts Options) ([]bloom.EncodedRow, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	chunks := makeChunks(rows, chunkSize(len(rows)))

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}

	runID := uuid.New()
	var log logging.LeveledLogger
	if opts.LoggerFactory != nil {
		log = opts.LoggerFactory.NewLogger("pipeline")
	}
	if log != nil {
		log.Debugf("pipeline run %s: %d rows, %d chunks, %d workers", runID, len(rows), len(chunks), workers)
	}

	g, gCtx := errgroup.WithContext(ctx)

	jobs := make(chan chunk)
	results := make(chan chunkResult)

	g.Go(func() error { return dispatch(gCtx, chunks, jobs) })
	for w := 0; w < workers; w++ {
		g.Go(func() error { return work(gCtx, s, keys, !opts.SkipValidation, jobs, results) })
	}
	go func() {
		g.Wait()
		close(results)
	}()

	output, gatherErr := gather(results, chunks, opts.Progress)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if gatherErr != nil {
		return nil, gatherErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if log != nil {
		log.Debugf("pipeline run %s: encoded %d rows", runID, len(output))
	}
	return output, nil
}

// dispatch feeds chunks to the jobs channel in order, then closes it.
// It exits early without closing further work if the run is cancelled,
// letting errgroup record ctx.Err() and cancel the sibling workers.
func dispatch(ctx context.Context, chunks []chunk, jobs chan<- chunk) error {
	defer close(jobs)
	for _, c := range chunks {
		select {
		case jobs <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// work pulls chunks off jobs until it is empty or the run is
// cancelled, encoding each with the worker's one bloom.Encoder. A non-nil return
// is the first-error signal errgroup uses to cancel gCtx for the
// dispatcher and every other worker.
func work(ctx context.Context, s *schema.Schema, keys *kdf.KeySet, validate bool, jobs <-chan chunk, results chan<- chunkResult) error {
	enc := bloom.NewEncoder(s, keys)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-jobs:
			if !ok {
				return nil
			}
			res := encodeChunk(ctx, enc, c, validate)
			select {
			case results <- res:
			case <-ctx.Done():
				return ctx.Err()
			}
			if res.err != nil {
				return res.err
			}
		}
	}
}

func encodeChunk(ctx context.Context, enc *bloom.Encoder, c chunk, validate bool) chunkResult {
	out := make([]bloom.EncodedRow, 0, len(c.rows))
	for offset, row := range c.rows {
		select {
		case <-ctx.Done():
			return chunkResult{id: c.id, err: ctx.Err()}
		default:
		}
		globalIndex := c.startIndex + offset
		encoded, err := enc.EncodeRow(row, globalIndex, validate)
		if err != nil {
			return chunkResult{id: c.id, err: err}
		}
		out = append(out, encoded)
	}
	return chunkResult{id: c.id, rows: out}
}

// gather reassembles chunk results into input order using a min-heap
// keyed by chunk id and a next-expected-id cursor: a completed chunk
// is flushed to the output as soon as its id equals the cursor,
// otherwise it waits in the heap. It terminates when results is
// closed, which the caller arranges to happen only after every
// dispatcher/worker goroutine in the errgroup has returned.
func gather(results <-chan chunkResult, chunks []chunk, progress ProgressFunc) ([]bloom.EncodedRow, error) {
	totalRows := 0
	for _, c := range chunks {
		totalRows += len(c.rows)
	}
	output := make([]bloom.EncodedRow, 0, totalRows)

	h := &resultHeap{}
	heap.Init(h)
	nextExpected := 0
	var firstErr error

	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		heap.Push(h, res)
		for h.Len() > 0 && (*h)[0].id == nextExpected {
			top := heap.Pop(h).(chunkResult)
			output = append(output, top.rows...)
			if progress != nil {
				progress(len(output))
			}
			nextExpected++
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return output, nil
}
