package engine

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	// ChunkingThreshold is the batch size from which items are grouped into chunks.
	ChunkingThreshold = 256
	// DefaultChunkSize is the chunk size when none is configured.
	DefaultChunkSize = 100
)

// Executor runs a pure function over a batch on a fixed number of workers.
type Executor struct {
	workers   int
	chunkSize int
}

// NewExecutor creates an executor. workers <= 0 means one per CPU; chunkSize <= 0 means the default.
func NewExecutor(workers, chunkSize int) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Executor{workers: workers, chunkSize: chunkSize}
}

// Workers returns the pool size.
func (x *Executor) Workers() int {
	return x.workers
}

// ChunkSize returns the chunk size used for large batches.
func (x *Executor) ChunkSize() int {
	return x.chunkSize
}

// Map applies fn to every item and returns the outputs in input order.
// Batches below ChunkingThreshold schedule one task per item; larger batches
// schedule one task per chunk of ChunkSize items.
func Map[T, R any](x *Executor, items []T, fn func(T) R) []R {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out
	}

	var g errgroup.Group
	g.SetLimit(x.workers)

	if len(items) < ChunkingThreshold {
		for i := range items {
			g.Go(func() error {
				out[i] = fn(items[i])
				return nil
			})
		}
	} else {
		for start := 0; start < len(items); start += x.chunkSize {
			end := min(start+x.chunkSize, len(items))
			g.Go(func() error {
				for i := start; i < end; i++ {
					out[i] = fn(items[i])
				}
				return nil
			})
		}
	}

	g.Wait()
	return out
}
