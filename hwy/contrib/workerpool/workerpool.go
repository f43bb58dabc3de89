// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a persistent, reusable worker pool for the
// fork-join regions of the image stack kernels. A Pool is created once and
// reused across many rotations and reductions, so no call pays for spawning
// goroutines or allocating channels.
//
// Every ParallelFor* call is a fork-join region: it hands work to the
// workers and returns only after all of it has completed, which makes each
// call a full barrier between consecutive phases of a kernel.
//
// Usage:
//
//	pool := workerpool.New(0) // GOMAXPROCS, or HWY_NUM_WORKERS if set
//	defer pool.Close()
//
//	for _, stack := range stacks {
//	    image.Rotate90(pool, stack.In, stack.Out, stack.Shape, image.Clockwise)
//	}
package workerpool

import (
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// NumWorkersEnv names the environment variable that overrides the default
// pool size used by New(0).
const NumWorkersEnv = "HWY_NUM_WORKERS"

// Pool is a persistent worker pool that can be reused across many parallel
// operations. Workers are spawned once at creation and reused.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

// workItem represents a single parallel operation to execute.
type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// DefaultWorkers returns the pool size used when New is called with
// numWorkers <= 0: the value of HWY_NUM_WORKERS when it holds a positive
// integer, GOMAXPROCS otherwise.
func DefaultWorkers() int {
	if v := os.Getenv(NumWorkersEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return runtime.GOMAXPROCS(0)
}

// New creates a new worker pool with the specified number of workers.
// Workers are spawned immediately and persist until Close is called.
// If numWorkers <= 0, uses DefaultWorkers.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers()
	}

	p := &Pool{
		numWorkers: numWorkers,
		// Buffer enough for all workers to have pending work
		workC: make(chan workItem, numWorkers*2),
	}

	for range numWorkers {
		go p.worker()
	}

	return p
}

// worker is the main loop for each persistent worker goroutine.
func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// WorkersFor returns how many workers ParallelFor and ParallelForWorkers
// engage for n items: min(NumWorkers, n), 1 once the pool is closed, and 0
// when there is nothing to do.
func (p *Pool) WorkersFor(n int) int {
	if n <= 0 {
		return 0
	}
	if p.closed.Load() {
		return 1
	}
	return min(p.numWorkers, n)
}

// Close shuts down the worker pool. All pending work will complete.
// Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// ParallelFor executes fn for each index in [0, n) using the worker pool.
// Each worker processes a contiguous range of indices.
// Blocks until all work completes.
//
// fn receives (start, end) indices where work should process [start, end).
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	p.ParallelForWorkers(n, func(_, start, end int) {
		fn(start, end)
	})
}

// ParallelForWorkers is ParallelFor with the worker index exposed. The range
// [0, n) is split statically into WorkersFor(n) contiguous ranges and fn is
// called at most once per worker index, so state indexed by worker (such as
// private accumulators) is never shared between concurrent calls.
// Blocks until all work completes.
//
// fn receives (worker, start, end) with worker in [0, WorkersFor(n)).
func (p *Pool) ParallelForWorkers(n int, fn func(worker, start, end int)) {
	workers := p.WorkersFor(n)
	if workers == 0 {
		return
	}

	// Closed pools and single-worker splits run on the caller's goroutine.
	if workers == 1 {
		fn(0, 0, n)
		return
	}

	// Calculate chunk size (ensure all items are covered)
	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := range workers {
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= n {
			// No work for this worker
			wg.Done()
			continue
		}

		p.workC <- workItem{
			fn: func() {
				fn(i, start, end)
			},
			barrier: &wg,
		}
	}

	wg.Wait()
}

// ParallelForAtomicBatched executes fn for batches of indices using atomic
// work stealing. Batches start at multiples of batchSize, so a batch size
// equal to one image plane hands out whole images. Blocks until all work
// completes.
//
// fn receives (start, end) indices where work should process [start, end).
func (p *Pool) ParallelForAtomicBatched(n int, batchSize int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	if batchSize <= 0 {
		batchSize = 1
	}

	if p.closed.Load() {
		fn(0, n)
		return
	}

	numBatches := (n + batchSize - 1) / batchSize
	workers := min(p.numWorkers, numBatches)

	if workers == 1 {
		fn(0, n)
		return
	}

	var nextBatch atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		p.workC <- workItem{
			fn: func() {
				for {
					batch := int(nextBatch.Add(1)) - 1
					if batch >= numBatches {
						return
					}
					start := batch * batchSize
					end := min(start+batchSize, n)
					fn(start, end)
				}
			},
			barrier: &wg,
		}
	}

	wg.Wait()
}
