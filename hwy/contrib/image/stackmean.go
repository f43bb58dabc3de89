// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package image

import (
	"errors"
	"fmt"
	"math"

	"github.com/ajroetker/go-imagestack/hwy"
	"github.com/ajroetker/go-imagestack/hwy/contrib/workerpool"
)

// accumulator is one worker's private running sum and valid-sample count
// for every pixel of a plane.
type accumulator[T hwy.Floats] struct {
	sum   []T
	count []int64
}

// newAccumulators reserves n zeroed accumulators of planeSize pixels. On
// failure everything reserved so far is released again.
func newAccumulators[T hwy.Floats](a Allocator, n, planeSize int) ([]*accumulator[T], error) {
	accs := make([]*accumulator[T], 0, n)
	for w := range n {
		sum, err := makeSlice[T](a, planeSize)
		if err != nil {
			releaseAccumulators(a, accs)
			return nil, fmt.Errorf("sum accumulator %d of %d: %w", w, n, err)
		}
		count, err := makeSlice[int64](a, planeSize)
		if err != nil {
			freeSlice(a, sum)
			releaseAccumulators(a, accs)
			return nil, fmt.Errorf("count accumulator %d of %d: %w", w, n, err)
		}
		accs = append(accs, &accumulator[T]{sum: sum, count: count})
	}
	return accs, nil
}

// add folds images [start, end) of in into acc, skipping NaN samples.
func (acc *accumulator[T]) add(in []T, start, end, planeSize int) {
	sum, count := acc.sum[:planeSize], acc.count[:planeSize]
	for img := start; img < end; img++ {
		plane := in[img*planeSize : (img+1)*planeSize]
		for j, v := range plane {
			if isNaN(v) {
				continue
			}
			sum[j] += v
			count[j]++
		}
	}
}

// merge adds other into acc element-wise.
func (acc *accumulator[T]) merge(other *accumulator[T]) {
	sum, count := acc.sum, acc.count[:len(acc.sum)]
	osum, ocount := other.sum[:len(sum)], other.count[:len(sum)]
	for j := range sum {
		sum[j] += osum[j]
		count[j] += ocount[j]
	}
}

// release returns acc's buffers to a. A nil accumulator or a missing buffer
// is reported as ErrCleanup after whatever does exist has been released.
func (acc *accumulator[T]) release(a Allocator) error {
	if acc == nil {
		return fmt.Errorf("%w: nil accumulator", ErrCleanup)
	}
	var err error
	if acc.sum == nil {
		err = fmt.Errorf("%w: sum buffer", ErrCleanup)
	} else {
		freeSlice(a, acc.sum)
	}
	if acc.count == nil {
		err = errors.Join(err, fmt.Errorf("%w: count buffer", ErrCleanup))
	} else {
		freeSlice(a, acc.count)
	}
	acc.sum, acc.count = nil, nil
	return err
}

// releaseAccumulators releases every accumulator, continuing past anomalies.
func releaseAccumulators[T hwy.Floats](a Allocator, accs []*accumulator[T]) error {
	var errs []error
	for w, acc := range accs {
		if err := acc.release(a); err != nil {
			errs = append(errs, fmt.Errorf("worker %d: %w", w, err))
		}
	}
	return errors.Join(errs...)
}

// StackMean reduces the stack in to one plane of per-pixel results. NaN
// samples are skipped. countOut receives the number of valid samples per
// pixel. With normalize, meanOut receives sum/count, and pixels without any
// valid sample get mean 0 and count 0; without it meanOut receives the raw
// sum. meanOut and countOut must each hold shape.PlaneSize() elements.
//
// Images are split statically among the pool's workers; each worker sums
// whole planes into private accumulators, which are merged on the caller's
// goroutine in worker order after all workers finish.
//
// Errors:
//   - ErrShape, ErrBufferSize: rejected arguments, nothing written.
//   - ErrAllocation: accumulators could not be reserved, nothing written.
//   - ErrCleanup: outputs are complete, but an accumulator was missing when
//     it was released.
func StackMean[T hwy.Floats](pool *workerpool.Pool, in, meanOut []T, countOut []int64, shape Shape, normalize bool, opts ...Option) error {
	if err := shape.check(len(in)); err != nil {
		return err
	}
	planeSize := shape.PlaneSize()
	if len(meanOut) != planeSize || len(countOut) != planeSize {
		return fmt.Errorf("%w: plane has %d pixels, mean output has %d, count output has %d",
			ErrBufferSize, planeSize, len(meanOut), len(countOut))
	}
	cfg := ApplyOptions(opts...)
	numImages := shape.ImageCount()

	workers := 1
	if pool != nil {
		workers = max(pool.WorkersFor(numImages), 1)
	}
	accs, err := newAccumulators[T](cfg.Allocator, workers, planeSize)
	if err != nil {
		return fmt.Errorf("stack mean over %d images: %w", numImages, err)
	}

	if workers == 1 {
		accs[0].add(in, 0, numImages, planeSize)
	} else {
		pool.ParallelForWorkers(numImages, func(worker, start, end int) {
			accs[worker].add(in, start, end, planeSize)
		})
	}

	total := accs[0]
	for _, acc := range accs[1:] {
		total.merge(acc)
	}
	writeMean(total, meanOut, countOut, normalize)

	if err := releaseAccumulators(cfg.Allocator, accs); err != nil {
		return fmt.Errorf("stack mean over %d images: %w", numImages, err)
	}
	return nil
}

// writeMean copies the merged accumulator into the caller's buffers.
func writeMean[T hwy.Floats](total *accumulator[T], meanOut []T, countOut []int64, normalize bool) {
	sum, count := total.sum, total.count
	for j := range meanOut {
		n := count[j]
		countOut[j] = n
		switch {
		case !normalize:
			meanOut[j] = sum[j]
		case n > 0:
			meanOut[j] = sum[j] / T(n)
		default:
			meanOut[j] = 0
		}
	}
}

// StackMeanFloat32 is the non-generic version for float32.
func StackMeanFloat32(pool *workerpool.Pool, in, meanOut []float32, countOut []int64, shape Shape, normalize bool, opts ...Option) error {
	return StackMean(pool, in, meanOut, countOut, shape, normalize, opts...)
}

// StackMeanFloat64 is the non-generic version for float64.
func StackMeanFloat64(pool *workerpool.Pool, in, meanOut []float64, countOut []int64, shape Shape, normalize bool, opts ...Option) error {
	return StackMean(pool, in, meanOut, countOut, shape, normalize, opts...)
}

// isNaN reports whether v is NaN.
func isNaN[T hwy.Floats](v T) bool {
	return math.IsNaN(float64(v))
}
