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
	"fmt"

	"github.com/ajroetker/go-imagestack/hwy"
	"github.com/ajroetker/go-imagestack/hwy/contrib/workerpool"
)

// MinParallelMapEntries is the plane size below which the permutation map
// is filled on the caller's goroutine.
const MinParallelMapEntries = 64 * 64

// Sense selects the direction of a 90 degree rotation.
type Sense int

const (
	// Clockwise turns the top row into the right column.
	Clockwise Sense = iota

	// CounterClockwise turns the top row into the left column.
	CounterClockwise
)

// String returns "cw" or "ccw".
func (s Sense) String() string {
	if s == CounterClockwise {
		return "ccw"
	}
	return "cw"
}

// Inverse returns the sense that undoes s.
func (s Sense) Inverse() Sense {
	if s == CounterClockwise {
		return Clockwise
	}
	return CounterClockwise
}

// ParseSense parses "cw" or "ccw".
func ParseSense(name string) (Sense, error) {
	switch name {
	case "cw":
		return Clockwise, nil
	case "ccw":
		return CounterClockwise, nil
	}
	return Clockwise, fmt.Errorf("%w: got %q", ErrSense, name)
}

// PermutationMap maps each offset of a rotated output plane to the offset
// of its source pixel in the input plane.
type PermutationMap []int

// NewRotationMap returns the permutation map rotating a height x width plane
// by 90 degrees in the given sense. The rotated plane is width x height.
func NewRotationMap(pool *workerpool.Pool, height, width int, sense Sense) PermutationMap {
	m := make(PermutationMap, height*width)
	fillRotationMap(pool, m, height, width, sense)
	return m
}

// fillRotationMap writes the rotation of a height x width plane into m,
// which must hold height*width entries.
//
// Output offset i sits at row i/height, column i%height of the width x height
// rotated plane.
func fillRotationMap(pool *workerpool.Pool, m PermutationMap, height, width int, sense Sense) {
	fill := func(start, end int) {
		for i := start; i < end; i++ {
			r, c := i/height, i%height
			if sense == CounterClockwise {
				m[i] = width*c + (width - 1 - r)
			} else {
				m[i] = width*(height-1-c) + r
			}
		}
	}
	if pool == nil || len(m) < MinParallelMapEntries {
		fill(0, len(m))
		return
	}
	pool.ParallelFor(len(m), fill)
}

// Rotate90 rotates every plane of the stack in by 90 degrees and writes the
// result to out, whose shape is shape.Rotated(). in and out must both hold
// shape.Len() elements and must not overlap.
//
// The permutation map is reserved through the configured Allocator; if that
// fails Rotate90 returns an error wrapping ErrAllocation and leaves out
// untouched. A nil pool runs sequentially.
func Rotate90[T hwy.Floats](pool *workerpool.Pool, in, out []T, shape Shape, sense Sense, opts ...Option) error {
	if err := shape.check(len(in)); err != nil {
		return err
	}
	if len(out) != len(in) {
		return fmt.Errorf("%w: output has %d elements, input has %d", ErrBufferSize, len(out), len(in))
	}
	if len(in) == 0 {
		return nil
	}
	cfg := ApplyOptions(opts...)
	planeSize := shape.PlaneSize()

	perm, err := makeSlice[int](cfg.Allocator, planeSize)
	if err != nil {
		return fmt.Errorf("rotation map for %dx%d plane: %w", shape.Height(), shape.Width(), err)
	}
	defer freeSlice(cfg.Allocator, perm)

	// ParallelFor returns only after every entry is written, so the map is
	// complete before any worker reads it below.
	fillRotationMap(pool, perm, shape.Height(), shape.Width(), sense)
	applyPermutation(pool, in, out, perm, cfg.chunkFor(planeSize))
	return nil
}

// applyPermutation sets out[n] = in[base(n) + perm[n%planeSize]] for every n,
// where base(n) is the start of the plane holding n. Workers claim chunk
// elements at a time; with chunk == planeSize each claim is one whole image.
func applyPermutation[T hwy.Floats](pool *workerpool.Pool, in, out []T, perm PermutationMap, chunk int) {
	planeSize := len(perm)
	apply := func(start, end int) {
		for n := start; n < end; {
			base := n / planeSize * planeSize
			off := n - base
			stop := min(end, base+planeSize)
			hwy.GatherInto(out[n:stop], in[base:base+planeSize], perm[off:off+(stop-n)])
			n = stop
		}
	}
	if pool == nil {
		apply(0, len(out))
		return
	}
	pool.ParallelForAtomicBatched(len(out), chunk, apply)
}

// Rotate90Float32 is the non-generic version for float32.
func Rotate90Float32(pool *workerpool.Pool, in, out []float32, shape Shape, sense Sense, opts ...Option) error {
	return Rotate90(pool, in, out, shape, sense, opts...)
}

// Rotate90Float64 is the non-generic version for float64.
func Rotate90Float64(pool *workerpool.Pool, in, out []float64, shape Shape, sense Sense, opts ...Option) error {
	return Rotate90(pool, in, out, shape, sense, opts...)
}
