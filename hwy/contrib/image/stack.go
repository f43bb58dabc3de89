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
	"slices"

	"github.com/ajroetker/go-imagestack/hwy"
	"github.com/ajroetker/go-imagestack/hwy/contrib/workerpool"
)

// Stack binds a contiguous row-major buffer to its Shape.
// Planes are stored back to back without row padding, so Data can be handed
// to Rotate90 and StackMean directly.
type Stack[T hwy.Floats] struct {
	data  []T
	shape Shape
}

// NewStack allocates a zeroed stack of the given shape.
func NewStack[T hwy.Floats](shape Shape) (*Stack[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &Stack[T]{
		data:  make([]T, shape.Len()),
		shape: slices.Clone(shape),
	}, nil
}

// WrapStack views data as a stack of the given shape without copying.
func WrapStack[T hwy.Floats](data []T, shape Shape) (*Stack[T], error) {
	if err := shape.check(len(data)); err != nil {
		return nil, err
	}
	return &Stack[T]{data: data, shape: slices.Clone(shape)}, nil
}

// Data returns the underlying buffer.
func (s *Stack[T]) Data() []T {
	return s.data
}

// Shape returns a copy of the stack shape.
func (s *Stack[T]) Shape() Shape {
	return slices.Clone(s.shape)
}

// ImageCount returns the number of planes.
func (s *Stack[T]) ImageCount() int {
	return s.shape.ImageCount()
}

// Height returns the plane height in pixels.
func (s *Stack[T]) Height() int {
	return s.shape.Height()
}

// Width returns the plane width in pixels.
func (s *Stack[T]) Width() int {
	return s.shape.Width()
}

// Plane returns a mutable slice for image i, or nil if i is out of range.
func (s *Stack[T]) Plane(i int) []T {
	if i < 0 || i >= s.ImageCount() {
		return nil
	}
	n := s.shape.PlaneSize()
	return s.data[i*n : (i+1)*n : (i+1)*n]
}

// At returns the value at position (x, y) of image i.
// Out of range positions return zero.
func (s *Stack[T]) At(i, x, y int) T {
	if !s.inBounds(i, x, y) {
		var zero T
		return zero
	}
	return s.data[s.offset(i, x, y)]
}

// Set sets the value at position (x, y) of image i.
// Out of range positions are ignored.
func (s *Stack[T]) Set(i, x, y int, value T) {
	if !s.inBounds(i, x, y) {
		return
	}
	s.data[s.offset(i, x, y)] = value
}

func (s *Stack[T]) inBounds(i, x, y int) bool {
	return i >= 0 && i < s.ImageCount() && x >= 0 && x < s.Width() && y >= 0 && y < s.Height()
}

func (s *Stack[T]) offset(i, x, y int) int {
	return i*s.shape.PlaneSize() + y*s.Width() + x
}

// Clone creates a deep copy of the stack.
func (s *Stack[T]) Clone() *Stack[T] {
	return &Stack[T]{data: slices.Clone(s.data), shape: slices.Clone(s.shape)}
}

// Fill sets all samples to the specified value.
func (s *Stack[T]) Fill(value T) {
	for i := range s.data {
		s.data[i] = value
	}
}

// Rotate90 returns a new stack holding every plane of s rotated by 90
// degrees. See the package-level Rotate90.
func (s *Stack[T]) Rotate90(pool *workerpool.Pool, sense Sense, opts ...Option) (*Stack[T], error) {
	out := make([]T, len(s.data))
	if err := Rotate90(pool, s.data, out, s.shape, sense, opts...); err != nil {
		return nil, err
	}
	return &Stack[T]{data: out, shape: s.shape.Rotated()}, nil
}

// Mean reduces s to per-pixel means (or sums, without normalize) and
// valid-sample counts. See StackMean.
//
// The returned error may wrap ErrCleanup while mean and count are still
// valid; any other error comes with nil results.
func (s *Stack[T]) Mean(pool *workerpool.Pool, normalize bool, opts ...Option) (mean []T, count []int64, err error) {
	n := s.shape.PlaneSize()
	mean, count = make([]T, n), make([]int64, n)
	err = StackMean(pool, s.data, mean, count, s.shape, normalize, opts...)
	if err != nil && StatusOf(err) != StatusCleanupAnomaly {
		return nil, nil, err
	}
	return mean, count, err
}
