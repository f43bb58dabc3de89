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

// Package image provides bulk kernels over stacks of 2-D float images.
//
// A stack is one contiguous row-major buffer described by a Shape
// [batch dims..., height, width]. All leading dims collapse into a single
// image count, so a [2, 3, 64, 64] shape is a stack of six 64x64 planes.
//
// # Rotation
//
// Rotate90 turns every plane of a stack by 90 degrees. It builds one
// permutation map per call (output offset to input offset within a plane)
// and gathers every image through it:
//
//	out := make([]float32, len(in))
//	err := image.Rotate90(pool, in, out, shape, image.Clockwise)
//	// out has shape shape.Rotated()
//
// # Stack mean
//
// StackMean reduces a stack to one plane of per-pixel sums or means and
// valid-sample counts, skipping NaN samples:
//
//	mean := make([]float32, shape.PlaneSize())
//	count := make([]int64, shape.PlaneSize())
//	err := image.StackMean(pool, in, mean, count, shape, true)
//
// Pixels with no valid sample report mean 0 and count 0.
//
// # Parallelism and memory
//
// Both kernels run as fork-join regions on a workerpool.Pool; a nil pool
// runs sequentially. Working memory (the permutation map, the per-worker
// accumulators) is reserved through an Allocator, and a failed reservation
// is reported as ErrAllocation before any output is written.
package image
