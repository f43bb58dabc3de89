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
	"math"
	"sync/atomic"
	"unsafe"
)

// Allocator reserves and releases the working memory of a kernel call.
// Kernels call Reserve before allocating a buffer and Release once the
// buffer is no longer used. Implementations must be safe for concurrent use.
type Allocator interface {
	// Reserve claims bytes of working memory. A non-nil error aborts the
	// call that asked for it.
	Reserve(bytes int64) error

	// Release returns bytes previously claimed with Reserve.
	Release(bytes int64)
}

// HeapAllocator places no limit on working memory beyond the Go heap.
type HeapAllocator struct{}

// Reserve always succeeds.
func (HeapAllocator) Reserve(int64) error { return nil }

// Release is a no-op.
func (HeapAllocator) Release(int64) {}

// Budget is an Allocator with a fixed byte limit shared by every call that
// uses it. A Budget with limit 0 rejects every non-empty reservation.
type Budget struct {
	limit int64
	used  atomic.Int64
}

// NewBudget returns a Budget allowing at most limit bytes in use at once.
func NewBudget(limit int64) *Budget {
	return &Budget{limit: limit}
}

// Reserve claims bytes if they fit under the limit.
func (b *Budget) Reserve(bytes int64) error {
	for {
		used := b.used.Load()
		if used+bytes > b.limit {
			return fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrAllocation, bytes, used, b.limit)
		}
		if b.used.CompareAndSwap(used, used+bytes) {
			return nil
		}
	}
}

// Release returns bytes to the budget.
func (b *Budget) Release(bytes int64) {
	b.used.Add(-bytes)
}

// InUse returns the bytes currently reserved.
func (b *Budget) InUse() int64 {
	return b.used.Load()
}

// Limit returns the byte limit.
func (b *Budget) Limit() int64 {
	return b.limit
}

// makeSlice reserves room for n elements of E and allocates them zeroed.
func makeSlice[E any](a Allocator, n int) ([]E, error) {
	var zero E
	if size := int64(unsafe.Sizeof(zero)); size > 0 && int64(n) > math.MaxInt64/size {
		return nil, fmt.Errorf("%w: %d elements of %d bytes overflow int64", ErrAllocation, n, size)
	}
	if err := a.Reserve(sizeOf[E](n)); err != nil {
		return nil, err
	}
	return make([]E, n), nil
}

// freeSlice releases the reservation made for s by makeSlice.
func freeSlice[E any](a Allocator, s []E) {
	a.Release(sizeOf[E](len(s)))
}

func sizeOf[E any](n int) int64 {
	var zero E
	return int64(n) * int64(unsafe.Sizeof(zero))
}
