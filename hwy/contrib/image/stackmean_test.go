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
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ajroetker/go-imagestack/hwy/contrib/workerpool"
)

var nan = math.NaN()

// naiveStackSum accumulates the stack sequentially in float64.
func naiveStackSum(in []float64, shape Shape) ([]float64, []int64) {
	n := shape.PlaneSize()
	sum, count := make([]float64, n), make([]int64, n)
	for img := range shape.ImageCount() {
		for j := range n {
			v := in[img*n+j]
			if math.IsNaN(v) {
				continue
			}
			sum[j] += v
			count[j]++
		}
	}
	return sum, count
}

func randomStack(rng *rand.Rand, shape Shape, nanFraction float64) []float64 {
	in := make([]float64, shape.Len())
	for i := range in {
		if rng.Float64() < nanFraction {
			in[i] = nan
		} else {
			in[i] = rng.Float64()*200 - 100
		}
	}
	return in
}

func TestStackMeanScenarioB(t *testing.T) {
	// Pixel (0,0) across three images is [1, NaN, 3].
	in := []float64{
		1, 10, 20, 30,
		nan, 12, 22, 32,
		3, 14, 24, nan,
	}
	mean := make([]float64, 4)
	count := make([]int64, 4)

	if err := StackMean(nil, in, mean, count, Shape{3, 2, 2}, true); err != nil {
		t.Fatal(err)
	}
	if want := []int64{2, 3, 3, 2}; !slices.Equal(count, want) {
		t.Errorf("count = %v, want %v", count, want)
	}
	if want := []float64{2, 12, 22, 31}; !slices.Equal(mean, want) {
		t.Errorf("mean = %v, want %v", mean, want)
	}
}

func TestStackMeanAllNaN(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	in := []float64{
		nan, 1,
		nan, 2,
		nan, 3,
		nan, 4,
		nan, 5,
	}
	mean := []float64{-1, -1}
	count := []int64{-1, -1}

	if err := StackMean(pool, in, mean, count, Shape{5, 1, 2}, true); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(count, []int64{0, 5}) {
		t.Errorf("count = %v, want [0 5]", count)
	}
	// The all-NaN pixel reports 0, not NaN.
	if !slices.Equal(mean, []float64{0, 3}) {
		t.Errorf("mean = %v, want [0 3]", mean)
	}

	// Without normalization the all-NaN pixel sums to 0 as well.
	if err := StackMean(pool, in, mean, count, Shape{5, 1, 2}, false); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(mean, []float64{0, 15}) || !slices.Equal(count, []int64{0, 5}) {
		t.Errorf("sum, count = %v, %v; want [0 15], [0 5]", mean, count)
	}
}

func TestStackMeanMatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	shapes := []Shape{{1, 1}, {4, 4}, {3, 5, 7}, {2, 3, 31, 17}, {50, 16, 16}, {1, 64, 64}}

	for _, workers := range []int{1, 3, 8} {
		pool := workerpool.New(workers)
		for _, shape := range shapes {
			t.Run(fmt.Sprintf("workers=%d/%v", workers, shape), func(t *testing.T) {
				in := randomStack(rng, shape, 0.2)
				wantSum, wantCount := naiveStackSum(in, shape)

				sum := make([]float64, shape.PlaneSize())
				count := make([]int64, shape.PlaneSize())
				if err := StackMean(pool, in, sum, count, shape, false); err != nil {
					t.Fatal(err)
				}
				if diff := cmp.Diff(wantCount, count); diff != "" {
					t.Errorf("count mismatch (-want +got):\n%s", diff)
				}
				if diff := cmp.Diff(wantSum, sum, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
					t.Errorf("sum mismatch (-want +got):\n%s", diff)
				}

				mean := make([]float64, shape.PlaneSize())
				if err := StackMean(pool, in, mean, count, shape, true); err != nil {
					t.Fatal(err)
				}
				wantMean := make([]float64, len(mean))
				for j := range mean {
					if count[j] < 0 || count[j] > int64(shape.ImageCount()) {
						t.Fatalf("pixel %d: count %d outside [0, %d]", j, count[j], shape.ImageCount())
					}
					if wantCount[j] > 0 {
						wantMean[j] = wantSum[j] / float64(wantCount[j])
					}
				}
				if diff := cmp.Diff(wantMean, mean, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
					t.Errorf("mean mismatch (-want +got):\n%s", diff)
				}
			})
		}
		pool.Close()
	}
}

func TestStackMeanFloat32(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	rng := rand.New(rand.NewPCG(3, 5))
	shape := Shape{40, 8, 8}
	in64 := randomStack(rng, shape, 0.1)
	in := make([]float32, len(in64))
	for i, v := range in64 {
		in[i] = float32(v)
	}
	wantSum, wantCount := naiveStackSum(in64, shape)

	sum := make([]float32, shape.PlaneSize())
	count := make([]int64, shape.PlaneSize())
	if err := StackMeanFloat32(pool, in, sum, count, shape, false); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(count, wantCount) {
		t.Errorf("count = %v, want %v", count, wantCount)
	}
	for j := range sum {
		// float32 accumulation, partial sums merged in worker order.
		if d := math.Abs(wantSum[j] - float64(sum[j])); d > 2e-2 {
			t.Errorf("pixel %d: sum %g, want %g", j, sum[j], wantSum[j])
		}
	}

	mean64 := make([]float64, shape.PlaneSize())
	if err := StackMeanFloat64(pool, in64, mean64, count, shape, true); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(count, wantCount) {
		t.Errorf("float64 count = %v, want %v", count, wantCount)
	}
}

func TestStackMeanWithoutImages(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	mean := []float64{7, 7, 7}
	count := []int64{7, 7, 7}
	if err := StackMean(pool, nil, mean, count, Shape{0, 1, 3}, true); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(mean, []float64{0, 0, 0}) || !slices.Equal(count, []int64{0, 0, 0}) {
		t.Errorf("mean, count = %v, %v; want zeros", mean, count)
	}
}

func TestStackMeanAllocationFailure(t *testing.T) {
	in := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	shape := Shape{2, 2, 2}

	// 16 bytes fit the float32 sum buffer of one plane but not its counts.
	for _, limit := range []int64{0, 16, 47} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			mean := []float32{-1, -1, -1, -1}
			count := []int64{-1, -1, -1, -1}
			budget := NewBudget(limit)

			err := StackMean(nil, in, mean, count, shape, true, WithAllocator(budget))
			if !errors.Is(err, ErrAllocation) {
				t.Fatalf("err = %v, want ErrAllocation", err)
			}
			if StatusOf(err) != StatusAllocFailed {
				t.Errorf("StatusOf = %v, want %v", StatusOf(err), StatusAllocFailed)
			}
			if !slices.Equal(mean, []float32{-1, -1, -1, -1}) || !slices.Equal(count, []int64{-1, -1, -1, -1}) {
				t.Errorf("outputs modified on allocation failure: mean %v, count %v", mean, count)
			}
			if budget.InUse() != 0 {
				t.Errorf("InUse = %d, partial reservations were not released", budget.InUse())
			}
		})
	}
}

func TestStackMeanAllocationFailurePerWorker(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	shape := Shape{8, 4, 4}
	in := make([]float64, shape.Len())
	// One accumulator pair is 16*8 + 16*8 bytes; room for two of four.
	budget := NewBudget(2 * 256)

	mean := make([]float64, 16)
	count := make([]int64, 16)
	if err := StackMean(pool, in, mean, count, shape, true, WithAllocator(budget)); !errors.Is(err, ErrAllocation) {
		t.Fatalf("err = %v, want ErrAllocation", err)
	}
	if budget.InUse() != 0 {
		t.Errorf("InUse = %d after failure, want 0", budget.InUse())
	}

	// With a single worker the same budget suffices.
	if err := StackMean(nil, in, mean, count, shape, true, WithAllocator(budget)); err != nil {
		t.Fatal(err)
	}
	if budget.InUse() != 0 {
		t.Errorf("InUse = %d after success, want 0", budget.InUse())
	}
}

func TestStackMeanInvalidArguments(t *testing.T) {
	tests := []struct {
		name        string
		in          int
		mean, count int
		shape       Shape
		wantErr     error
	}{
		{"one dim", 4, 4, 4, Shape{4}, ErrShape},
		{"negative dim", 4, 4, 4, Shape{2, -2, -1}, ErrShape},
		{"overflowing length", 4, 4, 4, Shape{math.MaxInt/2 + 2, 4, 1}, ErrShape},
		{"short input", 7, 4, 4, Shape{2, 2, 2}, ErrBufferSize},
		{"short mean", 8, 3, 4, Shape{2, 2, 2}, ErrBufferSize},
		{"long count", 8, 4, 5, Shape{2, 2, 2}, ErrBufferSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := StackMean(nil, make([]float64, tt.in), make([]float64, tt.mean), make([]int64, tt.count), tt.shape, true)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if StatusOf(err) != StatusInvalidArgument {
				t.Errorf("StatusOf = %v, want %v", StatusOf(err), StatusInvalidArgument)
			}
		})
	}
}

func TestReleaseAccumulatorsAnomaly(t *testing.T) {
	budget := NewBudget(1 << 20)
	accs, err := newAccumulators[float64](budget, 3, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(accs) != 3 {
		t.Fatalf("got %d accumulators, want 3", len(accs))
	}
	if budget.InUse() != 3*(80+80) {
		t.Errorf("InUse = %d, want %d", budget.InUse(), 3*(80+80))
	}

	// Worker 1's accumulator went missing; the others are still released.
	accs[1] = nil
	err = releaseAccumulators(budget, accs)
	if !errors.Is(err, ErrCleanup) {
		t.Fatalf("err = %v, want ErrCleanup", err)
	}
	if StatusOf(err) != StatusCleanupAnomaly {
		t.Errorf("StatusOf = %v, want %v", StatusOf(err), StatusCleanupAnomaly)
	}
	if !strings.Contains(err.Error(), "worker 1") {
		t.Errorf("err = %q, want it to name worker 1", err)
	}
	if budget.InUse() != 80+80 {
		t.Errorf("InUse = %d, want only the lost pair (160) reserved", budget.InUse())
	}

	// A pair missing one buffer releases the other.
	budget = NewBudget(1 << 20)
	acc := &accumulator[float32]{sum: make([]float32, 4)}
	if err := budget.Reserve(16); err != nil {
		t.Fatal(err)
	}
	if err := acc.release(budget); !errors.Is(err, ErrCleanup) {
		t.Errorf("release without count buffer: err = %v, want ErrCleanup", err)
	}
	if budget.InUse() != 0 {
		t.Errorf("InUse = %d, want 0", budget.InUse())
	}
}

func TestAccumulatorSkipsNaN(t *testing.T) {
	acc := &accumulator[float64]{sum: make([]float64, 2), count: make([]int64, 2)}
	acc.add([]float64{1, nan, math.Inf(1), 2, nan, nan}, 0, 3, 2)
	if !slices.Equal(acc.count, []int64{2, 1}) {
		t.Errorf("count = %v, want [2 1]", acc.count)
	}
	if !math.IsInf(acc.sum[0], 1) || acc.sum[1] != 2 {
		t.Errorf("sum = %v, want [+Inf 2]", acc.sum)
	}

	other := &accumulator[float64]{sum: []float64{1, 1}, count: []int64{1, 1}}
	acc.merge(other)
	if !slices.Equal(acc.count, []int64{3, 2}) || acc.sum[1] != 3 {
		t.Errorf("after merge sum, count = %v, %v; want [+Inf 3], [3 2]", acc.sum, acc.count)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{fmt.Errorf("x: %w", ErrAllocation), StatusAllocFailed},
		{errors.Join(fmt.Errorf("worker 2: %w", ErrCleanup)), StatusCleanupAnomaly},
		{ErrShape, StatusInvalidArgument},
		{errors.New("other"), StatusInvalidArgument},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}

	for status, code := range map[Status]int{StatusOK: 0, StatusAllocFailed: 1, StatusCleanupAnomaly: 2, StatusInvalidArgument: 3} {
		if int(status) != code {
			t.Errorf("%v = %d, want %d", status, int(status), code)
		}
	}
	if got := StatusAllocFailed.String(); got != "alloc-failed" {
		t.Errorf("StatusAllocFailed.String() = %q", got)
	}
	if got := Status(42).String(); got != "unknown" {
		t.Errorf("Status(42).String() = %q", got)
	}
}
