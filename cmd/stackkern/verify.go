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

package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ajroetker/go-imagestack/hwy/contrib/image"
	"github.com/ajroetker/go-imagestack/hwy/contrib/workerpool"
)

// check is one self-test of the kernels.
type check struct {
	name string
	run  func(pool *workerpool.Pool, opts []image.Option) error
}

var checks = []check{
	{"rotate-2x2-clockwise", checkRotateScenario},
	{"rotate-round-trip", checkRoundTrip},
	{"rotate-four-turns", checkFourTurns},
	{"rotate-stack-uniformity", checkUniformity},
	{"mean-partial-nan", checkPartialNaN},
	{"mean-all-nan", checkAllNaN},
	{"sum-matches-naive", checkNaiveSum},
	{"mean-alloc-failure", checkAllocFailure},
}

func (a *app) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Run the kernel self-checks concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool := a.pool()
			if pool != nil {
				defer pool.Close()
			}
			results := runChecks(cmd.Context(), pool, a.kernelOptions)

			w := cmd.OutOrStdout()
			failed := 0
			for i, err := range results {
				switch {
				case err == nil:
					fmt.Fprintf(w, "ok    %s\n", checks[i].name)
				case errors.Is(err, context.Canceled):
					fmt.Fprintf(w, "skip  %s\n", checks[i].name)
				default:
					failed++
					fmt.Fprintf(w, "FAIL  %s: %v\n", checks[i].name, err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(checks))
			}
			return nil
		},
	}
}

// runChecks runs every check on its own goroutine, all sharing pool. Each
// check gets its own options from newOpts, so a --budget applies per check.
// The first failure cancels the checks that have not started yet.
func runChecks(ctx context.Context, pool *workerpool.Pool, newOpts func() []image.Option) []error {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]error, len(checks))
	g, ctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = err
				return nil
			}
			results[i] = c.run(pool, newOpts())
			return results[i]
		})
	}
	_ = g.Wait()
	return results
}

func checkRotateScenario(pool *workerpool.Pool, opts []image.Option) error {
	out := make([]float32, 4)
	if err := image.Rotate90(pool, []float32{1, 2, 3, 4}, out, image.Shape{1, 2, 2}, image.Clockwise, opts...); err != nil {
		return err
	}
	if want := []float32{3, 1, 4, 2}; !slices.Equal(out, want) {
		return fmt.Errorf("got %v, want %v", out, want)
	}
	return nil
}

func checkRoundTrip(pool *workerpool.Pool, opts []image.Option) error {
	shape := image.Shape{3, 37, 53}
	in := synthStack(shape, 2, 0)
	for _, sense := range []image.Sense{image.Clockwise, image.CounterClockwise} {
		fwd := make([]float32, len(in))
		back := make([]float32, len(in))
		if err := image.Rotate90(pool, in, fwd, shape, sense, opts...); err != nil {
			return err
		}
		if err := image.Rotate90(pool, fwd, back, shape.Rotated(), sense.Inverse(), opts...); err != nil {
			return err
		}
		if !slices.Equal(back, in) {
			return fmt.Errorf("%s then %s changed the stack", sense, sense.Inverse())
		}
	}
	return nil
}

func checkFourTurns(pool *workerpool.Pool, opts []image.Option) error {
	shape := image.Shape{2, 19, 11}
	in := synthStack(shape, 3, 0)
	cur, next := slices.Clone(in), make([]float32, len(in))
	for range 4 {
		if err := image.Rotate90(pool, cur, next, shape, image.CounterClockwise, opts...); err != nil {
			return err
		}
		cur, next = next, cur
		shape = shape.Rotated()
	}
	if !slices.Equal(cur, in) {
		return errors.New("four turns changed the stack")
	}
	return nil
}

func checkUniformity(pool *workerpool.Pool, opts []image.Option) error {
	const k = 5
	plane := synthStack(image.Shape{24, 17}, 4, 0)
	single := make([]float32, len(plane))
	if err := image.Rotate90(nil, plane, single, image.Shape{24, 17}, image.Clockwise, opts...); err != nil {
		return err
	}
	in := make([]float32, 0, k*len(plane))
	for range k {
		in = append(in, plane...)
	}
	out := make([]float32, len(in))
	if err := image.Rotate90(pool, in, out, image.Shape{k, 24, 17}, image.Clockwise, opts...); err != nil {
		return err
	}
	for i := range k {
		if !slices.Equal(out[i*len(plane):(i+1)*len(plane)], single) {
			return fmt.Errorf("image %d differs from the single-image rotation", i)
		}
	}
	return nil
}

func checkPartialNaN(pool *workerpool.Pool, opts []image.Option) error {
	nan := float32(math.NaN())
	in := []float32{
		1, 0, 0, 0,
		nan, 0, 0, 0,
		3, 0, 0, 0,
	}
	mean := make([]float32, 4)
	count := make([]int64, 4)
	if err := image.StackMean(pool, in, mean, count, image.Shape{3, 2, 2}, true, opts...); err != nil {
		return err
	}
	if count[0] != 2 || mean[0] != 2 {
		return fmt.Errorf("pixel (0,0): mean %g count %d, want mean 2 count 2", mean[0], count[0])
	}
	return nil
}

func checkAllNaN(pool *workerpool.Pool, opts []image.Option) error {
	nan := float32(math.NaN())
	in := []float32{nan, 1, nan, 2, nan, 3}
	mean := make([]float32, 2)
	count := make([]int64, 2)
	if err := image.StackMean(pool, in, mean, count, image.Shape{3, 1, 2}, true, opts...); err != nil {
		return err
	}
	if count[0] != 0 || mean[0] != 0 {
		return fmt.Errorf("all-NaN pixel: mean %g count %d, want 0 and 0", mean[0], count[0])
	}
	return nil
}

func checkNaiveSum(pool *workerpool.Pool, opts []image.Option) error {
	shape := image.Shape{2, 9, 33, 29}
	in := synthStack(shape, 5, 0.1)
	n := shape.PlaneSize()
	sum := make([]float32, n)
	count := make([]int64, n)
	if err := image.StackMean(pool, in, sum, count, shape, false, opts...); err != nil {
		return err
	}
	for j := range n {
		var want float64
		var wantCount int64
		for img := range shape.ImageCount() {
			v := in[img*n+j]
			if math.IsNaN(float64(v)) {
				continue
			}
			want += float64(v)
			wantCount++
		}
		if count[j] != wantCount {
			return fmt.Errorf("pixel %d: count %d, want %d", j, count[j], wantCount)
		}
		if count[j] < 0 || count[j] > int64(shape.ImageCount()) {
			return fmt.Errorf("pixel %d: count %d outside [0, %d]", j, count[j], shape.ImageCount())
		}
		if d := math.Abs(float64(sum[j]) - want); d > 1e-4*max(1, math.Abs(want)) {
			return fmt.Errorf("pixel %d: sum %g, want %g", j, sum[j], want)
		}
	}
	return nil
}

func checkAllocFailure(pool *workerpool.Pool, _ []image.Option) error {
	in := synthStack(image.Shape{4, 8, 8}, 6, 0)
	mean := slices.Repeat([]float32{-1}, 64)
	count := slices.Repeat([]int64{-1}, 64)
	err := image.StackMean(pool, in, mean, count, image.Shape{4, 8, 8}, true, image.WithAllocator(image.NewBudget(0)))
	if image.StatusOf(err) != image.StatusAllocFailed {
		return fmt.Errorf("status %v (%v), want %v", image.StatusOf(err), err, image.StatusAllocFailed)
	}
	for j := range mean {
		if mean[j] != -1 || count[j] != -1 {
			return fmt.Errorf("output written at pixel %d despite allocation failure", j)
		}
	}
	return nil
}
