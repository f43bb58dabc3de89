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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajroetker/go-imagestack/hwy/contrib/image"
)

func (a *app) newMeanCmd() *cobra.Command {
	var (
		shapeFlag   string
		seed        uint64
		nanFraction float64
		normalize   bool
	)
	cmd := &cobra.Command{
		Use:   "mean",
		Short: "Reduce a synthetic stack to per-pixel NaN-aware means and counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			shape, err := image.ParseShape(shapeFlag)
			if err != nil {
				return err
			}
			if nanFraction < 0 || nanFraction > 1 {
				return fmt.Errorf("--nan-fraction must be in [0, 1], got %g", nanFraction)
			}
			pool := a.pool()
			if pool != nil {
				defer pool.Close()
			}

			in := synthStack(shape, seed, nanFraction)
			mean := make([]float32, shape.PlaneSize())
			count := make([]int64, shape.PlaneSize())
			a.logger.Debug("mean", "shape", shape.String(), "nan_fraction", nanFraction, "normalize", normalize, "workers", a.workers)

			start := time.Now()
			err = image.StackMean(pool, in, mean, count, shape, normalize, a.kernelOptions()...)
			elapsed := time.Since(start)
			status := image.StatusOf(err)
			a.logger.Debug("reduced", "elapsed", elapsed, "status", status.String())
			if err != nil && status != image.StatusCleanupAnomaly {
				return err
			}

			s := summarize(mean, count)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "reduced %v to %dx%d in %v, %.1f MB/s\n",
				shape, shape.Height(), shape.Width(), elapsed, throughputMB(4*len(in), elapsed))
			fmt.Fprintf(w, "valid samples:   %d of %d\n", s.valid, len(in))
			fmt.Fprintf(w, "count per pixel: min %d, max %d\n", s.minCount, s.maxCount)
			fmt.Fprintf(w, "empty pixels:    %d\n", s.empty)
			label := "mean of means:  "
			if !normalize {
				label = "mean of sums:   "
			}
			fmt.Fprintf(w, "%s %g\n", label, s.average)
			fmt.Fprintf(w, "status:          %s\n", status)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&shapeFlag, "shape", "s", "32,512,512", "stack shape [batch...,height,width]")
	f.Uint64Var(&seed, "seed", 1, "random seed for the synthetic stack")
	f.Float64Var(&nanFraction, "nan-fraction", 0.01, "fraction of samples replaced by NaN")
	f.BoolVar(&normalize, "normalize", true, "report sum/count instead of the raw sum")
	return cmd
}

type meanSummary struct {
	valid              int64
	minCount, maxCount int64
	empty              int
	average            float64
}

func summarize(mean []float32, count []int64) meanSummary {
	var s meanSummary
	if len(count) == 0 {
		return s
	}
	s.minCount, s.maxCount = count[0], count[0]
	var total float64
	for j, n := range count {
		s.valid += n
		s.minCount = min(s.minCount, n)
		s.maxCount = max(s.maxCount, n)
		if n == 0 {
			s.empty++
		}
		total += float64(mean[j])
	}
	s.average = total / float64(len(count))
	return s
}
