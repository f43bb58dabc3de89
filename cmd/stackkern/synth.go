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
	"math"
	"math/rand/v2"

	"github.com/ajroetker/go-imagestack/hwy/contrib/image"
)

// synthStack fills a stack with a per-image gradient plus noise, replacing
// roughly nanFraction of the samples with NaN.
func synthStack(shape image.Shape, seed uint64, nanFraction float64) []float32 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	h, w := shape.Height(), shape.Width()
	data := make([]float32, shape.Len())
	for n := range data {
		if nanFraction > 0 && rng.Float64() < nanFraction {
			data[n] = float32(math.NaN())
			continue
		}
		img, off := n/max(h*w, 1), n%max(h*w, 1)
		y, x := off/w, off%w
		data[n] = float32(img) + float32(x+y)/float32(h+w) + float32(rng.NormFloat64()*0.01)
	}
	return data
}
