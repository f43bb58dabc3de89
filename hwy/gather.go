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

package hwy

// GatherInto loads dst[i] = src[indices[i]] for every i in
// [0, min(len(dst), len(indices))).
// If an index is out of bounds (negative or >= len(src)), dst[i] is set to zero.
func GatherInto[T Lanes, I Indices](dst, src []T, indices []I) {
	n := min(len(dst), len(indices))
	dst = dst[:n]
	indices = indices[:n]

	// Unrolled by 4; the bounds checks stay because indices are caller data.
	i := 0
	for ; i+4 <= n; i += 4 {
		dst[i] = load(src, indices[i])
		dst[i+1] = load(src, indices[i+1])
		dst[i+2] = load(src, indices[i+2])
		dst[i+3] = load(src, indices[i+3])
	}
	for ; i < n; i++ {
		dst[i] = load(src, indices[i])
	}
}

// ScatterInto stores dst[indices[i]] = src[i] for every i in
// [0, min(len(src), len(indices))). Out of bounds indices are skipped.
func ScatterInto[T Lanes, I Indices](dst, src []T, indices []I) {
	n := min(len(src), len(indices))
	for i := range n {
		idx := int(indices[i])
		if idx >= 0 && idx < len(dst) {
			dst[idx] = src[i]
		}
	}
}

func load[T Lanes, I Indices](src []T, index I) T {
	idx := int(index)
	if idx >= 0 && idx < len(src) {
		return src[idx]
	}
	var zero T
	return zero
}
