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

// Package hwy holds the element constraints, runtime CPU dispatch
// information and index gather primitives shared by the image stack kernels.
//
// Basic usage:
//
//	import "github.com/ajroetker/go-imagestack/hwy"
//
//	fmt.Println(hwy.CurrentName()) // "avx2", "neon", "scalar", ...
//
//	// dst[i] = src[perm[i]]
//	hwy.GatherInto(dst, src, perm)
package hwy

// Floats is a constraint for floating-point types.
type Floats interface {
	~float32 | ~float64
}

// SignedInts is a constraint for signed integer types.
type SignedInts interface {
	~int8 | ~int16 | ~int32 | ~int64
}

// UnsignedInts is a constraint for unsigned integer types.
type UnsignedInts interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Integers is a constraint for all integer types.
type Integers interface {
	SignedInts | UnsignedInts
}

// Lanes is a constraint for all sample types a kernel can move around.
type Lanes interface {
	Floats | Integers
}

// Indices is a constraint for the element types of an index map.
type Indices interface {
	~int | ~int32 | ~int64
}
