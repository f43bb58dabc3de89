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

import (
	"os"
	"strconv"
	"unsafe"
)

// DispatchLevel represents the widest vector instruction set the CPU offers.
type DispatchLevel int

const (
	// DispatchScalar indicates no SIMD, pure Go implementation.
	DispatchScalar DispatchLevel = iota

	// DispatchSSE2 indicates SSE2 instructions (x86-64 baseline).
	DispatchSSE2

	// DispatchAVX2 indicates AVX2 instructions (256-bit SIMD).
	DispatchAVX2

	// DispatchAVX512 indicates AVX-512 instructions (512-bit SIMD).
	DispatchAVX512

	// DispatchNEON indicates ARM NEON instructions (128-bit SIMD).
	DispatchNEON

	// DispatchSVE indicates ARM SVE instructions (scalable vector).
	DispatchSVE
)

// String returns a human-readable name for the dispatch level.
func (d DispatchLevel) String() string {
	switch d {
	case DispatchScalar:
		return "scalar"
	case DispatchSSE2:
		return "sse2"
	case DispatchAVX2:
		return "avx2"
	case DispatchAVX512:
		return "avx512"
	case DispatchNEON:
		return "neon"
	case DispatchSVE:
		return "sve"
	default:
		return "unknown"
	}
}

// currentLevel is the detected SIMD level for this runtime.
// Set by init() in dispatch_*.go files.
var currentLevel DispatchLevel

// currentWidth is the SIMD register width in bytes for the current level.
// Set by init() in dispatch_*.go files.
var currentWidth int

// CurrentLevel returns the detected instruction set.
func CurrentLevel() DispatchLevel {
	return currentLevel
}

// CurrentWidth returns the SIMD register width in bytes.
// For example: 16 for SSE2/NEON, 32 for AVX2, 64 for AVX-512.
func CurrentWidth() int {
	return currentWidth
}

// CurrentName returns a human-readable name for the current SIMD target.
func CurrentName() string {
	return currentLevel.String()
}

// MaxLanes returns how many elements of T fit in one register of the
// current width.
func MaxLanes[T Lanes]() int {
	var dummy T
	elementSize := int(unsafe.Sizeof(dummy))
	if elementSize == 0 {
		return 0
	}
	return currentWidth / elementSize
}

// NoSimdEnv checks if the HWY_NO_SIMD environment variable is set.
// When set, detection reports the scalar level regardless of CPU capabilities.
func NoSimdEnv() bool {
	return envBool("HWY_NO_SIMD")
}

func envBool(name string) bool {
	val := os.Getenv(name)
	if val == "" {
		return false
	}
	// Any non-empty value is considered true, but also parse as bool
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

func setScalarMode() {
	currentLevel = DispatchScalar
	currentWidth = 16 // Use 16-byte vectors even in scalar mode for consistency
}
